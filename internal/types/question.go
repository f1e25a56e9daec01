package types

import "strings"

// Category is one of the fixed interview question categories.
type Category string

// Question categories
const (
	CategoryBehavioral      Category = "behavioral"
	CategoryTechnical       Category = "technical"
	CategorySituational     Category = "situational"
	CategoryCompanySpecific Category = "company-specific"
	CategoryRoleSpecific    Category = "role-specific"
	CategoryExperienceBased Category = "experience-based"
	CategoryCulturalFit     Category = "cultural-fit"
)

var allCategories = []Category{
	CategoryBehavioral,
	CategoryTechnical,
	CategorySituational,
	CategoryCompanySpecific,
	CategoryRoleSpecific,
	CategoryExperienceBased,
	CategoryCulturalFit,
}

var categoryAliases = map[string]Category{
	"behaviour":      CategoryBehavioral,
	"behavioural":    CategoryBehavioral,
	"company":        CategoryCompanySpecific,
	"role":           CategoryRoleSpecific,
	"experience":     CategoryExperienceBased,
	"cultural":       CategoryCulturalFit,
	"culture":        CategoryCulturalFit,
	"culture-fit":    CategoryCulturalFit,
	"culture-add":    CategoryCulturalFit,
	"technical-deep": CategoryTechnical,
}

// AllCategories returns the categories in their fixed order.
func AllCategories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

// ParseCategory maps loose spellings ("Cultural Fit", "company_specific") onto a
// Category. ok is false when nothing matches.
func ParseCategory(s string) (Category, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("_", "-", " ", "-").Replace(key)
	key = strings.TrimSuffix(key, "-questions")
	for _, c := range allCategories {
		if string(c) == key {
			return c, true
		}
	}
	if c, ok := categoryAliases[key]; ok {
		return c, true
	}
	return "", false
}

// Difficulty of a question.
type Difficulty string

// Difficulty values
const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// NormalizeDifficulty case-normalizes s; anything unknown becomes medium.
func NormalizeDifficulty(s string) Difficulty {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d
	default:
		return DifficultyMedium
	}
}

// Question is one practice question.
type Question struct {
	Text                    string     `json:"question"`
	Category                Category   `json:"category"`
	Difficulty              Difficulty `json:"difficulty"`
	Rationale               string     `json:"rationale,omitempty"`
	CompanyContext          string     `json:"company_context,omitempty"`
	Confidence              float64    `json:"confidence"`
	StarMethodRelevant      bool       `json:"star_method_relevant"`
	SuggestedAnswerApproach string     `json:"suggested_answer_approach,omitempty"`
	EvaluationCriteria      []string   `json:"evaluation_criteria,omitempty"`
	FollowUpQuestions       []string   `json:"follow_up_questions,omitempty"`
}

// NormalizedText is the comparison key used for duplicate detection.
func (q Question) NormalizedText() string {
	return NormalizeQuestionText(q.Text)
}

// NormalizeQuestionText lowercases, drops trailing punctuation and collapses whitespace.
func NormalizeQuestionText(s string) string {
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))
	return strings.TrimRight(s, "?!. ")
}

// QuestionSet holds questions grouped by category, each list in insertion order.
type QuestionSet map[Category][]Question

// Count returns the number of questions in category c.
func (s QuestionSet) Count(c Category) int {
	return len(s[c])
}

// Total returns the number of questions across all categories.
func (s QuestionSet) Total() int {
	total := 0
	for _, qs := range s {
		total += len(qs)
	}
	return total
}

// Counts returns per-category counts for every fixed category.
func (s QuestionSet) Counts() map[Category]int {
	counts := make(map[Category]int, len(allCategories))
	for _, c := range allCategories {
		counts[c] = len(s[c])
	}
	return counts
}

// Clone returns a copy whose lists can be appended to independently.
func (s QuestionSet) Clone() QuestionSet {
	out := make(QuestionSet, len(s))
	for c, qs := range s {
		out[c] = append([]Question(nil), qs...)
	}
	return out
}

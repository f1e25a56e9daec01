// Package relevance ranks a candidate's work history against job requirements
// with a keyword-overlap heuristic. The ranking only shapes the synthesis prompt.
package relevance

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/jonathan/interview-prep/internal/config"
	"github.com/jonathan/interview-prep/internal/types"
)

const (
	minKeywordLength = 3
	// achievementBonus is added per listed achievement, up to maxBonusedAchievements.
	achievementBonus       = 0.5
	maxBonusedAchievements = 4
)

var stopWords = map[string]bool{
	"and": true, "or": true, "with": true, "the": true, "for": true, "from": true,
	"into": true, "onto": true, "our": true, "you": true, "your": true, "are": true,
	"will": true, "have": true, "has": true, "this": true, "that": true, "these": true,
	"those": true, "who": true, "what": true, "which": true, "such": true, "etc": true,
	"plus": true, "including": true, "ability": true, "able": true, "strong": true,
	"experience": true, "experienced": true, "years": true, "year": true, "work": true,
	"working": true, "knowledge": true, "understanding": true, "skills": true, "skill": true,
	"good": true, "excellent": true, "team": true, "using": true, "use": true, "other": true,
	"well": true, "must": true, "should": true, "can": true, "all": true, "any": true,
	"not": true, "but": true, "also": true, "within": true, "across": true, "about": true,
	"preferred": true, "required": true, "nice": true, "bonus": true, "least": true,
}

// ScoredEntry is a work-history entry with its relevance score.
type ScoredEntry struct {
	Entry         types.WorkEntry `json:"entry"`
	Score         float64         `json:"score"`
	MatchedTerms  []string        `json:"matched_terms,omitempty"`
	HighRelevance bool            `json:"high_relevance"`
}

// Ranking is the scorer output: the high-relevance entries followed by the
// supporting ones.
type Ranking struct {
	Keywords   []string      `json:"keywords"`
	High       []ScoredEntry `json:"high"`
	Supporting []ScoredEntry `json:"supporting"`
}

// Empty reports whether the ranking has nothing worth putting in a prompt.
func (r Ranking) Empty() bool {
	return len(r.High) == 0 && len(r.Supporting) == 0
}

// Scorer holds the limits used by Rank.
type Scorer struct {
	cfg config.RelevanceConfig
}

// NewScorer creates a Scorer.
func NewScorer(cfg config.RelevanceConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Rank extracts keywords from requirements and ranks history by overlap.
// No keywords yields an empty ranking. Equal scores keep their input order.
func (s *Scorer) Rank(requirements []string, history []types.WorkEntry) Ranking {
	keywords := ExtractKeywords(requirements, s.cfg.MaxKeywords)
	if len(keywords) == 0 || len(history) == 0 {
		return Ranking{Keywords: keywords}
	}

	scored := make([]ScoredEntry, 0, len(history))
	for _, entry := range history {
		score, matched := scoreEntry(entry, keywords)
		scored = append(scored, ScoredEntry{Entry: entry, Score: score, MatchedTerms: matched})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	high := min(s.cfg.HighCount, len(scored))
	supporting := min(s.cfg.SupportingCount, len(scored)-high)

	out := Ranking{Keywords: keywords}
	for i := 0; i < high; i++ {
		scored[i].HighRelevance = true
		out.High = append(out.High, scored[i])
	}
	for i := high; i < high+supporting; i++ {
		out.Supporting = append(out.Supporting, scored[i])
	}
	return out
}

// ExtractKeywords tokenizes requirement strings into unique lowercase,
// accent-folded keywords in first-seen order, capped at max.
func ExtractKeywords(requirements []string, max int) []string {
	seen := make(map[string]bool)
	var keywords []string
	for _, req := range requirements {
		for _, tok := range tokenize(req) {
			if len(keywords) >= max {
				return keywords
			}
			if len(tok) < minKeywordLength || stopWords[tok] || seen[tok] {
				continue
			}
			seen[tok] = true
			keywords = append(keywords, tok)
		}
	}
	return keywords
}

// tokenize splits on anything but letters, digits and the characters that
// appear inside technology names (c++, c#, node.js).
func tokenize(s string) []string {
	s = fold(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#' && r != '.'
	})
	out := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, ".")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		result = s
	}
	return strings.ToLower(result)
}

func scoreEntry(entry types.WorkEntry, keywords []string) (float64, []string) {
	parts := []string{entry.Position(), entry.Company, entry.Duration, entry.Description}
	parts = append(parts, entry.Achievements...)
	blob := fold(strings.Join(parts, " "))

	score := 0.0
	var matched []string
	for _, kw := range keywords {
		if n := strings.Count(blob, kw); n > 0 {
			score += float64(n)
			matched = append(matched, kw)
		}
	}
	score += achievementBonus * float64(min(len(entry.Achievements), maxBonusedAchievements))
	return score, matched
}

package persist

import (
	"sort"

	"github.com/google/uuid"

	"github.com/jonathan/interview-prep/internal/db"
	"github.com/jonathan/interview-prep/internal/types"
)

// StageForCategory returns the stage order index a category maps to. When
// fallback is true the category may use the first available stage instead.
func StageForCategory(c types.Category) (stage int, fallback bool) {
	switch c {
	case types.CategoryBehavioral, types.CategoryCulturalFit:
		return 1, false
	case types.CategoryTechnical, types.CategoryRoleSpecific:
		return 2, false
	case types.CategorySituational, types.CategoryExperienceBased:
		return 3, false
	default:
		return 4, true
	}
}

// MapQuestions binds every non-empty question to a stage id. Categories are
// walked in fixed order and questions keep their order within a category.
// Nothing is returned alongside a *MappingError.
func MapQuestions(searchID string, set types.QuestionSet, stageIDs map[int]uuid.UUID) ([]db.QuestionRow, error) {
	available := make([]int, 0, len(stageIDs))
	for order := range stageIDs {
		available = append(available, order)
	}
	sort.Ints(available)

	var rows []db.QuestionRow
	for _, cat := range types.AllCategories() {
		var qs []types.Question
		for _, q := range set[cat] {
			if q.NormalizedText() != "" {
				qs = append(qs, q)
			}
		}
		if len(qs) == 0 {
			continue
		}

		stage, fallback := StageForCategory(cat)
		id, ok := stageIDs[stage]
		if !ok && fallback && len(available) > 0 {
			id, ok = stageIDs[available[0]], true
		}
		if !ok {
			return nil, &MappingError{Category: cat, Stage: stage, Available: available}
		}

		for _, q := range qs {
			q.Category = cat
			rows = append(rows, db.QuestionRow{StageID: id, SearchID: searchID, Question: q})
		}
	}
	return rows, nil
}

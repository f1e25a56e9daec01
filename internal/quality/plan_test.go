package quality

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/interview-prep/internal/config"
	"github.com/jonathan/interview-prep/internal/types"
)

func defaultQuality() config.QualityConfig {
	return config.QualityConfig{MinTotal: 30, MinPerCategory: 3, PerCategoryTarget: 5, MaxIterations: 2, MaxPerCall: 10}
}

func setWithCounts(counts map[types.Category]int) types.QuestionSet {
	set := types.QuestionSet{}
	for c, n := range counts {
		for i := 0; i < n; i++ {
			set[c] = append(set[c], types.Question{Text: fmt.Sprintf("%s question %d", c, i), Category: c})
		}
	}
	return set
}

func planMap(reqs []Request) map[types.Category]int {
	out := map[types.Category]int{}
	for _, r := range reqs {
		out[r.Category] = r.Count
	}
	return out
}

func TestSatisfied(t *testing.T) {
	q := defaultQuality()

	full := map[types.Category]int{}
	for _, c := range types.AllCategories() {
		full[c] = 5
	}
	assert.True(t, Satisfied(setWithCounts(full), q))

	full[types.CategoryCulturalFit] = 2
	assert.False(t, Satisfied(setWithCounts(full), q), "one category under its minimum")

	thin := map[types.Category]int{}
	for _, c := range types.AllCategories() {
		thin[c] = 3
	}
	assert.False(t, Satisfied(setWithCounts(thin), q), "21 questions is under the global minimum")
}

func TestPlan_FillsEmptyCategoriesToTarget(t *testing.T) {
	set := setWithCounts(map[types.Category]int{types.CategoryBehavioral: 5})

	plan := Plan(set, defaultQuality())

	got := planMap(plan)
	assert.NotContains(t, got, types.CategoryBehavioral)
	for _, c := range types.AllCategories()[1:] {
		assert.Equal(t, 5, got[c], c)
	}
	assert.Equal(t, types.CategoryTechnical, plan[0].Category, "requests come back in fixed order")
}

func TestPlan_DistributesGlobalShortfallToLowest(t *testing.T) {
	counts := map[types.Category]int{}
	for _, c := range types.AllCategories() {
		counts[c] = 3
	}

	got := planMap(Plan(setWithCounts(counts), defaultQuality()))

	// 21 existing, 9 short: one round over all seven, then the first two again.
	assert.Equal(t, 2, got[types.CategoryBehavioral])
	assert.Equal(t, 2, got[types.CategoryTechnical])
	for _, c := range types.AllCategories()[2:] {
		assert.Equal(t, 1, got[c], c)
	}
}

func TestPlan_PerCategoryFillComesFirst(t *testing.T) {
	set := setWithCounts(map[types.Category]int{
		types.CategoryBehavioral:      10,
		types.CategoryTechnical:       10,
		types.CategorySituational:     4,
		types.CategoryCompanySpecific: 4,
		types.CategoryRoleSpecific:    4,
		types.CategoryExperienceBased: 1,
	})

	got := planMap(Plan(set, defaultQuality()))

	// experience-based and cultural-fit are filled to 5 first (4 + 5 = 9 → 42 projected).
	assert.Equal(t, map[types.Category]int{
		types.CategoryExperienceBased: 4,
		types.CategoryCulturalFit:     5,
	}, got)
}

func TestPlan_CapsEachRequest(t *testing.T) {
	q := defaultQuality()
	q.MinTotal = 100
	q.MaxPerCall = 10

	for _, r := range Plan(types.QuestionSet{}, q) {
		assert.LessOrEqual(t, r.Count, 10, r.Category)
	}
}

func TestPlan_NothingWhenSatisfied(t *testing.T) {
	counts := map[types.Category]int{}
	for _, c := range types.AllCategories() {
		counts[c] = 5
	}
	assert.Empty(t, Plan(setWithCounts(counts), defaultQuality()))
}

package quality

import (
	"github.com/jonathan/interview-prep/internal/config"
	"github.com/jonathan/interview-prep/internal/types"
)

// Request asks for Count new questions in one category.
type Request struct {
	Category types.Category
	Count    int
}

// Satisfied reports whether the set meets both the global minimum and every
// per-category minimum.
func Satisfied(set types.QuestionSet, q config.QualityConfig) bool {
	if set.Total() < q.MinTotal {
		return false
	}
	for _, c := range types.AllCategories() {
		if set.Count(c) < q.MinPerCategory {
			return false
		}
	}
	return true
}

// Plan computes the requests for one refinement iteration. Categories under the
// per-category minimum are filled to the target first; any remaining global
// shortfall goes one question at a time to the category with the lowest
// projected count, ties broken by the fixed category order. Each request is
// capped at MaxPerCall. Requests come back in fixed category order.
func Plan(set types.QuestionSet, q config.QualityConfig) []Request {
	cats := types.AllCategories()
	projected := make(map[types.Category]int, len(cats))
	need := make(map[types.Category]int, len(cats))

	total := 0
	for _, c := range cats {
		n := set.Count(c)
		if n < q.MinPerCategory {
			need[c] = q.PerCategoryTarget - n
		}
		projected[c] = n + need[c]
		total += projected[c]
	}

	for ; total < q.MinTotal; total++ {
		lowest := cats[0]
		for _, c := range cats[1:] {
			if projected[c] < projected[lowest] {
				lowest = c
			}
		}
		need[lowest]++
		projected[lowest]++
	}

	var out []Request
	for _, c := range cats {
		n := need[c]
		if q.MaxPerCall > 0 && n > q.MaxPerCall {
			n = q.MaxPerCall
		}
		if n > 0 {
			out = append(out, Request{Category: c, Count: n})
		}
	}
	return out
}

// below lists the categories under the per-category minimum.
func below(set types.QuestionSet, q config.QualityConfig) []string {
	var out []string
	for _, c := range types.AllCategories() {
		if set.Count(c) < q.MinPerCategory {
			out = append(out, string(c))
		}
	}
	return out
}

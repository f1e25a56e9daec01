package synthesis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/jonathan/interview-prep/internal/llm"
	"github.com/jonathan/interview-prep/internal/types"
)

const defaultConfidence = 0.5

// ParseResult turns a model reply into a strict result. It never fails: an
// unparseable reply yields the empty default with ParseFailed set. The returned
// warnings describe anything dropped or repaired along the way.
func ParseResult(text string) (*types.SynthesisResult, []string) {
	result := types.NewSynthesisResult()

	doc, err := decodeObject(text)
	if err != nil {
		result.Metadata.ParseFailed = true
		return result, []string{"unparseable reply: " + err.Error()}
	}

	var warnings []string
	result.Stages = coerceStages(first(doc, "interview_stages", "stages"))
	result.Comparison = coerceComparison(asMap(first(doc, "comparison_analysis", "comparison")))
	result.Guidance = coerceGuidance(asMap(first(doc, "preparation_guidance", "guidance")))

	questions, qWarnings := coerceQuestionSet(first(doc, "interview_questions", "questions"))
	result.Questions = questions
	warnings = append(warnings, qWarnings...)
	return result, warnings
}

// ParseQuestionList reads a {"questions": [...]} reply (or a bare array) and
// coerces every entry into category. Unparseable replies yield nil.
func ParseQuestionList(text string, category types.Category) []types.Question {
	cleaned := llm.CleanJSONBlock(text)

	var v any
	dec := json.NewDecoder(strings.NewReader(cleaned))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil
	}

	var items []any
	switch t := v.(type) {
	case []any:
		items = t
	case map[string]any:
		items, _ = first(t, "questions", "items").([]any)
	}

	out := make([]types.Question, 0, len(items))
	for _, item := range items {
		if q, ok := coerceQuestion(item, category); ok {
			out = append(out, q)
		}
	}
	return out
}

func decodeObject(text string) (map[string]any, error) {
	cleaned := llm.CleanJSONBlock(text)
	if cleaned == "" {
		return nil, fmt.Errorf("empty reply")
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(cleaned)))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("reply is not an object")
	}
	return doc, nil
}

func coerceStages(v any) []types.InterviewStage {
	items, _ := v.([]any)

	type ordered struct {
		stage types.InterviewStage
		order float64
		pos   int
	}
	var stages []ordered
	for i, item := range items {
		m := asMap(item)
		if m == nil {
			continue
		}
		name := asString(first(m, "name", "stage", "title"))
		if name == "" {
			name = fmt.Sprintf("Stage %d", len(stages)+1)
		}
		order, ok := asNumber(first(m, "order_index", "order", "stage_number"))
		if !ok {
			order = float64(i + 1)
		}
		stages = append(stages, ordered{
			stage: types.InterviewStage{
				Name:            name,
				Duration:        asString(m["duration"]),
				Interviewer:     asString(first(m, "interviewer", "interviewers")),
				Content:         asString(first(m, "content", "description")),
				Guidance:        asString(m["guidance"]),
				PreparationTips: asStrings(first(m, "preparation_tips", "tips")),
				CommonQuestions: asStrings(m["common_questions"]),
				RedFlags:        asStrings(m["red_flags"]),
			},
			order: order,
			pos:   i,
		})
	}

	sort.SliceStable(stages, func(i, j int) bool {
		return stages[i].order < stages[j].order
	})

	out := make([]types.InterviewStage, 0, len(stages))
	for i, s := range stages {
		s.stage.OrderIndex = i + 1
		out = append(out, s.stage)
	}
	return out
}

func coerceComparison(m map[string]any) types.ComparisonAnalysis {
	c := types.NewSynthesisResult().Comparison
	if m == nil {
		return c
	}

	if score, ok := asNumber(first(m, "overall_fit_score", "fit_score", "overall_fit")); ok {
		// A fractional score is read as a ratio.
		if score > 0 && score <= 1 {
			score *= 100
		}
		c.OverallFitScore = clamp(score, 0, 100)
	}
	c.Strengths = nonNil(asStrings(m["strengths"]))
	c.SkillMatches = nonNil(asStrings(first(m, "skill_matches", "matching_skills")))
	c.ExperienceAlignment = asString(m["experience_alignment"])

	gaps, _ := first(m, "gaps", "skill_gaps").([]any)
	for _, g := range gaps {
		if gm := asMap(g); gm != nil {
			area := asString(first(gm, "area", "skill", "gap"))
			if area == "" {
				continue
			}
			c.Gaps = append(c.Gaps, types.Gap{
				Area:           area,
				Severity:       strings.ToLower(asString(gm["severity"])),
				Recommendation: asString(first(gm, "recommendation", "suggestion")),
			})
			continue
		}
		if s := asString(g); s != "" {
			c.Gaps = append(c.Gaps, types.Gap{Area: s})
		}
	}
	return c
}

func coerceGuidance(m map[string]any) types.PreparationGuidance {
	g := types.NewSynthesisResult().Guidance
	if m == nil {
		return g
	}
	g.Timeline = asString(m["timeline"])
	g.Priorities = nonNil(asStrings(first(m, "priorities", "preparation_priorities")))
	g.FocusAreas = nonNil(asStrings(m["focus_areas"]))
	g.Resources = nonNil(asStrings(m["resources"]))
	g.DayOfTips = nonNil(asStrings(first(m, "day_of_tips", "interview_day_tips")))
	return g
}

// coerceQuestionSet accepts a category-keyed object or a flat array whose
// entries carry their own category.
func coerceQuestionSet(v any) (types.QuestionSet, []string) {
	set := types.QuestionSet{}
	var warnings []string

	add := func(cat types.Category, item any) {
		q, ok := coerceQuestion(item, cat)
		if !ok {
			return
		}
		if containsText(set[cat], q.NormalizedText()) {
			warnings = append(warnings, fmt.Sprintf("dropped duplicate %s question", cat))
			return
		}
		set[cat] = append(set[cat], q)
	}

	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			cat, ok := types.ParseCategory(k)
			if !ok {
				warnings = append(warnings, fmt.Sprintf("dropped questions with unknown category %q", k))
				continue
			}
			items, _ := t[k].([]any)
			for _, item := range items {
				add(cat, item)
			}
		}
	case []any:
		for _, item := range t {
			cat, ok := types.ParseCategory(asString(asMap(item)["category"]))
			if !ok {
				warnings = append(warnings, "dropped question without a known category")
				continue
			}
			add(cat, item)
		}
	}
	return set, warnings
}

// coerceQuestion builds a strict question; ok is false for empty text.
func coerceQuestion(item any, cat types.Category) (types.Question, bool) {
	m := asMap(item)
	if m == nil {
		text := strings.TrimSpace(asString(item))
		if text == "" {
			return types.Question{}, false
		}
		m = map[string]any{"question": text}
	}

	text := strings.TrimSpace(asString(first(m, "question", "text", "prompt")))
	if text == "" {
		return types.Question{}, false
	}

	confidence := defaultConfidence
	if c, ok := asNumber(m["confidence"]); ok {
		if c > 1 && c <= 100 {
			c /= 100
		}
		confidence = clamp(c, 0, 1)
	}

	star, ok := asBool(first(m, "star_method_relevant", "star_method"))
	if !ok {
		star = cat == types.CategoryBehavioral || cat == types.CategorySituational || cat == types.CategoryExperienceBased
	}

	return types.Question{
		Text:                    text,
		Category:                cat,
		Difficulty:              types.NormalizeDifficulty(asString(m["difficulty"])),
		Rationale:               asString(first(m, "rationale", "why_asked")),
		CompanyContext:          asString(m["company_context"]),
		Confidence:              confidence,
		StarMethodRelevant:      star,
		SuggestedAnswerApproach: asString(first(m, "suggested_answer_approach", "answer_approach")),
		EvaluationCriteria:      asStrings(m["evaluation_criteria"]),
		FollowUpQuestions:       asStrings(m["follow_up_questions"]),
	}, true
}

func containsText(qs []types.Question, normalized string) bool {
	for _, q := range qs {
		if q.NormalizedText() == normalized {
			return true
		}
	}
	return false
}

func first(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case []any:
		return strings.Join(asStrings(t), "\n")
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func asStrings(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := asString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		if s := asString(t); s != "" {
			return []string{s}
		}
		return nil
	}
}

func asNumber(v any) (float64, bool) {
	var f float64
	var err error
	switch t := v.(type) {
	case json.Number:
		f, err = t.Float64()
	case float64:
		f = t
	case string:
		f, err = strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(t), "%"), 64)
	default:
		return 0, false
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func asBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "y", "1":
			return true, true
		case "false", "no", "n", "0":
			return false, true
		}
	}
	return false, false
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

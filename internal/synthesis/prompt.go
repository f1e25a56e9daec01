package synthesis

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jonathan/interview-prep/internal/prompts"
	"github.com/jonathan/interview-prep/internal/relevance"
	"github.com/jonathan/interview-prep/internal/types"
)

const (
	synthesisPromptFile = "synthesis.json"
	truncatedMarker     = "\n[truncated]"
)

// Prompt is a rendered system instruction plus user prompt.
type Prompt struct {
	System string
	User   string
	// Sections names the research sections included, in priority order.
	Sections []string
}

// Section titles, in priority order.
const (
	SectionRealQuestions = "real_interview_questions"
	SectionCompany       = "company_research"
	SectionJob           = "job_requirements"
	SectionCandidate     = "candidate_profile"
)

// Context is the decoded research a prompt is built from. Quality refinement
// reuses it so follow-up calls see the same signals.
type Context struct {
	Request  types.ResearchRequest
	Raw      types.RawResearchData
	Company  types.CompanyInsights
	Job      types.JobRequirements
	CV       types.CVProfile
	Ranking  relevance.Ranking
	HasComp  bool
	HasJob   bool
	HasCV    bool
	MaxChars int
}

// NewContext decodes the raw payloads and ranks the candidate's history.
func NewContext(req types.ResearchRequest, raw types.RawResearchData, scorer *relevance.Scorer, maxChars int) *Context {
	c := &Context{Request: req, Raw: raw, MaxChars: maxChars}
	c.Company, c.HasComp = types.DecodeCompanyInsights(raw.CompanyInsights)
	c.Job, c.HasJob = types.DecodeJobRequirements(raw.JobRequirements)
	c.CV, c.HasCV = types.DecodeCVProfile(raw.CVAnalysis)
	if c.HasJob && c.HasCV && scorer != nil {
		c.Ranking = scorer.Rank(c.Job.RequirementStrings(), c.CV.WorkHistory)
	}
	return c
}

// RoleOrDefault is the role name used in prompts.
func (c *Context) RoleOrDefault() string {
	if c.Request.Role != "" {
		return c.Request.Role
	}
	if c.Job.Title != "" {
		return c.Job.Title
	}
	return "the open position"
}

// BuildPrompt renders the synthesis prompt. Sections appear in fixed priority
// order and missing sources are omitted.
func BuildPrompt(c *Context, perCategory, minTotal int) (Prompt, error) {
	var sections []string
	var names []string
	add := func(name, body string) {
		if strings.TrimSpace(body) == "" {
			return
		}
		sections = append(sections, truncate(body, c.MaxChars))
		names = append(names, name)
	}

	add(SectionRealQuestions, c.realQuestionsSection())
	add(SectionCompany, c.companySection())
	add(SectionJob, c.jobSection())
	add(SectionCandidate, c.candidateSection())

	body := strings.Join(sections, "\n\n")
	if body == "" {
		body = fmt.Sprintf("No research data was available. Base the plan on what is generally known about %s and the role.", c.Request.Company)
	}

	categories := make([]string, 0, 7)
	for _, cat := range types.AllCategories() {
		categories = append(categories, string(cat))
	}

	data := map[string]string{
		"Company":       c.Request.Company,
		"Role":          c.RoleOrDefault(),
		"CountryClause": countryClause(c.Request.Country),
		"Seniority":     string(c.Request.SeniorityOrDefault()),
		"Categories":    strings.Join(categories, ", "),
		"PerCategory":   fmt.Sprint(perCategory),
		"MinTotal":      fmt.Sprint(minTotal),
		"Sections":      body,
	}

	shape, err := prompts.Get(synthesisPromptFile, "shape")
	if err != nil {
		return Prompt{}, &PromptError{Message: "missing output shape", Cause: err}
	}
	data["Shape"] = shape

	system, err := prompts.Render(synthesisPromptFile, "system", data)
	if err != nil {
		return Prompt{}, &PromptError{Message: "missing system prompt", Cause: err}
	}
	user, err := prompts.Render(synthesisPromptFile, "instructions", data)
	if err != nil {
		return Prompt{}, &PromptError{Message: "missing instructions", Cause: err}
	}
	return Prompt{System: system, User: user, Sections: names}, nil
}

func countryClause(country string) string {
	if country == "" {
		return ""
	}
	return " in " + country
}

// realQuestionsSection groups reported questions by category, fixed categories first.
func (c *Context) realQuestionsSection() string {
	if !c.HasComp || len(c.Company.InterviewQuestions) == 0 {
		return ""
	}

	keys := make([]string, 0, len(c.Company.InterviewQuestions))
	for k := range c.Company.InterviewQuestions {
		keys = append(keys, k)
	}
	rank := func(k string) int {
		cat, ok := types.ParseCategory(k)
		if !ok {
			return len(types.AllCategories())
		}
		for i, known := range types.AllCategories() {
			if known == cat {
				return i
			}
		}
		return len(types.AllCategories())
	}
	sort.SliceStable(keys, func(i, j int) bool {
		ri, rj := rank(keys[i]), rank(keys[j])
		if ri != rj {
			return ri < rj
		}
		return keys[i] < keys[j]
	})

	var sb strings.Builder
	sb.WriteString("## Real interview questions reported by candidates\n")
	sb.WriteString("Treat these as ground truth for the themes this company asks about. Vary the wording; do not copy them verbatim.\n")
	wrote := false
	for _, k := range keys {
		qs := c.Company.InterviewQuestions[k]
		if len(qs) == 0 {
			continue
		}
		wrote = true
		sb.WriteString(fmt.Sprintf("\n### %s\n", k))
		writeBullets(&sb, qs)
	}
	if !wrote {
		return ""
	}
	return sb.String()
}

func (c *Context) companySection() string {
	if !c.HasComp {
		return rawFallback("## Company research", c.Raw.CompanyInsights)
	}
	co := c.Company

	var sb strings.Builder
	sb.WriteString("## Company research\n")
	writeField(&sb, "Company", co.Name)
	writeField(&sb, "Industry", co.Industry)
	writeField(&sb, "Overview", co.Description)
	writeList(&sb, "Culture", co.Culture)
	writeList(&sb, "Values", co.Values)

	if len(co.InterviewProcess) > 0 {
		sb.WriteString("\nInterview process:\n")
		for i, st := range co.InterviewProcess {
			sb.WriteString(fmt.Sprintf("%d. %s", i+1, st.Name))
			if st.Duration != "" {
				sb.WriteString(" (" + st.Duration + ")")
			}
			if st.Description != "" {
				sb.WriteString(": " + st.Description)
			}
			sb.WriteString("\n")
			for _, tip := range st.Tips {
				sb.WriteString("   tip: " + tip + "\n")
			}
		}
	}

	exp := co.InterviewExperiences
	if exp.Summary != "" || exp.Difficulty != "" || len(exp.PositiveThemes)+len(exp.NegativeThemes) > 0 {
		sb.WriteString("\nCandidate experiences:\n")
		writeField(&sb, "Summary", exp.Summary)
		writeField(&sb, "Reported difficulty", exp.Difficulty)
		writeList(&sb, "Positive themes", exp.PositiveThemes)
		writeList(&sb, "Negative themes", exp.NegativeThemes)
	}
	writeList(&sb, "Hiring manager insights", co.HiringManagerInsights)
	return sb.String()
}

func (c *Context) jobSection() string {
	if !c.HasJob {
		return rawFallback("## Job requirements", c.Raw.JobRequirements)
	}
	job := c.Job

	var sb strings.Builder
	sb.WriteString("## Job requirements\n")
	writeField(&sb, "Title", job.Title)
	writeField(&sb, "Experience level", job.ExperienceLevel)
	writeList(&sb, "Technical skills", job.TechnicalSkills)
	writeList(&sb, "Soft skills", job.SoftSkills)
	writeList(&sb, "Responsibilities", job.Responsibilities)
	writeList(&sb, "Required qualifications", job.Qualifications.Required)
	writeList(&sb, "Preferred qualifications", job.Qualifications.Preferred)
	return sb.String()
}

func (c *Context) candidateSection() string {
	if !c.HasCV {
		return rawFallback("## Candidate profile", c.Raw.CVAnalysis)
	}
	cv := c.CV

	var sb strings.Builder
	sb.WriteString("## Candidate profile\n")
	writeField(&sb, "Summary", cv.Summary)
	writeField(&sb, "Current role", cv.CurrentRole)
	if cv.ExperienceYears > 0 {
		writeField(&sb, "Years of experience", fmt.Sprintf("%g", cv.ExperienceYears))
	}
	writeList(&sb, "Technical skills", cv.Skills.Technical)
	writeList(&sb, "Soft skills", cv.Skills.Soft)

	if len(cv.WorkHistory) > 0 {
		sb.WriteString("\nWork history:\n")
		for _, w := range cv.WorkHistory {
			sb.WriteString("- " + describeEntry(w) + "\n")
		}
	}
	writeList(&sb, "Projects", cv.Projects)
	writeList(&sb, "Achievements", cv.Achievements)
	writeList(&sb, "Education", cv.Education)

	if !c.Ranking.Empty() {
		sb.WriteString("\n### Experience most relevant to this job\n")
		for _, e := range c.Ranking.High {
			sb.WriteString(fmt.Sprintf("- %s (matches: %s)\n", describeEntry(e.Entry), strings.Join(e.MatchedTerms, ", ")))
			for _, a := range e.Entry.Achievements {
				sb.WriteString("    achievement: " + a + "\n")
			}
		}
		if len(c.Ranking.Supporting) > 0 {
			sb.WriteString("\n### Supporting experience\n")
			for _, e := range c.Ranking.Supporting {
				sb.WriteString("- " + describeEntry(e.Entry) + "\n")
			}
		}
	}
	return sb.String()
}

// Summary is a compact context block for follow-up calls.
func (c *Context) Summary() string {
	var sb strings.Builder
	if c.HasComp {
		writeList(&sb, "Company values", c.Company.Values)
		writeList(&sb, "Culture", c.Company.Culture)
	}
	if c.HasJob {
		writeList(&sb, "Key skills", c.Job.TechnicalSkills)
		writeList(&sb, "Responsibilities", c.Job.Responsibilities)
	}
	if len(c.Ranking.High) > 0 {
		sb.WriteString("Candidate's most relevant experience:\n")
		for _, e := range c.Ranking.High {
			sb.WriteString("- " + describeEntry(e.Entry) + "\n")
		}
	}
	return truncate(strings.TrimSpace(sb.String()), c.MaxChars/4)
}

func describeEntry(w types.WorkEntry) string {
	parts := []string{w.Position()}
	if w.Company != "" {
		parts = append(parts, "at "+w.Company)
	}
	if w.Duration != "" {
		parts = append(parts, "("+w.Duration+")")
	}
	s := strings.Join(parts, " ")
	if w.Description != "" {
		s += ": " + w.Description
	}
	return s
}

func writeField(sb *strings.Builder, label, value string) {
	if value = strings.TrimSpace(value); value != "" {
		sb.WriteString(label + ": " + value + "\n")
	}
}

func writeList(sb *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(label + ":\n")
	writeBullets(sb, items)
}

func writeBullets(sb *strings.Builder, items []string) {
	for _, it := range items {
		sb.WriteString("- " + it + "\n")
	}
}

// rawFallback includes a payload that did not match the typed view as compact JSON.
func rawFallback(title string, raw json.RawMessage) string {
	if !types.HasPayload(raw) {
		return ""
	}
	var buf strings.Builder
	buf.WriteString(title + "\n")
	var v any
	if err := json.Unmarshal(raw, &v); err == nil {
		if b, err := json.Marshal(v); err == nil {
			buf.Write(b)
			return buf.String()
		}
	}
	buf.Write(raw)
	return buf.String()
}

func truncate(s string, maxChars int) string {
	if maxChars <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= maxChars {
		return s
	}
	return string(r[:maxChars]) + truncatedMarker
}

package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/interview-prep/internal/types"
)

const (
	boxWidth       = 60
	maxItemsToShow = 5
)

// Printer renders run summaries for the CLI.
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		if len([]rune(line)) > boxWidth-4 {
			line = string([]rune(line)[:boxWidth-7]) + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintStages lists the interview stages in order.
func (p *Printer) PrintStages(stages []types.InterviewStage) {
	if len(stages) == 0 {
		return
	}

	var sb strings.Builder
	for _, st := range stages {
		sb.WriteString(fmt.Sprintf("%d. %s", st.OrderIndex, st.Name))
		if st.Duration != "" {
			sb.WriteString(fmt.Sprintf(" (%s)", st.Duration))
		}
		sb.WriteString("\n")
	}
	p.printBox("INTERVIEW STAGES", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintQuestionCounts shows per-category counts in the fixed category order.
func (p *Printer) PrintQuestionCounts(questions types.QuestionSet) {
	var sb strings.Builder
	for _, c := range types.AllCategories() {
		sb.WriteString(fmt.Sprintf("%-18s %3d\n", c, questions.Count(c)))
	}
	sb.WriteString(fmt.Sprintf("%-18s %3d", "total", questions.Total()))
	p.printBox("PRACTICE QUESTIONS", sb.String())
}

// PrintSummary prints fit, priorities, stages, question counts and any warning.
func (p *Printer) PrintSummary(result *types.SynthesisResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Overall fit: %.0f/100\n", result.Comparison.OverallFitScore))
	sb.WriteString(fmt.Sprintf("Sources:     %s\n", strings.Join(result.Metadata.Sources, ", ")))
	if n := len(result.Guidance.Priorities); n > 0 {
		sb.WriteString("\nPriorities:\n")
		count := min(n, maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", result.Guidance.Priorities[i]))
		}
		if n > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", n-maxItemsToShow))
		}
	}
	if result.Metadata.Warning != "" {
		sb.WriteString(fmt.Sprintf("\nWarning: %s\n", result.Metadata.Warning))
	}
	p.printBox("RESEARCH SUMMARY", strings.TrimSuffix(sb.String(), "\n"))

	p.PrintStages(result.Stages)
	p.PrintQuestionCounts(result.Questions)
}

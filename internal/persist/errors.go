package persist

import (
	"fmt"
	"strings"

	"github.com/jonathan/interview-prep/internal/types"
)

// Persist steps named in WriteError.
const (
	StepCheckpoint = "checkpoint"
	StepArtifact   = "artifact"
	StepStages     = "stages"
	StepQuestions  = "questions"
	StepSearch     = "search"
)

// WriteError is a failed database write.
type WriteError struct {
	Step     string
	SearchID string
	Cause    error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("persist %s for search %s: %v", e.Step, e.SearchID, e.Cause)
}

func (e *WriteError) Unwrap() error {
	return e.Cause
}

// MappingError means questions of a category have no stage to attach to.
type MappingError struct {
	Category  types.Category
	Stage     int
	Available []int
}

func (e *MappingError) Error() string {
	avail := make([]string, len(e.Available))
	for i, n := range e.Available {
		avail[i] = fmt.Sprint(n)
	}
	if len(avail) == 0 {
		return fmt.Sprintf("cannot map %s questions: no interview stages", e.Category)
	}
	return fmt.Sprintf("cannot map %s questions: stage %d missing (have %s)", e.Category, e.Stage, strings.Join(avail, ", "))
}

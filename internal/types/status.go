package types

// SearchStatus is the lifecycle state of the parent search record.
type SearchStatus string

// Search statuses
const (
	SearchPending    SearchStatus = "pending"
	SearchProcessing SearchStatus = "processing"
	SearchCompleted  SearchStatus = "completed"
	SearchFailed     SearchStatus = "failed"
)

// IsTerminal reports whether pollers can stop waiting.
func (s SearchStatus) IsTerminal() bool {
	return s == SearchCompleted || s == SearchFailed
}

// ProcessingStatus is the state of the research artifact row.
type ProcessingStatus string

// Artifact processing statuses
const (
	ProcessingStarted      ProcessingStatus = "started"
	ProcessingRawDataSaved ProcessingStatus = "raw_data_saved"
	ProcessingComplete     ProcessingStatus = "complete"
	ProcessingError        ProcessingStatus = "error"
)

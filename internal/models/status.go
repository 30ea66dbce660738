package models

// Status is the document processing state. Transitions are strictly
// forward: uploaded → extracting → chunking → indexing → ready, with
// failed reachable from any non-terminal state.
type Status string

const (
	StatusUploaded   Status = "uploaded"
	StatusExtracting Status = "extracting"
	StatusChunking   Status = "chunking"
	StatusIndexing   Status = "indexing"
	StatusReady      Status = "ready"
	StatusFailed     Status = "failed"
)

var statusOrder = map[Status]int{
	StatusUploaded:   0,
	StatusExtracting: 1,
	StatusChunking:   2,
	StatusIndexing:   3,
	StatusReady:      4,
}

func (s Status) Valid() bool {
	if s == StatusFailed {
		return true
	}
	_, ok := statusOrder[s]
	return ok
}

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	return s == StatusReady || s == StatusFailed
}

// CanTransition reports whether moving from s to next is a legal step.
// Only single forward steps are allowed; failed is reachable from any
// non-terminal state and is itself terminal.
func (s Status) CanTransition(next Status) bool {
	if !s.Valid() || !next.Valid() || s.Terminal() {
		return false
	}
	if next == StatusFailed {
		return true
	}
	return statusOrder[next] == statusOrder[s]+1
}

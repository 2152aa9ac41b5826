package uploadsession

import (
	"time"

	"resume-builder/internal/documents"
)

// JobID identifies one server-side parse attempt. It is never a document id.
type JobID string

// DocumentID identifies a parsed, structured document.
type DocumentID string

// Status is the server-reported progress of an upload job.
type Status string

const (
	StatusUploaded Status = "uploaded"
	StatusParsing  Status = "parsing"
	StatusParsed   Status = "parsed"
	StatusFailed   Status = "failed"
)

// Terminal reports whether no further transitions happen for the job.
func (s Status) Terminal() bool {
	return s == StatusParsed || s == StatusFailed
}

// Known reports whether s is one of the four server statuses.
func (s Status) Known() bool {
	switch s {
	case StatusUploaded, StatusParsing, StatusParsed, StatusFailed:
		return true
	}
	return false
}

// UploadStatus is one poll response.
type UploadStatus struct {
	Job            JobID
	Status         Status
	ResultDocument DocumentID // set only when Status == StatusParsed
	ErrorDetail    string     // set only when Status == StatusFailed
}

// Phase names a controller state.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseUploading Phase = "uploading"
	PhasePolling   Phase = "polling"
	PhaseFetching  Phase = "fetching"
	PhaseHydrated  Phase = "hydrated"
	PhaseFailed    Phase = "failed"
)

// State is the controller's current state. Exactly one of the concrete
// types below is held at a time.
type State interface {
	Phase() Phase
	isState()
}

// Idle: no job in flight and no marker persisted.
type Idle struct{}

// Uploading: the file has been handed to the upload call.
type Uploading struct {
	FileName string
}

// Polling: Job is persisted in the session marker and its status is polled.
type Polling struct {
	Job   JobID
	Since time.Time
}

// Fetching: the session bundle for Document is being loaded.
type Fetching struct {
	Document DocumentID
}

// Hydrated: Session holds the form fields and transcript for Document.
type Hydrated struct {
	Document DocumentID
	Session  documents.Session
}

// Failed: terminal failure for the current document.
type Failed struct {
	Err *Error
}

func (Idle) Phase() Phase      { return PhaseIdle }
func (Uploading) Phase() Phase { return PhaseUploading }
func (Polling) Phase() Phase   { return PhasePolling }
func (Fetching) Phase() Phase  { return PhaseFetching }
func (Hydrated) Phase() Phase  { return PhaseHydrated }
func (Failed) Phase() Phase    { return PhaseFailed }

func (Idle) isState()      {}
func (Uploading) isState() {}
func (Polling) isState()   {}
func (Fetching) isState()  {}
func (Hydrated) isState()  {}
func (Failed) isState()    {}

// busy reports whether s owns an in-flight job or fetch.
func busy(s State) bool {
	switch s.(type) {
	case Uploading, Polling, Fetching:
		return true
	}
	return false
}

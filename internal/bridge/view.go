package bridge

import (
	"time"

	"resume-builder/internal/documents"
	"resume-builder/internal/uploadsession"
)

// StateView is the JSON rendering of a controller state.
type StateView struct {
	State        string             `json:"state"`
	FileName     string             `json:"fileName,omitempty"`
	JobID        string             `json:"jobId,omitempty"`
	PollingSince *time.Time         `json:"pollingSince,omitempty"`
	DocumentID   string             `json:"documentId,omitempty"`
	Session      *documents.Session `json:"session,omitempty"`
	ErrorKind    string             `json:"errorKind,omitempty"`
	ErrorMessage string             `json:"errorMessage,omitempty"`
	Retryable    bool               `json:"retryable,omitempty"`
}

// RenderState converts s to its view.
func RenderState(s uploadsession.State) StateView {
	view := StateView{State: string(s.Phase())}
	switch st := s.(type) {
	case uploadsession.Uploading:
		view.FileName = st.FileName
	case uploadsession.Polling:
		since := st.Since.UTC()
		view.JobID = string(st.Job)
		view.PollingSince = &since
	case uploadsession.Fetching:
		view.DocumentID = string(st.Document)
	case uploadsession.Hydrated:
		session := st.Session
		view.DocumentID = string(st.Document)
		view.Session = &session
	case uploadsession.Failed:
		view.JobID = string(st.Err.Job)
		view.DocumentID = string(st.Err.Document)
		view.ErrorKind = string(st.Err.Kind)
		view.ErrorMessage = st.Err.Error()
		view.Retryable = st.Err.Retryable()
	}
	return view
}

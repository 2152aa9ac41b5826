package documents

import "context"

// Repo stores document sessions by document id.
type Repo interface {
	Save(ctx context.Context, session Session) error
	Get(ctx context.Context, documentID string) (Session, error)
	AppendTranscript(ctx context.Context, documentID string, entries ...TranscriptEntry) error
}

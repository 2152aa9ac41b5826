package documents

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNormalizeOrdersTranscriptAndDedupesSkills(t *testing.T) {
	base := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	s := Session{
		DocumentID: "doc-1",
		Form: Form{
			Title:  "  Backend Engineer ",
			Skills: []string{"Go", " go", "", "SQL"},
		},
		Transcript: []TranscriptEntry{
			{Role: RoleAssistant, Content: "second", CreatedAt: base.Add(time.Minute)},
			{Role: RoleUser, Content: "first", CreatedAt: base},
		},
	}

	got := s.Normalize()
	if got.Form.Title != "Backend Engineer" {
		t.Fatalf("title not trimmed: %q", got.Form.Title)
	}
	if len(got.Form.Skills) != 2 || got.Form.Skills[0] != "Go" || got.Form.Skills[1] != "SQL" {
		t.Fatalf("unexpected skills: %v", got.Form.Skills)
	}
	if got.Transcript[0].Content != "first" {
		t.Fatalf("transcript not ordered: %+v", got.Transcript)
	}
	if s.Transcript[0].Content != "second" {
		t.Fatalf("normalize mutated the receiver")
	}
}

func TestValidateRejectsUnknownRole(t *testing.T) {
	s := Session{
		DocumentID: "doc-1",
		Transcript: []TranscriptEntry{{Role: "robot", Content: "hi"}},
	}
	if err := s.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	s.Transcript[0].Role = RoleUser
	if err := s.Validate(); err != nil {
		t.Fatalf("expected valid session, got %v", err)
	}
}

func TestMemoryRepoRoundTrip(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.Save(ctx, Session{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty id, got %v", err)
	}

	if err := repo.Save(ctx, Session{DocumentID: "doc-1", Form: Form{Title: "CV"}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := repo.AppendTranscript(ctx, "doc-1", TranscriptEntry{Role: RoleAssistant, Content: "Parsed your resume."}); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := repo.Get(ctx, "doc-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Form.Title != "CV" || len(got.Transcript) != 1 {
		t.Fatalf("unexpected session: %+v", got)
	}
	if got.Transcript[0].CreatedAt.IsZero() {
		t.Fatalf("expected CreatedAt to be stamped")
	}
}

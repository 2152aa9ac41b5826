package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-builder/internal/bridge"
	"resume-builder/internal/devapi"
	"resume-builder/internal/documents"
	"resume-builder/internal/extract/extracttest"
	"resume-builder/internal/shared/server/middleware"
	"resume-builder/internal/shared/storage/object/local"
)

func startDevAPI(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := devapi.NewService(local.New(t.TempDir()), documents.NewMemoryRepo(), 1)
	t.Cleanup(func() { _ = svc.Close(context.Background()) })

	r := gin.New()
	r.Use(middleware.Auth())
	devapi.NewHandler(svc, time.Millisecond, 0).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv.URL
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func TestUploadThenLastAndStatus(t *testing.T) {
	apiURL := startDevAPI(t)
	stateDir := t.TempDir()
	common := []string{"--api-url", apiURL, "--state-dir", stateDir, "--guest", "g1", "--poll-interval", "10ms"}

	file := filepath.Join(t.TempDir(), "ada.pdf")
	require.NoError(t, os.WriteFile(file, extracttest.PDF("Ada Lovelace", "Backend Engineer"), 0o644))

	out, err := run(t, append([]string{"upload", file}, common...)...)
	require.NoError(t, err)
	var view bridge.StateView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "hydrated", view.State)
	require.NotNil(t, view.Session)
	assert.Contains(t, view.Session.Form.Profile.FullName, "Ada")

	out, err = run(t, append([]string{"status"}, common...)...)
	require.NoError(t, err)
	var status statusView
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Empty(t, status.PendingJobID)
	assert.Equal(t, view.DocumentID, status.LastDocument)
	assert.Equal(t, "guest:g1", status.Owner)

	out, err = run(t, append([]string{"last"}, common...)...)
	require.NoError(t, err)
	var reopened bridge.StateView
	require.NoError(t, json.Unmarshal([]byte(out), &reopened))
	assert.Equal(t, "hydrated", reopened.State)
	assert.Equal(t, view.DocumentID, reopened.DocumentID)
}

func TestUploadRejectsNonPDF(t *testing.T) {
	apiURL := startDevAPI(t)
	file := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(file, []byte("hello"), 0o644))

	_, err := run(t, "upload", file, "--api-url", apiURL, "--state-dir", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only PDF")
}

func TestResumeWithoutPendingUpload(t *testing.T) {
	apiURL := startDevAPI(t)
	out, err := run(t, "resume", "--api-url", apiURL, "--state-dir", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, `"idle"`)
}

func TestLastWithoutHistory(t *testing.T) {
	apiURL := startDevAPI(t)
	_, err := run(t, "last", "--api-url", apiURL, "--state-dir", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no document")
}

func TestOpenUnknownDocumentFails(t *testing.T) {
	apiURL := startDevAPI(t)
	out, err := run(t, "open", "nope", "--api-url", apiURL, "--state-dir", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, out, `"failed"`)
}

func TestResetClearsMarkerWithoutContactingAPI(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "unexpected", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	stateDir := t.TempDir()
	seed := &rootOptions{store: "file", stateDir: stateDir, guestID: "g1", sessionID: "default"}
	binding, err := seed.binding(context.Background())
	require.NoError(t, err)
	require.NoError(t, binding.SaveMarker(context.Background(), "job-9"))
	require.NoError(t, binding.SaveLastDocument(context.Background(), "doc-3"))

	common := []string{"--api-url", srv.URL, "--state-dir", stateDir, "--guest", "g1"}
	out, err := run(t, append([]string{"reset"}, common...)...)
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"idle"}`, out)

	out, err = run(t, append([]string{"status"}, common...)...)
	require.NoError(t, err)
	var status statusView
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Empty(t, status.PendingJobID)
	assert.Equal(t, "doc-3", status.LastDocument)
	assert.Zero(t, hits.Load())
}

func TestOwnerIDUsesTokenHash(t *testing.T) {
	opts := &rootOptions{token: "secret", guestID: "g"}
	assert.NotContains(t, opts.ownerID(), "secret")
	assert.Contains(t, opts.ownerID(), "user:")

	opts.token = ""
	assert.Equal(t, "guest:g", opts.ownerID())
}

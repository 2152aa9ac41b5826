package devapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-builder/internal/advisorapi"
	"resume-builder/internal/extract/extracttest"
	"resume-builder/internal/markers"
	"resume-builder/internal/shared/server/middleware"
	"resume-builder/internal/uploadsession"
)

func newTestServer(t *testing.T, pollWindow time.Duration) (*Service, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := newTestService(t)
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Auth())
	NewHandler(svc, pollWindow, 1<<20).RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return svc, srv
}

func newTestClient(t *testing.T, srv *httptest.Server, guestID string) *advisorapi.Client {
	t.Helper()
	client, err := advisorapi.NewClient(advisorapi.Options{BaseURL: srv.URL, GuestID: guestID, Timeout: 5 * time.Second})
	require.NoError(t, err)
	return client
}

func TestClientRoundTrip(t *testing.T) {
	svc, srv := newTestServer(t, time.Millisecond)
	client := newTestClient(t, srv, "g1")
	ctx := context.Background()

	jobID, err := client.UploadDocument(ctx, uploadsession.File{
		Name: "ada.pdf",
		Data: extracttest.PDF("Ada Lovelace", "Backend Engineer"),
	})
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	waitJob(t, svc, string(jobID))

	status, err := client.GetUploadStatus(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, uploadsession.StatusParsed, status.Status)
	require.NotEmpty(t, status.ResultDocument)

	session, err := client.GetDocumentSession(ctx, status.ResultDocument)
	require.NoError(t, err)
	assert.Equal(t, string(status.ResultDocument), session.DocumentID)
	assert.Contains(t, session.Form.Profile.FullName, "Ada")
	assert.Equal(t, "Backend Engineer", session.Form.Title)
}

func TestUploadRejectsNonPDFContent(t *testing.T) {
	_, srv := newTestServer(t, time.Millisecond)
	client := newTestClient(t, srv, "g1")

	_, err := client.UploadDocument(context.Background(), uploadsession.File{
		Name: "resume.pdf",
		Data: []byte("plain text pretending to be a pdf"),
	})
	var apiErr *advisorapi.APIError
	require.True(t, errors.As(err, &apiErr), "expected APIError, got %v", err)
	assert.Equal(t, http.StatusUnsupportedMediaType, apiErr.StatusCode)
	assert.Equal(t, "unsupported_media_type", apiErr.Code)
}

func TestUploadRejectsOversizeFile(t *testing.T) {
	_, srv := newTestServer(t, time.Millisecond)
	client := newTestClient(t, srv, "g1")

	data := append([]byte("%PDF-1.4\n"), []byte(strings.Repeat("x", 1<<20))...)
	_, err := client.UploadDocument(context.Background(), uploadsession.File{Name: "big.pdf", Data: data})
	var apiErr *advisorapi.APIError
	require.True(t, errors.As(err, &apiErr), "expected APIError, got %v", err)
	assert.Equal(t, http.StatusRequestEntityTooLarge, apiErr.StatusCode)
}

func TestStatusPollIsRateLimited(t *testing.T) {
	_, srv := newTestServer(t, time.Minute)
	client := newTestClient(t, srv, "g1")
	ctx := context.Background()

	_, err := client.GetUploadStatus(ctx, "missing-job")
	assert.True(t, advisorapi.IsNotFound(err), "expected 404, got %v", err)

	_, err = client.GetUploadStatus(ctx, "missing-job")
	var apiErr *advisorapi.APIError
	require.True(t, errors.As(err, &apiErr), "expected APIError, got %v", err)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, 60*time.Second, apiErr.RetryAfter)
	assert.True(t, apiErr.Temporary())
}

func TestStatusIsOwnerScoped(t *testing.T) {
	svc, srv := newTestServer(t, time.Millisecond)
	ctx := context.Background()

	jobID, err := newTestClient(t, srv, "g1").UploadDocument(ctx, uploadsession.File{
		Name: "ada.pdf",
		Data: extracttest.PDF("Ada Lovelace"),
	})
	require.NoError(t, err)
	waitJob(t, svc, string(jobID))

	_, err = newTestClient(t, srv, "g2").GetUploadStatus(ctx, jobID)
	assert.True(t, advisorapi.IsNotFound(err), "expected 404 for another guest, got %v", err)
}

func TestControllerAgainstDevBackend(t *testing.T) {
	_, srv := newTestServer(t, time.Millisecond)
	client := newTestClient(t, srv, "g1")
	store := markers.NewMemoryStore()
	binding := markers.Bind(store, "tab-1", "guest:g1")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ctrl := uploadsession.New(ctx, client, binding,
		uploadsession.WithPollInterval(10*time.Millisecond),
		uploadsession.WithLastDocumentStore(binding),
	)
	defer ctrl.Teardown()

	err := ctrl.StartUpload(ctx, uploadsession.File{
		Name: "ada.pdf",
		Data: extracttest.PDF("Ada Lovelace", "Backend Engineer"),
	})
	require.NoError(t, err)

	st, err := ctrl.Wait(ctx)
	require.NoError(t, err)
	hydrated, ok := st.(uploadsession.Hydrated)
	require.True(t, ok, "expected hydrated, got %#v", st)
	assert.Contains(t, hydrated.Session.Form.Profile.FullName, "Ada")

	_, pending, err := binding.LoadMarker(ctx)
	require.NoError(t, err)
	assert.False(t, pending, "marker should be cleared after hydration")

	last, ok, err := binding.LastDocument(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, hydrated.Document, last)
}

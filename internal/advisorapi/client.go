// Package advisorapi is the HTTP client for the resume advisor backend:
// document upload, upload status polling and document session fetch.
package advisorapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"resume-builder/internal/documents"
	"resume-builder/internal/uploadsession"
)

const maxResponseBytes = 4 << 20

// Options configures a Client.
type Options struct {
	BaseURL string
	// Token, when set, is sent as a bearer token.
	Token   string
	GuestID string
	Timeout time.Duration
	// HTTPClient overrides the transport, e.g. in tests.
	HTTPClient *http.Client
}

// Client implements uploadsession.API over HTTP.
type Client struct {
	baseURL    *url.URL
	guestID    string
	httpClient *http.Client
}

// NewClient constructs a client for the backend at opts.BaseURL.
func NewClient(opts Options) (*Client, error) {
	raw := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if raw == "" {
		return nil, fmt.Errorf("ADVISOR_API_URL is required")
	}
	base, err := url.Parse(raw)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid advisor api url %q", opts.BaseURL)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	if token := strings.TrimSpace(opts.Token); token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		authed := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))
		authed.Timeout = httpClient.Timeout
		httpClient = authed
	}

	return &Client{
		baseURL:    base,
		guestID:    strings.TrimSpace(opts.GuestID),
		httpClient: httpClient,
	}, nil
}

// ForGuest returns a copy of c that identifies as guestID.
func (c *Client) ForGuest(guestID string) *Client {
	clone := *c
	clone.guestID = strings.TrimSpace(guestID)
	return &clone
}

// UploadDocument posts file as multipart form data and returns the job id.
func (c *Client) UploadDocument(ctx context.Context, file uploadsession.File) (uploadsession.JobID, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/pdf"
	}
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, FileField, file.Name))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(file.Data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := c.newRequest(ctx, http.MethodPost, UploadsPath, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var accepted UploadAccepted
	if err := c.do(req, &accepted); err != nil {
		return "", err
	}
	if err := validate.Struct(accepted); err != nil {
		return "", fmt.Errorf("upload response: %w", err)
	}
	return uploadsession.JobID(accepted.JobID), nil
}

// GetUploadStatus fetches the current status of job.
func (c *Client) GetUploadStatus(ctx context.Context, job uploadsession.JobID) (uploadsession.UploadStatus, error) {
	path := strings.Replace(UploadStatusPath, ":jobId", url.PathEscape(string(job)), 1)
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return uploadsession.UploadStatus{}, err
	}

	var body UploadStatusBody
	if err := c.do(req, &body); err != nil {
		return uploadsession.UploadStatus{}, err
	}
	if err := validate.Struct(body); err != nil {
		return uploadsession.UploadStatus{}, fmt.Errorf("status response: %w", err)
	}
	return uploadsession.UploadStatus{
		Job:            uploadsession.JobID(body.JobID),
		Status:         uploadsession.Status(body.Status),
		ResultDocument: uploadsession.DocumentID(body.ResultDocumentID),
		ErrorDetail:    body.ErrorDetail,
	}, nil
}

// GetDocumentSession fetches the form fields and transcript of document.
func (c *Client) GetDocumentSession(ctx context.Context, document uploadsession.DocumentID) (documents.Session, error) {
	path := strings.Replace(DocumentSessionPath, ":documentId", url.PathEscape(string(document)), 1)
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return documents.Session{}, err
	}

	var session SessionBody
	if err := c.do(req, &session); err != nil {
		return documents.Session{}, err
	}
	if err := session.Validate(); err != nil {
		return documents.Session{}, fmt.Errorf("session response: %w", err)
	}
	return session, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.guestID != "" {
		req.Header.Set(GuestHeader, c.guestID)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return fmt.Errorf("advisor api request timeout: %w", err)
		}
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("advisor api response parse: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response, body []byte) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var envelope ErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	if raw := resp.Header.Get("Retry-After"); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
			apiErr.RetryAfter = time.Duration(secs) * time.Second
		}
	}
	return apiErr
}

var _ uploadsession.API = (*Client)(nil)

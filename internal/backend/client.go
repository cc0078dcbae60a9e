// Package backend is the HTTP client for the OCR/verification service.
// Every method returns the raw response body; decoding lives in the
// extraction package.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/joseph-ayodele/ocr-dashboard/constants"
	"github.com/joseph-ayodele/ocr-dashboard/internal/common"
	"github.com/joseph-ayodele/ocr-dashboard/internal/entity"
)

// AccessTokenCookie carries the backend session.
const AccessTokenCookie = "access_token"

// Client talks to the OCR backend.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds every call. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithToken sets the access token used when the context carries no cookies.
func WithToken(token string) Option {
	return func(c *Client) { c.token = bearer(token) }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient builds a client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

// Token returns the access token cookie value, if any.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func bearer(token string) string {
	token = strings.TrimSpace(token)
	if token == "" || strings.HasPrefix(token, "Bearer ") {
		return token
	}
	return "Bearer " + token
}

// Upload posts files as multipart form fields named by their slot.
func (c *Client) Upload(ctx context.Context, mode constants.Mode, files []entity.File) ([]byte, error) {
	path := mode.UploadPath()
	if path == "" {
		return nil, common.NewAppError("INVALID_MODE", fmt.Sprintf("unknown mode %q", mode), common.ErrInvalidInput)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.Slot, f.Name))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, fmt.Errorf("multipart %s: %w", f.Slot, err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, fmt.Errorf("multipart %s: %w", f.Slot, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("multipart close: %w", err)
	}

	return c.send(ctx, request{
		method:      http.MethodPost,
		path:        path,
		contentType: mw.FormDataContentType(),
		body:        buf.Bytes(),
	})
}

type updateRequest struct {
	ExtractedData entity.Record  `json:"extracted_data"`
	DocType       constants.Mode `json:"doc_type"`
}

// UpdateRecord persists an edited record under id.
func (c *Client) UpdateRecord(ctx context.Context, id string, record entity.Record, mode constants.Mode) ([]byte, error) {
	if strings.TrimSpace(id) == "" {
		return nil, common.NewAppError("INVALID_ID", "record id is required", common.ErrInvalidInput)
	}
	b, err := json.Marshal(updateRequest{ExtractedData: record, DocType: mode})
	if err != nil {
		return nil, fmt.Errorf("encode update: %w", err)
	}
	return c.send(ctx, request{
		method:      http.MethodPut,
		path:        "/ocr/update/" + url.PathEscape(id),
		contentType: "application/json",
		body:        b,
	})
}

// Export asks the backend to convert payload into format.
func (c *Client) Export(ctx context.Context, format constants.ExportFormat, payload any) ([]byte, error) {
	path := format.BackendPath()
	if path == "" {
		return nil, common.NewAppError("INVALID_FORMAT", fmt.Sprintf("format %q is not converted remotely", format), common.ErrInvalidInput)
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}
	return c.send(ctx, request{
		method:      http.MethodPost,
		path:        path,
		contentType: "application/json",
		body:        b,
	})
}

func (c *Client) History(ctx context.Context) ([]byte, error) {
	return c.send(ctx, request{method: http.MethodGet, path: "/ocr/history"})
}

func (c *Client) GetRecord(ctx context.Context, id string) ([]byte, error) {
	if strings.TrimSpace(id) == "" {
		return nil, common.NewAppError("INVALID_ID", "record id is required", common.ErrInvalidInput)
	}
	return c.send(ctx, request{method: http.MethodGet, path: "/ocr/record/" + url.PathEscape(id)})
}

// Login exchanges credentials for the access_token cookie and keeps it for
// later calls. The backend answers a good login with a redirect carrying
// the cookie and a bad one with the login page.
func (c *Client) Login(ctx context.Context, email, password string) error {
	form := url.Values{"email": {email}, "password": {password}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	noRedirect := *c.http
	noRedirect.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	start := time.Now()
	resp, err := noRedirect.Do(req)
	if err != nil {
		c.logger.Error("backend.login.send_error", "error", err)
		return common.NewAppError("TRANSPORT_ERROR", err.Error(), fmt.Errorf("%w: %v", common.ErrTransport, err))
	}
	defer resp.Body.Close()

	for _, ck := range resp.Cookies() {
		if ck.Name == AccessTokenCookie && ck.Value != "" {
			c.mu.Lock()
			c.token = bearer(ck.Value)
			c.mu.Unlock()
			c.logger.Info("backend.login.ok", "status", resp.StatusCode, "elapsed_ms", time.Since(start).Milliseconds())
			return nil
		}
	}
	c.logger.Warn("backend.login.rejected", "status", resp.StatusCode)
	if resp.StatusCode/100 != 2 && resp.StatusCode/100 != 3 {
		return &common.HTTPStatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return common.NewAppError("LOGIN_FAILED", "Invalid email or password", common.ErrValidation)
}

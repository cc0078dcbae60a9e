package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/ocr-dashboard/internal/common"
)

// request is one backend call. body is sent as-is with contentType.
type request struct {
	method      string
	path        string
	contentType string
	body        []byte
}

// send issues req and returns the raw body. Non-2xx responses return a
// *common.HTTPStatusError along with the body.
func (c *Client) send(ctx context.Context, req request) ([]byte, error) {
	reqID := common.RequestIDFromContext(ctx)
	if reqID == "" {
		reqID = uuid.New().String()
	}
	start := time.Now()
	url := c.baseURL + req.path

	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, url, body)
	if err != nil {
		c.logger.Error("backend.http.build_request_error", "req_id", reqID, "error", err)
		return nil, fmt.Errorf("build request: %w", err)
	}
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	httpReq.Header.Set("X-Request-ID", reqID)
	c.attachCredentials(ctx, httpReq)

	c.logger.Info("backend.http.request",
		"req_id", reqID,
		"method", req.method,
		"path", req.path,
		"content_length", len(req.body),
	)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Error("backend.http.send_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, common.NewAppError("TRANSPORT_ERROR", err.Error(), fmt.Errorf("%w: %v", common.ErrTransport, err))
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.logger.Warn("backend.http.response_body_close_error", "req_id", reqID, "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("backend.http.read_error", "req_id", reqID, "error", err)
		return nil, common.NewAppError("TRANSPORT_ERROR", err.Error(), fmt.Errorf("%w: %v", common.ErrTransport, err))
	}

	c.logger.Info("backend.http.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return raw, &common.HTTPStatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: raw}
	}
	return raw, nil
}

// attachCredentials forwards the caller's cookies, falling back to the
// client's own access token.
func (c *Client) attachCredentials(ctx context.Context, req *http.Request) {
	forwarded := common.CookiesFromContext(ctx)
	hasToken := false
	for _, ck := range forwarded {
		if ck.Name == AccessTokenCookie {
			hasToken = true
		}
		req.AddCookie(ck)
	}
	if hasToken {
		return
	}
	if tok := c.Token(); tok != "" {
		req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: tok})
	}
}

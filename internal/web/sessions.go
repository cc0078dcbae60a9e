package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/ocr-dashboard/internal/common"
	"github.com/joseph-ayodele/ocr-dashboard/internal/dashboard"
)

// Registry maps session ids to controllers. A controller seen for the first
// time is restored from the session store, if one is configured.
type Registry struct {
	cookie string
	deps   dashboard.Deps
	logger *slog.Logger

	mu          sync.Mutex
	controllers map[string]*dashboard.Controller
}

func NewRegistry(cookie string, deps dashboard.Deps, logger *slog.Logger) *Registry {
	return &Registry{
		cookie:      cookie,
		deps:        deps,
		logger:      logger,
		controllers: make(map[string]*dashboard.Controller),
	}
}

// Len is the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.controllers)
}

// Controller returns the caller's controller, issuing a new session cookie
// when the request has none or an invalid one.
func (r *Registry) Controller(w http.ResponseWriter, req *http.Request) *dashboard.Controller {
	id := ""
	if ck, err := req.Cookie(r.cookie); err == nil {
		if _, err := uuid.Parse(ck.Value); err == nil {
			id = ck.Value
		}
	}
	if id == "" {
		id = uuid.New().String()
		http.SetCookie(w, &http.Cookie{
			Name:     r.cookie,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		r.logger.Info("web.session.created", "session_id", id)
	}
	return r.get(req.Context(), id)
}

func (r *Registry) get(ctx context.Context, id string) *dashboard.Controller {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.controllers[id]; ok {
		return c
	}
	c := dashboard.New(id, r.deps)
	if err := c.Restore(ctx); err != nil && !errors.Is(err, common.ErrNotFound) {
		r.logger.Warn("web.session.restore_error", "session_id", id, "error", err)
	}
	r.controllers[id] = c
	return c
}

// backendContext carries the browser's cookies, except the dashboard's own
// session cookie, to backend calls.
func (r *Registry) backendContext(req *http.Request, sessionID string) context.Context {
	var forward []*http.Cookie
	for _, ck := range req.Cookies() {
		if ck.Name != r.cookie {
			forward = append(forward, ck)
		}
	}
	ctx := common.WithSessionID(req.Context(), sessionID)
	return common.WithCookies(ctx, forward)
}

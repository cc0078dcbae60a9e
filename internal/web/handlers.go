package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/joseph-ayodele/ocr-dashboard/constants"
	"github.com/joseph-ayodele/ocr-dashboard/internal/common"
	"github.com/joseph-ayodele/ocr-dashboard/internal/dashboard"
	"github.com/joseph-ayodele/ocr-dashboard/internal/editform"
	"github.com/joseph-ayodele/ocr-dashboard/internal/entity"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "healthy",
		"sessions": s.sessions.Len(),
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	c := s.sessions.Controller(w, r)
	s.renderPage(w, r, http.StatusOK, c, nil)
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	c := s.sessions.Controller(w, r)
	if err := c.SelectMode(r.Context(), r.FormValue("mode")); err != nil {
		s.renderError(w, r, c, err)
		return
	}
	s.renderPage(w, r, http.StatusOK, c, nil)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	c := s.sessions.Controller(w, r)
	if err := s.stageFiles(w, r, c); err != nil {
		s.renderError(w, r, c, err)
		return
	}
	c.Preview(r.Context())
	s.renderPage(w, r, http.StatusOK, c, nil)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	c := s.sessions.Controller(w, r)
	if err := s.stageFiles(w, r, c); err != nil {
		s.renderError(w, r, c, err)
		return
	}
	if _, err := c.Submit(s.sessions.backendContext(r, c.ID())); err != nil {
		s.renderError(w, r, c, err)
		return
	}
	s.renderPage(w, r, http.StatusOK, c, nil)
}

func (s *Server) handleEditForm(w http.ResponseWriter, r *http.Request) {
	c := s.sessions.Controller(w, r)
	form, err := c.EditForm()
	if err != nil {
		s.renderPage(w, r, http.StatusOK, c, []dashboard.Notice{{Level: "warning", Text: common.UserMessage(err)}})
		return
	}
	s.renderForm(w, r, http.StatusOK, c, &form, nil)
}

func (s *Server) handleSaveEdits(w http.ResponseWriter, r *http.Request) {
	c := s.sessions.Controller(w, r)
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, c, common.NewAppError("BAD_FORM", "Could not read the submitted form", common.ErrInvalidInput))
		return
	}
	values := make(map[string]string, len(r.PostForm))
	for k, v := range r.PostForm {
		if len(v) > 0 {
			values[k] = v[0]
		}
	}

	res, err := c.SaveEdits(s.sessions.backendContext(r, c.ID()), values)
	if err != nil {
		if errors.Is(err, common.ErrNoSnapshot) {
			s.renderPage(w, r, http.StatusOK, c, []dashboard.Notice{{Level: "warning", Text: common.UserMessage(err)}})
			return
		}
		s.renderError(w, r, c, err)
		return
	}
	s.renderPage(w, r, http.StatusOK, c, res.Notices)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	c := s.sessions.Controller(w, r)
	format, err := constants.ParseExportFormat(r.PathValue("format"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	f, err := c.Export(s.sessions.backendContext(r, c.ID()), format)
	if err != nil {
		s.renderError(w, r, c, err)
		return
	}
	w.Header().Set("Content-Type", f.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Name))
	w.Header().Set("Content-Length", fmt.Sprint(len(f.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(f.Data); err != nil {
		s.logger.Warn("web.export.write_error", "format", string(format), "error", err)
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	c := s.sessions.Controller(w, r)
	if _, err := c.History(s.sessions.backendContext(r, c.ID())); err != nil {
		s.renderError(w, r, c, err)
		return
	}
	s.renderPage(w, r, http.StatusOK, c, nil)
}

func (s *Server) handleLoadRecord(w http.ResponseWriter, r *http.Request) {
	c := s.sessions.Controller(w, r)
	if _, err := c.LoadRecord(s.sessions.backendContext(r, c.ID()), r.PathValue("id")); err != nil {
		s.renderError(w, r, c, err)
		return
	}
	s.renderPage(w, r, http.StatusOK, c, nil)
}

// stageFiles reads the mode's file inputs from a multipart body and stages
// every one that was filled in. Requests without a multipart body stage
// nothing.
func (s *Server) stageFiles(w http.ResponseWriter, r *http.Request, c *dashboard.Controller) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil
		}
		return common.NewAppError("BAD_UPLOAD", "Could not read the selected files", fmt.Errorf("%w: %v", common.ErrInvalidInput, err))
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			s.logger.Warn("web.upload.cleanup_error", "error", err)
		}
	}()

	for _, slot := range c.View().Mode.Slots() {
		fh, hdr, err := r.FormFile(slot)
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			return common.NewAppError("BAD_UPLOAD", "Could not read the selected files", fmt.Errorf("%w: %v", common.ErrInvalidInput, err))
		}
		data, err := io.ReadAll(fh)
		fh.Close()
		if err != nil {
			return common.NewAppError("BAD_UPLOAD", "Could not read the selected files", fmt.Errorf("%w: %v", common.ErrInvalidInput, err))
		}
		if len(data) == 0 {
			continue
		}
		ct := hdr.Header.Get("Content-Type")
		if ct == "" || ct == "application/octet-stream" {
			ct = http.DetectContentType(data)
		}
		if err := c.SelectFile(slot, entity.File{Name: hdr.Filename, ContentType: ct, Data: data}); err != nil {
			return err
		}
	}
	return nil
}

// renderError shows err as a danger alert. Superseded responses are not
// shown at all.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, c *dashboard.Controller, err error) {
	if errors.Is(err, common.ErrSuperseded) {
		s.renderPage(w, r, http.StatusOK, c, nil)
		return
	}
	s.renderPage(w, r, statusFor(err), c, []dashboard.Notice{{Level: "danger", Text: common.UserMessage(err)}})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrValidation), errors.Is(err, common.ErrInvalidInput), errors.Is(err, common.ErrPathNotFound):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrNoSnapshot):
		return http.StatusConflict
	case errors.Is(err, common.ErrTransport), errors.Is(err, common.ErrDecode):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, c *dashboard.Controller, alerts []dashboard.Notice) {
	s.renderForm(w, r, status, c, nil, alerts)
}

func (s *Server) renderForm(w http.ResponseWriter, r *http.Request, status int, c *dashboard.Controller, form *editform.Form, alerts []dashboard.Notice) {
	data := page{
		View:    c.View(),
		Modes:   constants.AllModes,
		Formats: constants.AllExportFormats,
		Alerts:  alerts,
		Form:    form,
	}
	var buf bytes.Buffer
	if err := s.pages.ExecuteTemplate(&buf, "page", data); err != nil {
		s.logger.Error("web.render.error", "req_id", common.RequestIDFromContext(r.Context()), "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Warn("web.render.write_error", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

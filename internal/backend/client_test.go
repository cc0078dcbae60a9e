package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/ocr-dashboard/constants"
	"github.com/joseph-ayodele/ocr-dashboard/internal/common"
	"github.com/joseph-ayodele/ocr-dashboard/internal/entity"
)

func TestUpload_MultipartFields(t *testing.T) {
	var gotPath string
	var front, back []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, _, err := r.FormFile("front")
		require.NoError(t, err)
		front, _ = io.ReadAll(f)
		b, _, err := r.FormFile("back")
		require.NoError(t, err)
		back, _ = io.ReadAll(b)
		_, _ = w.Write([]byte(`{"extracted_data":{}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/")
	body, err := c.Upload(context.Background(), constants.ModeCIN, []entity.File{
		{Slot: constants.SlotFront, Name: "f.png", ContentType: "image/png", Data: []byte("FRONT")},
		{Slot: constants.SlotBack, Name: "b.png", ContentType: "image/png", Data: []byte("BACK")},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"extracted_data":{}}`, string(body))
	assert.Equal(t, "/ocr/upload/cin", gotPath)
	assert.Equal(t, "FRONT", string(front))
	assert.Equal(t, "BACK", string(back))
}

func TestSend_Non2xxIsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"boom"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Upload(context.Background(), constants.ModePassport, []entity.File{
		{Slot: constants.SlotFile, Name: "p.jpg", Data: []byte("x")},
	})
	require.Error(t, err)

	var statusErr *common.HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, 500, statusErr.StatusCode)
	assert.Equal(t, "HTTP 500: Internal Server Error", err.Error())
	assert.True(t, errors.Is(err, common.ErrTransport))
}

func TestSend_ConnectionRefusedIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url).History(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrTransport)
}

func TestUpdateRecord_Body(t *testing.T) {
	var got map[string]any
	var method, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	rec := entity.NewFlatRecord(entity.Field{Key: "name", Value: "Sara"})
	_, err := NewClient(srv.URL).UpdateRecord(context.Background(), "abc123", rec, constants.ModePassport)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/ocr/update/abc123", path)
	assert.Equal(t, "passport", got["doc_type"])
	assert.Equal(t, map[string]any{"name": "Sara"}, got["extracted_data"])
}

func TestUpdateRecord_RequiresID(t *testing.T) {
	_, err := NewClient("http://127.0.0.1:1").UpdateRecord(context.Background(), " ", entity.NewFlatRecord(), constants.ModeCIN)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestExport_PostsPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ocr/export/csv", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte("Field,Value\nname,Sara\n"))
	}))
	defer srv.Close()

	body, err := NewClient(srv.URL).Export(context.Background(), constants.ExportCSV, map[string]any{"extracted_data": map[string]any{}})
	require.NoError(t, err)
	assert.Equal(t, "Field,Value\nname,Sara\n", string(body))

	_, err = NewClient(srv.URL).Export(context.Background(), constants.ExportJSON, nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestCredentials(t *testing.T) {
	var cookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ck, err := r.Cookie(AccessTokenCookie); err == nil {
			cookie = ck.Value
		}
		_, _ = w.Write([]byte(`{"history":[]}`))
	}))
	defer srv.Close()

	t.Run("token option", func(t *testing.T) {
		cookie = ""
		_, err := NewClient(srv.URL, WithToken("jwt")).History(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "Bearer jwt", cookie)
	})

	t.Run("forwarded cookie wins", func(t *testing.T) {
		cookie = ""
		ctx := common.WithCookies(context.Background(), []*http.Cookie{{Name: AccessTokenCookie, Value: "Bearer browser"}})
		_, err := NewClient(srv.URL, WithToken("jwt")).History(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Bearer browser", cookie)
	})
}

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("password") != "secret" {
			_, _ = w.Write([]byte("<html>Invalid email or password</html>"))
			return
		}
		http.SetCookie(w, &http.Cookie{Name: AccessTokenCookie, Value: "Bearer tok123"})
		http.Redirect(w, r, "/sara/dashboard", http.StatusSeeOther)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	require.NoError(t, c.Login(context.Background(), "sara@example.com", "secret"))
	assert.Equal(t, "Bearer tok123", c.Token())

	bad := NewClient(srv.URL)
	err := bad.Login(context.Background(), "sara@example.com", "wrong")
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Empty(t, bad.Token())
}

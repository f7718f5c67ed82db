package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"p9e.in/veritrace/pkg/declaration"
	"p9e.in/veritrace/pkg/session"
	"p9e.in/veritrace/pkg/store"
)

func TestFailStatus(t *testing.T) {
	a := NewAPI(Deps{Log: zap.NewNop()})

	tests := []struct {
		err    error
		status int
		body   string
	}{
		{session.ErrNotFound, http.StatusNotFound, `{"error":"session not found"}`},
		{fmt.Errorf("load: %w", store.ErrNotFound), http.StatusNotFound, ""},
		{session.ErrForbidden, http.StatusForbidden, `{"error":"session belongs to another user"}`},
		{errors.New("connection reset"), http.StatusInternalServerError, `{"error":"internal error"}`},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		a.fail(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)
		assert.Equal(t, tt.status, rec.Code, tt.err.Error())
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		if tt.body != "" {
			assert.JSONEq(t, tt.body, rec.Body.String())
		}
	}
}

func TestFailRequestUsesClientStatus(t *testing.T) {
	a := NewAPI(Deps{Log: zap.NewNop()})
	rec := httptest.NewRecorder()
	a.failRequest(rec, httptest.NewRequest(http.MethodGet, "/", nil),
		&requestError{status: http.StatusUnprocessableEntity, msg: "bad plot", details: []string{"latitude out of range"}})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.JSONEq(t, `{"error":"bad plot","details":["latitude out of range"]}`, rec.Body.String())
}

func fileHeader(t *testing.T, name, contentType string, body []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="files"; filename="`+name+`"`)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(body)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	form, err := multipart.NewReader(&buf, mw.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["files"][0]
}

func TestContentType(t *testing.T) {
	pdf := []byte("%PDF-1.7\n")
	tests := []struct {
		name     string
		declared string
		body     []byte
		want     string
	}{
		{"declared", "application/pdf", pdf, "application/pdf"},
		{"declared with params", "text/plain; charset=utf-8", []byte("notes"), "text/plain"},
		{"missing", "", pdf, "application/pdf"},
		{"octet-stream", "application/octet-stream", []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00"), "image/jpeg"},
		{"sniffed text drops charset", "", []byte("plain notes"), "text/plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fh := fileHeader(t, "file", tt.declared, tt.body)
			assert.Equal(t, tt.want, contentType(fh))
		})
	}
}

func TestDocumentSizes(t *testing.T) {
	sizes := documentSizes([]declaration.DocumentFile{
		{ID: "a", Size: 512},
		{ID: "b", Size: 1536},
		{ID: "c", Size: 5 * 1024 * 1024},
	})
	assert.Equal(t, map[string]string{"a": "512 Bytes", "b": "1.5 KB", "c": "5 MB"}, sizes)
}

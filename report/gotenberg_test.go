package report

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderHTMLPostsMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/forms/chromium/convert/html", r.URL.Path)
		file, header, err := r.FormFile("files")
		require.NoError(t, err)
		assert.Equal(t, "index.html", header.Filename)
		content, _ := io.ReadAll(file)
		assert.Equal(t, "<h1>P/L</h1>", string(content))
		_, _ = w.Write([]byte("%PDF-1.7"))
	}))
	defer srv.Close()

	pdf, err := NewClient(srv.URL + "/").RenderHTML(context.Background(), []byte("<h1>P/L</h1>"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(pdf))
}

func TestRenderHTMLSurfacesErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "chromium crashed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).RenderHTML(context.Background(), []byte("x"))
	require.ErrorContains(t, err, "chromium crashed")

	_, err = NewClient("").RenderHTML(context.Background(), []byte("x"))
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestHealthHandler(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	rr := httptest.NewRecorder()
	NewHandler(NewClient(srv.URL), slog.Default()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz/pdf", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	NewHandler(NewClient(""), slog.Default()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz/pdf", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

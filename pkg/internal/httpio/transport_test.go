package httpio

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestClient_Do_SendsHeadersAndBody(t *testing.T) {
	t.Parallel()

	var gotMethod, gotPath, gotAPIKey string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAPIKey = r.Header.Get("x-api-key")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Headers: map[string]string{"x-api-key": "secret"}})
	resp, err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/v1/messages",
		Body:   []byte(`{"model":"m"}`),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if gotMethod != http.MethodPost || gotPath != "/v1/messages" {
		t.Errorf("unexpected request: %s %s", gotMethod, gotPath)
	}
	if gotAPIKey != "secret" {
		t.Errorf("expected api key header to be forwarded, got %q", gotAPIKey)
	}
	if string(gotBody) != `{"model":"m"}` {
		t.Errorf("unexpected body: %s", gotBody)
	}
}

func TestClient_Do_EncodesQuery(t *testing.T) {
	t.Parallel()

	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	_, err := c.Do(context.Background(), Request{
		Method: http.MethodGet,
		Path:   "/v1/models",
		Query:  url.Values{"limit": {"20"}, "after_id": {"m1"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	parsed, _ := url.ParseQuery(gotQuery)
	if parsed.Get("limit") != "20" || parsed.Get("after_id") != "m1" {
		t.Errorf("unexpected query: %s", gotQuery)
	}
}

func TestClient_BaseURLTrailingSlashStripped(t *testing.T) {
	t.Parallel()

	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL + "/"})
	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/v1/models"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/v1/models" {
		t.Errorf("expected single slash between base and path, got %q", gotPath)
	}
}

package catalog

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/campushub/ratings/internal/domain"
)

func newTestClient(t *testing.T, handler http.Handler) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewHTTPClient(srv.URL, "test-key", 2*time.Second, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	return client
}

func TestLookupSuccess(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/catalog/courses/course-101" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("X-API-Key") != "test-key" {
			t.Errorf("missing api key header")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"course-101","kind":"course","title":"Linear Algebra"}`))
	}))

	entry, err := client.Lookup(context.Background(), domain.SubjectCourse, "course-101")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if entry.Title != "Linear Algebra" || entry.Kind != "course" {
		t.Fatalf("entry mismatch: %+v", entry)
	}
}

func TestLookupFillsMissingIdentity(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"title":"Week 3 Summary"}`))
	}))

	entry, err := client.Lookup(context.Background(), domain.SubjectNote, "note-7")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if entry.ID != "note-7" || entry.Kind != "note" {
		t.Fatalf("identity not filled in: %+v", entry)
	}
}

func TestLookupNotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	if _, err := client.Lookup(context.Background(), domain.SubjectCourse, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("lookup: got %v, want ErrNotFound", err)
	}
}

func TestLookupUpstreamError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := client.Lookup(context.Background(), domain.SubjectCourse, "course-101")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("lookup: got %v, want upstream error", err)
	}
}

// TestHTTPClientSmoke runs against a live catalog service when one is
// configured, e.g. the mock under cmd/catalog-mock.
func TestHTTPClientSmoke(t *testing.T) {
	baseURL := os.Getenv("CATALOG_URL")
	if baseURL == "" {
		t.Skip("CATALOG_URL not provided")
	}
	apiKey := os.Getenv("CATALOG_API_KEY")
	client, err := NewHTTPClient(baseURL, apiKey, 3*time.Second, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("create http client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	entry, err := client.Lookup(ctx, domain.SubjectCourse, "course-101")
	if err != nil {
		t.Fatalf("lookup mock data: %v", err)
	}
	if entry.Title == "" {
		t.Fatalf("unexpected catalog payload: %+v", entry)
	}
}

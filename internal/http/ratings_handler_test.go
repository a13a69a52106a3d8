package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/campushub/ratings/internal/catalog"
	"github.com/campushub/ratings/internal/config"
	"github.com/campushub/ratings/internal/domain"
	"github.com/campushub/ratings/internal/rating"
	"github.com/campushub/ratings/internal/repository/memory"
)

// fakeCatalog knows two subjects and reports everything else missing.
type fakeCatalog struct{}

func (f fakeCatalog) Lookup(_ context.Context, kind domain.SubjectKind, subjectID string) (*catalog.Entry, error) {
	switch {
	case kind == domain.SubjectCourse && subjectID == "course-101":
		return &catalog.Entry{ID: subjectID, Kind: string(kind), Title: "Linear Algebra"}, nil
	case kind == domain.SubjectNote && subjectID == "note-7":
		return &catalog.Entry{ID: subjectID, Kind: string(kind), Title: "Week 3 Summary"}, nil
	}
	return nil, catalog.ErrNotFound
}

func buildTestServer(tb testing.TB) *Server {
	tb.Helper()
	cfg := config.Config{
		Port:               "0",
		AdminToken:         "secret",
		ReadTimeoutSecs:    15,
		WriteTimeoutSecs:   15,
		IdleTimeoutSecs:    60,
		CatalogTimeoutSecs: 1,
	}

	svc := rating.NewService(memory.New())
	logger := log.New(io.Discard, "", 0)
	srv := New(cfg, nil, svc, fakeCatalog{}, logger)
	// Replace chi router to avoid default middleware noise.
	router := chi.NewRouter()
	srv.router = router
	srv.registerRoutes()
	return srv
}

func doRequest(srv *Server, method, target, raterID string, body []byte) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if raterID != "" {
		req.Header.Set("X-Rater-Id", raterID)
	}
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	return rec
}

func TestHandleSubmit_RequiresRater(t *testing.T) {
	srv := buildTestServer(t)

	rec := doRequest(srv, http.MethodPost, "/courses/course-101/reviews", "", []byte(`{"overall":4}`))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestHandleSubmit_UnknownSubject(t *testing.T) {
	srv := buildTestServer(t)

	rec := doRequest(srv, http.MethodPost, "/courses/ghost/reviews", "a@x.edu", []byte(`{"overall":4}`))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleSubmit_InvalidPayload(t *testing.T) {
	srv := buildTestServer(t)

	rec := doRequest(srv, http.MethodPost, "/courses/course-101/reviews", "a@x.edu", []byte("not json"))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422 (invalid json)", rec.Code)
	}

	rec = doRequest(srv, http.MethodPost, "/courses/course-101/reviews", "a@x.edu", []byte(`{"overall":"five"}`))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422 (wrong type)", rec.Code)
	}
}

func TestHandleSubmit_CreateThenUpdate(t *testing.T) {
	srv := buildTestServer(t)

	rec := doRequest(srv, http.MethodPost, "/courses/course-101/reviews", "a@x.edu",
		[]byte(`{"overall":7,"dimensionScores":{"completeness":4,"vibes":5},"comment":"great course"}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var created ratingResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.Overall != 5 {
		t.Errorf("overall = %d, want clamped 5", created.Overall)
	}
	if _, ok := created.DimensionScores["vibes"]; ok {
		t.Errorf("unknown dimension survived: %+v", created.DimensionScores)
	}

	rec = doRequest(srv, http.MethodPost, "/courses/course-101/reviews", "a@x.edu", []byte(`{"overall":3}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("resubmit status = %d, want 200", rec.Code)
	}
	var updated ratingResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode resubmit response: %v", err)
	}
	if updated.ID != created.ID {
		t.Errorf("record id changed on resubmit: %q != %q", updated.ID, created.ID)
	}
	if updated.Overall != 3 {
		t.Errorf("overall after resubmit = %d, want 3", updated.Overall)
	}
}

func TestNoteRatingFlow(t *testing.T) {
	srv := buildTestServer(t)

	// Not downloaded yet: blocked.
	rec := doRequest(srv, http.MethodPost, "/notes/note-7/ratings", "a@x.edu", []byte(`{"overall":4}`))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("pre-download submit status = %d, want 403: %s", rec.Code, rec.Body.String())
	}
	var errResp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if errResp.Code != "NOT_ELIGIBLE" {
		t.Errorf("error code = %q, want NOT_ELIGIBLE", errResp.Code)
	}

	rec = doRequest(srv, http.MethodGet, "/notes/note-7/ratings/eligibility", "a@x.edu", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("eligibility status = %d, want 200", rec.Code)
	}
	var elig eligibilityResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &elig); err != nil {
		t.Fatalf("decode eligibility: %v", err)
	}
	if elig.CanRate {
		t.Error("expected canRate false before download")
	}

	rec = doRequest(srv, http.MethodPost, "/notes/note-7/downloads", "a@x.edu", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("download proof status = %d, want 204", rec.Code)
	}

	rec = doRequest(srv, http.MethodGet, "/notes/note-7/ratings/eligibility", "a@x.edu", nil)
	_ = json.Unmarshal(rec.Body.Bytes(), &elig)
	if !elig.CanRate {
		t.Error("expected canRate true after download")
	}

	rec = doRequest(srv, http.MethodPost, "/notes/note-7/ratings", "a@x.edu",
		[]byte(`{"overall":4,"dimensionScores":{"accuracy":5},"isAnonymous":true}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("post-download submit status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(srv, http.MethodGet, "/notes/note-7/ratings", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("aggregate status = %d, want 200", rec.Code)
	}
	var agg aggregateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &agg); err != nil {
		t.Fatalf("decode aggregate: %v", err)
	}
	if agg.Title != "Week 3 Summary" {
		t.Errorf("title = %q, want catalog title", agg.Title)
	}
	if agg.OverallCount != 1 || agg.OverallMean != 4.0 {
		t.Errorf("overall = %v/%d, want 4.0/1", agg.OverallMean, agg.OverallCount)
	}
	if agg.DimensionMeans["accuracy"] != 5.0 {
		t.Errorf("accuracy mean = %v, want 5.0", agg.DimensionMeans["accuracy"])
	}
	if len(agg.Ratings) != 1 || !agg.Ratings[0].IsAnonymous {
		t.Errorf("ratings list mismatch: %+v", agg.Ratings)
	}
}

func TestEligibility_Unidentified(t *testing.T) {
	srv := buildTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/notes/note-7/ratings/eligibility", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var elig eligibilityResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &elig); err != nil {
		t.Fatalf("decode eligibility: %v", err)
	}
	if elig.CanRate {
		t.Error("unidentified caller should not be eligible")
	}
}

func TestHandleMine(t *testing.T) {
	srv := buildTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/courses/course-101/reviews/me", "a@x.edu", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status before submit = %d, want 404", rec.Code)
	}

	rec = doRequest(srv, http.MethodPost, "/courses/course-101/reviews", "a@x.edu", []byte(`{"overall":4}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit status = %d, want 201", rec.Code)
	}

	rec = doRequest(srv, http.MethodGet, "/courses/course-101/reviews/me", "a@x.edu", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status after submit = %d, want 200", rec.Code)
	}
	var mine ratingResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &mine); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if mine.RaterID != "a@x.edu" || mine.Overall != 4 {
		t.Errorf("own rating mismatch: %+v", mine)
	}
}

func TestHandleRemoveMine(t *testing.T) {
	srv := buildTestServer(t)

	rec := doRequest(srv, http.MethodPost, "/courses/course-101/reviews", "a@x.edu", []byte(`{"overall":4}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit status = %d, want 201", rec.Code)
	}

	rec = doRequest(srv, http.MethodDelete, "/courses/course-101/reviews/me", "a@x.edu", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", rec.Code)
	}

	rec = doRequest(srv, http.MethodDelete, "/courses/course-101/reviews/me", "a@x.edu", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", rec.Code)
	}
}

func TestHandleModerationRemove(t *testing.T) {
	srv := buildTestServer(t)

	rec := doRequest(srv, http.MethodPost, "/courses/course-101/reviews", "a@x.edu", []byte(`{"overall":4}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit status = %d, want 201", rec.Code)
	}

	req := httptest.NewRequest(http.MethodDelete, "/courses/course-101/reviews/a@x.edu", nil)
	rec2 := httptest.NewRecorder()
	srv.router.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated moderation delete = %d, want 401", rec2.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/courses/course-101/reviews/a@x.edu", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec2 = httptest.NewRecorder()
	srv.router.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusNoContent {
		t.Fatalf("moderation delete = %d, want 204", rec2.Code)
	}
}

func TestHandleListDimensions(t *testing.T) {
	srv := buildTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/dimensions", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var dims []domain.Dimension
	if err := json.Unmarshal(rec.Body.Bytes(), &dims); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(dims) != 5 || dims[0].Key != "completeness" {
		t.Fatalf("dimension list mismatch: %+v", dims)
	}
}

func TestHandleHealthz_NoStore(t *testing.T) {
	srv := buildTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestVerifyBearer(t *testing.T) {
	srv := &Server{cfg: config.Config{AdminToken: "secret"}}
	cases := []struct {
		header  string
		allowed bool
	}{
		{"Bearer secret", true},
		{"Bearer secret ", true},
		{"Bearer other", false},
		{"secret", false},
		{"", false},
	}
	for _, c := range cases {
		if srv.verifyBearer(c.header) != c.allowed {
			t.Fatalf("verifyBearer(%q) expected %v", c.header, c.allowed)
		}
	}
}

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/campushub/ratings/internal/catalog"
	"github.com/campushub/ratings/internal/domain"
	"github.com/campushub/ratings/internal/metrics"
	"github.com/campushub/ratings/internal/rating"
)

const maxRequestBody = 1 << 20 // 1 MiB

const raterHeader = "X-Rater-Id"

type errorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type submitRequest struct {
	Overall         int            `json:"overall"`
	DimensionScores map[string]int `json:"dimensionScores"`
	Comment         string         `json:"comment" validate:"omitempty,max=10000"`
	IsAnonymous     bool           `json:"isAnonymous"`
}

type ratingResponse struct {
	ID              string         `json:"id"`
	SubjectID       string         `json:"subjectId"`
	RaterID         string         `json:"raterId"`
	Overall         int            `json:"overall"`
	DimensionScores map[string]int `json:"dimensionScores"`
	Comment         string         `json:"comment,omitempty"`
	IsAnonymous     bool           `json:"isAnonymous"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

type aggregateResponse struct {
	SubjectID      string             `json:"subjectId"`
	Title          string             `json:"title,omitempty"`
	OverallMean    float64            `json:"overallMean"`
	OverallCount   int                `json:"overallCount"`
	DimensionMeans map[string]float64 `json:"dimensionMeans"`
	Ratings        []ratingResponse   `json:"ratings"`
}

type eligibilityResponse struct {
	CanRate bool `json:"canRate"`
}

func (s *Server) handleListDimensions(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, domain.Dimensions())
}

func (s *Server) handleSubmit(adapter rating.SubjectRatings) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subjectID, err := decodeSubjectParam(r)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
			return
		}
		raterID := raterFrom(r)
		if raterID == "" {
			s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authentication information")
			return
		}
		if _, ok := s.subjectExists(r.Context(), adapter.Kind(), subjectID); !ok {
			s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
			return
		}

		var req submitRequest
		if err := decodeJSONBody(w, r, &req); err != nil {
			s.respondDecodeError(w, err)
			return
		}
		if err := s.validate.Struct(req); err != nil {
			s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
			return
		}

		stored, created, err := adapter.Submit(r.Context(), subjectID, raterID, rating.SubmitParams{
			Overall:         req.Overall,
			DimensionScores: req.DimensionScores,
			Comment:         req.Comment,
			Anonymous:       req.IsAnonymous,
		})
		if err != nil {
			switch {
			case rating.IsValidation(err):
				s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
			case errors.Is(err, rating.ErrNotEligible):
				s.respondError(w, http.StatusForbidden, "NOT_ELIGIBLE", "Please view the resource before rating it")
			default:
				s.logger.Printf("submit rating error: %v", err)
				s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to process rating")
			}
			return
		}

		metrics.RatingSubmitted(string(adapter.Kind()), created)
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		s.respondJSON(w, status, toRatingResponse(stored))
	}
}

func (s *Server) handleAggregate(adapter rating.SubjectRatings) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subjectID, err := decodeSubjectParam(r)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
			return
		}
		entry, ok := s.subjectExists(r.Context(), adapter.Kind(), subjectID)
		if !ok {
			s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
			return
		}

		agg, err := adapter.Aggregate(r.Context(), subjectID)
		if err != nil {
			s.logger.Printf("aggregate error: %v", err)
			s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch ratings")
			return
		}

		resp := aggregateResponse{
			SubjectID:      subjectID,
			OverallMean:    agg.OverallMean,
			OverallCount:   agg.OverallCount,
			DimensionMeans: agg.DimensionMeans,
			Ratings:        make([]ratingResponse, 0, len(agg.Ratings)),
		}
		if entry != nil {
			resp.Title = entry.Title
		}
		for _, stored := range agg.Ratings {
			resp.Ratings = append(resp.Ratings, toRatingResponse(stored))
		}
		s.respondJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) handleMine(adapter rating.SubjectRatings) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subjectID, err := decodeSubjectParam(r)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
			return
		}
		raterID := raterFrom(r)
		if raterID == "" {
			s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authentication information")
			return
		}

		stored, err := adapter.Mine(r.Context(), subjectID, raterID)
		if err != nil {
			if errors.Is(err, rating.ErrNotFound) {
				s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
				return
			}
			s.logger.Printf("fetch own rating error: %v", err)
			s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch rating")
			return
		}
		s.respondJSON(w, http.StatusOK, toRatingResponse(stored))
	}
}

func (s *Server) handleRemoveMine(adapter rating.SubjectRatings) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subjectID, err := decodeSubjectParam(r)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
			return
		}
		raterID := raterFrom(r)
		if raterID == "" {
			s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authentication information")
			return
		}
		s.removeRating(r.Context(), w, adapter, subjectID, raterID)
	}
}

// handleModerationRemove lets an operator delete any rater's submission. It
// is the only route guarded by the admin bearer token.
func (s *Server) handleModerationRemove(adapter rating.SubjectRatings) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.verifyBearer(r.Header.Get("Authorization")) {
			s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authentication information")
			return
		}
		subjectID, err := decodeSubjectParam(r)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
			return
		}
		raterID, err := url.PathUnescape(chi.URLParam(r, "raterID"))
		if err != nil || raterID == "" {
			s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid rater parameter")
			return
		}
		s.removeRating(r.Context(), w, adapter, subjectID, raterID)
	}
}

func (s *Server) removeRating(ctx context.Context, w http.ResponseWriter, adapter rating.SubjectRatings, subjectID, raterID string) {
	if err := adapter.Remove(ctx, subjectID, raterID); err != nil {
		switch {
		case errors.Is(err, rating.ErrNotFound):
			s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
		case rating.IsValidation(err):
			s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
		default:
			s.logger.Printf("remove rating error: %v", err)
			s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to remove rating")
		}
		return
	}
	metrics.RatingRemoved(string(adapter.Kind()))
	w.WriteHeader(http.StatusNoContent)
}

// handleMarkProof records a download proof. The frontend calls it right
// after a successful resource download.
func (s *Server) handleMarkProof(adapter rating.SubjectRatings) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subjectID, err := decodeSubjectParam(r)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
			return
		}
		raterID := raterFrom(r)
		if raterID == "" {
			s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authentication information")
			return
		}
		if _, ok := s.subjectExists(r.Context(), adapter.Kind(), subjectID); !ok {
			s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
			return
		}

		if err := adapter.MarkProof(r.Context(), subjectID, raterID); err != nil {
			if rating.IsValidation(err) {
				s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
				return
			}
			s.logger.Printf("mark proof error: %v", err)
			s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to record download")
			return
		}
		metrics.ProofMarked(string(adapter.Kind()))
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleEligibility(adapter rating.SubjectRatings) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subjectID, err := decodeSubjectParam(r)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
			return
		}

		// An unidentified caller is simply not eligible, never an error.
		canRate, err := adapter.CanRate(r.Context(), subjectID, raterFrom(r))
		if err != nil {
			s.logger.Printf("eligibility check error: %v", err)
			s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to check eligibility")
			return
		}
		s.respondJSON(w, http.StatusOK, eligibilityResponse{CanRate: canRate})
	}
}

// subjectExists consults the catalog. A catalog outage must not block rating
// traffic, so only an affirmative "not found" rejects the request.
func (s *Server) subjectExists(ctx context.Context, kind domain.SubjectKind, subjectID string) (*catalog.Entry, bool) {
	lookupCtx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.CatalogTimeoutSecs)*time.Second)
	defer cancel()

	entry, err := s.catalog.Lookup(lookupCtx, kind, subjectID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, false
		}
		s.logger.Printf("catalog lookup failed for %s %q: %v", kind, subjectID, err)
		return nil, true
	}
	return entry, true
}

func toRatingResponse(stored domain.Rating) ratingResponse {
	return ratingResponse{
		ID:              stored.ID,
		SubjectID:       stored.Subject.ID,
		RaterID:         stored.RaterID,
		Overall:         stored.Overall,
		DimensionScores: stored.DimensionScores,
		Comment:         stored.Comment,
		IsAnonymous:     stored.Anonymous,
		CreatedAt:       stored.CreatedAt,
		UpdatedAt:       stored.UpdatedAt,
	}
}

func raterFrom(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(raterHeader))
}

func decodeSubjectParam(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "subjectID")
	if raw == "" {
		return "", fmt.Errorf("missing subject parameter")
	}
	subjectID, err := url.PathUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("invalid subject parameter")
	}
	return subjectID, nil
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Printf("failed to encode response: %v", err)
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

func (s *Server) respondDecodeError(w http.ResponseWriter, err error) {
	var syntaxError *json.SyntaxError
	var typeError *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxError):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Malformed JSON payload")
	case errors.As(err, &typeError):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", fmt.Sprintf("Invalid value for field %s", typeError.Field))
	case errors.Is(err, io.EOF):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Request body cannot be empty")
	default:
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Unable to parse request body")
	}
}

func (s *Server) verifyBearer(header string) bool {
	if header == "" {
		return false
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	return token == s.cfg.AdminToken
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	apperrors "livebetter/internal/common/errors"
	"livebetter/internal/common/validation"
	"livebetter/internal/ranking"
)

const maxBodyBytes = 64 << 10

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": "livebetter-ranking",
		"status":  "ok",
	})
}

// handleRank runs the full ranking pipeline for a household profile.
func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)

	// Decode to a map first so schema validation sees unknown fields, then
	// into the typed request.
	var raw map[string]interface{}
	decoder := json.NewDecoder(body)
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err != nil {
		s.writeError(w, r, apperrors.NewRequestValidationFailedError("request body is not valid JSON"))
		return
	}
	if err := validation.ValidateRankRequest(raw); err != nil {
		s.writeError(w, r, err)
		return
	}

	var req ranking.RankRequest
	payload, _ := json.Marshal(raw)
	if err := json.Unmarshal(payload, &req); err != nil {
		s.writeError(w, r, apperrors.NewRequestValidationFailedError(err.Error()))
		return
	}

	resp, err := s.engine.Rank(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(resp.Results) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"error": "no metros matched the request filters",
			"input": resp.Input,
		})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleParse converts free-text preferences into a structured rank request
// without executing it.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var input struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(body).Decode(&input); err != nil || input.Text == "" {
		s.writeError(w, r, apperrors.NewRequestValidationFailedError("body must be a JSON object with a non-empty text field"))
		return
	}

	req, err := s.parser.Parse(r.Context(), input.Text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

const maxBatchMetros = 10

// handleMetrosBatch returns the raw catalog rows for a list of metro ids.
// The comparison view uses it to fetch full metro data; scores are not
// recomputed here, so score fields are zero in the response.
func (s *Server) handleMetrosBatch(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var input struct {
		MetroIDs []int64 `json:"metro_ids"`
	}
	if err := json.NewDecoder(body).Decode(&input); err != nil {
		s.writeError(w, r, apperrors.NewRequestValidationFailedError("request body is not valid JSON"))
		return
	}
	if len(input.MetroIDs) == 0 {
		s.writeError(w, r, apperrors.NewRequestValidationFailedError("no metro ids provided"))
		return
	}
	if len(input.MetroIDs) > maxBatchMetros {
		s.writeError(w, r, apperrors.NewRequestValidationFailedError(
			fmt.Sprintf("maximum %d metros allowed per request", maxBatchMetros)))
		return
	}

	records, err := s.catalog.GetMetrosByIDs(r.Context(), input.MetroIDs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(records) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"error": "no metros found with provided ids",
		})
		return
	}

	results := make([]ranking.RankResult, 0, len(records))
	for _, rec := range records {
		result := ranking.RankResult{
			MetroID: rec.ID,
			Name:    rec.Name,
			State:   rec.State,
			Essentials: ranking.Essentials{
				Rent:      rec.Costs.MedianRent,
				Utilities: rec.Costs.UtilitiesMonthly,
			},
			RPPIndex:   rec.Costs.RPPIndex,
			Population: rec.Population,
			Coords:     ranking.Coords{Lat: rec.Lat, Lon: rec.Lon},
		}
		if rec.QOL.HasData() {
			qol := rec.QOL
			result.QualityOfLife = &qol
		}
		results = append(results, result)
	}
	writeJSON(w, http.StatusOK, results)
}

// handleInvalidate drops all cached rankings. Called by the ETL pipeline
// after a catalog refresh.
func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	removed, err := s.cache.InvalidateAll(r.Context())
	if err != nil {
		s.writeError(w, r, apperrors.NewCacheUnavailableError("primary", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"invalidated": removed})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	health := map[string]interface{}{"status": "healthy"}

	if err := s.catalog.Ping(ctx); err != nil {
		health["status"] = "degraded"
		health["catalog"] = err.Error()
		status = http.StatusServiceUnavailable
	} else if count, err := s.catalog.CountMetros(ctx); err == nil {
		health["metros"] = count
	}

	// Cache degradation is reported but never fails the health check; the
	// service ranks without a cache.
	if err := s.cache.Ping(ctx); err != nil {
		health["cache"] = err.Error()
	}

	writeJSON(w, status, health)
}

// writeError maps domain errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	code := apperrors.CodeOf(err)
	switch code {
	case apperrors.ErrCodeRequestValidationFailed:
		status = http.StatusBadRequest
	case apperrors.ErrCodeCatalogUnavailable, apperrors.ErrCodeCacheUnavailable:
		status = http.StatusServiceUnavailable
	case apperrors.ErrCodeParseAPITimeout:
		status = http.StatusGatewayTimeout
	case apperrors.ErrCodeParseAPIFailed, apperrors.ErrCodeParseBadOutput:
		status = http.StatusBadGateway
	}

	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).Error("Request failed", map[string]interface{}{
			"path":      r.URL.Path,
			"requestId": requestIDFrom(r.Context()),
		})
	}

	var stdErr *apperrors.StandardError
	if errors.As(err, &stdErr) {
		writeJSON(w, status, map[string]interface{}{
			"error":   stdErr.Message,
			"code":    string(stdErr.Code),
			"details": stdErr.Details,
		})
		return
	}
	writeJSON(w, status, map[string]interface{}{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

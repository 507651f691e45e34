package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"bilancio/internal/core"
)

const maxBodyBytes = 1 << 20

type errorPayload struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError maps the domain error taxonomy onto HTTP statuses. Unknown
// errors become an opaque 500 so storage details never leak to clients.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case core.IsValidation(err), errors.Is(err, core.ErrInvalidMode), errors.Is(err, core.ErrInvalidAmount):
		writeJSON(w, http.StatusUnprocessableEntity, errorPayload{Error: err.Error()})
	case core.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, errorPayload{Error: err.Error()})
	case core.IsInvalidState(err), core.IsConflict(err):
		writeJSON(w, http.StatusConflict, errorPayload{Error: err.Error()})
	default:
		slog.ErrorContext(ctx, "Request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorPayload{Error: "internal error"})
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Error: "malformed request body"})
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusNotFound, errorPayload{Error: "invalid id"})
		return 0, false
	}
	return id, true
}

const dateLayout = "2006-01-02"

func parseDateField(field, value string) (core.Date, error) {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return core.Date{}, &core.ValidationError{Field: field, Reason: "must be a YYYY-MM-DD date"}
	}
	return core.Date{Time: t}, nil
}

func parseAmountField(field, value string) (core.Money, error) {
	cents, err := core.ParseDecimalToCents(value)
	if err != nil {
		return core.Money{}, &core.ValidationError{Field: field, Reason: "must be a decimal amount"}
	}
	return core.Money{Cents: cents}, nil
}

// parsePeriod reads month/year query parameters, defaulting to the current
// period when both are absent.
func parsePeriod(r *http.Request) (core.Period, error) {
	now := time.Now()
	p := core.Period{Month: int(now.Month()), Year: now.Year()}

	if v := r.URL.Query().Get("month"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			return core.Period{}, &core.ValidationError{Field: "month", Reason: "must be a number"}
		}
		p.Month = m
	}
	if v := r.URL.Query().Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return core.Period{}, &core.ValidationError{Field: "year", Reason: "must be a number"}
		}
		p.Year = y
	}
	if err := p.Validate(); err != nil {
		return core.Period{}, err
	}
	return p, nil
}

package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Simplici0/listprice/internal/pricing"
	"github.com/Simplici0/listprice/internal/setup"
)

// Error codes returned in apiError.Code.
const (
	codeValidation  = "VALIDATION_ERROR"
	codeNotFound    = "NOT_FOUND"
	codeStorageFull = "STORAGE_FULL"
	codeUnavailable = "STORAGE_UNAVAILABLE"
	codeInfeasible  = "INFEASIBLE_FEE_CONFIGURATION"
	codeInternal    = "INTERNAL_ERROR"
	codeBadRequest  = "BAD_REQUEST"
)

type apiError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"requestId,omitempty"`

	status int
}

func (e *apiError) Error() string { return e.Code + ": " + e.Message }

// mapError turns a domain error into the response sent to the client.
func mapError(err error) *apiError {
	var apiErr *apiError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, setup.ErrEmptyName):
		return &apiError{Code: codeValidation, Message: "setup name is required", status: http.StatusBadRequest}
	case errors.Is(err, setup.ErrStorageFull):
		return &apiError{Code: codeStorageFull, Message: "storage is full, delete saved setups to free room", status: http.StatusInsufficientStorage}
	case errors.Is(err, setup.ErrStorageUnavailable):
		return &apiError{Code: codeUnavailable, Message: "saving setups is not available", status: http.StatusServiceUnavailable}
	case errors.Is(err, setup.ErrNotFound):
		return &apiError{Code: codeNotFound, Message: "setup not found", status: http.StatusNotFound}
	case errors.Is(err, pricing.ErrInfeasibleFeeConfiguration):
		return &apiError{Code: codeInfeasible, Message: err.Error(), status: http.StatusUnprocessableEntity}
	default:
		return &apiError{Code: codeInternal, Message: "an unexpected error occurred", status: http.StatusInternalServerError}
	}
}

func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := mapError(err)
	resp := *apiErr
	resp.RequestID = requestIDFrom(r.Context())

	if resp.status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "requestId", resp.RequestID, "error", err)
	}
	writeJSON(w, resp.status, resp)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// decodeJSON reads a single JSON object from the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &apiError{Code: codeBadRequest, Message: "invalid JSON body: " + err.Error(), status: http.StatusBadRequest}
	}
	return nil
}

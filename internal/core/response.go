package core

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"moviesvc/internal/types"
)

const maxRequestBodySize = 1 << 20

// APIErrorResponse wraps every error body as {"error": {...}}.
type APIErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail is the error body. Clients match on Message; Status, Code and
// the rest are informational.
type ErrorDetail struct {
	Message   string         `json:"message"`
	Status    int            `json:"status"`
	Code      string         `json:"code"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

// JSON encodes data with the given status. A value that cannot be encoded is
// answered with a 500 envelope instead.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	body, err := json.Marshal(data)
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_ = writeRawError(w, http.StatusInternalServerError, types.ErrCodeInternalUnexpected,
			"failed to marshal response", types.GetRequestID(r.Context()))
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// Error writes err as an envelope. The first *types.AppError in the chain
// decides status, code and message; any other error is a 500 carrying its own
// text.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	detail := errorDetail(err)
	detail.RequestID = types.GetRequestID(r.Context())
	JSON(w, r, detail.Status, APIErrorResponse{Error: detail})
}

func errorDetail(err error) ErrorDetail {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return ErrorDetail{
			Message: appErr.Message,
			Status:  appErr.HTTPStatus(),
			Code:    string(appErr.Code),
			Details: appErr.Details,
		}
	}
	return ErrorDetail{
		Message: err.Error(),
		Status:  http.StatusInternalServerError,
		Code:    string(types.ErrCodeInternalUnexpected),
	}
}

// DecodeJSON decodes a single JSON value from a body of at most 1MB into
// dst. Unknown fields are ignored.
//
// An empty body yields io.EOF so the caller decides what absence means.
// Anything else that goes wrong is a validation_invalid_json AppError.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	dec := json.NewDecoder(r.Body)
	switch err := dec.Decode(dst); {
	case errors.Is(err, io.EOF):
		return io.EOF
	case err != nil:
		return mapDecodeError(err)
	}

	if dec.More() {
		return invalidJSON("request body must contain a single JSON object", nil, nil)
	}
	return nil
}

func invalidJSON(message string, err error, details map[string]any) *types.AppError {
	return types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidJSON, message, err, details)
}

func mapDecodeError(err error) *types.AppError {
	var (
		maxBytesErr *http.MaxBytesError
		syntaxErr   *json.SyntaxError
		typeErr     *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &maxBytesErr):
		return invalidJSON("request body must not exceed 1MB", err, nil)
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return invalidJSON("malformed JSON in request body", err, nil)
	case errors.As(err, &typeErr):
		return invalidJSON("invalid value for field", err, map[string]any{
			"field":    typeErr.Field,
			"expected": typeErr.Type.String(),
		})
	default:
		return invalidJSON("invalid JSON in request body", err, nil)
	}
}

package bridge

import (
	"errors"
	"net/http"

	"github.com/GriffinCanCode/ai4/internal/ledger"
	"github.com/GriffinCanCode/ai4/internal/registry"
)

var (
	// ErrBadRequest is returned by the client when the server rejects a
	// malformed request.
	ErrBadRequest = errors.New("bridge: bad request")

	// ErrRateLimited is returned by the client when the server throttles it.
	ErrRateLimited = errors.New("bridge: rate limited")

	// ErrNonFiniteOutput is returned when a model produced NaN or ±Inf,
	// which JSON cannot carry.
	ErrNonFiniteOutput = errors.New("bridge: model output is not finite")

	// ErrRemote covers every other server-side failure.
	ErrRemote = errors.New("bridge: remote error")
)

// Error codes carried in ErrorResponse.Code
const (
	CodeBadRequest          = "bad_request"
	CodeUnknownURI          = "unknown_uri"
	CodeInsufficientBalance = "insufficient_balance"
	CodeNonFiniteOutput     = "non_finite_output"
	CodeRateLimited         = "rate_limited"
	CodeInternal            = "internal"
)

// InferRequest is the body of POST /infer. Payer and cost fall back to the
// server defaults when omitted.
type InferRequest struct {
	URI   string   `json:"uri" binding:"required"`
	Input *float64 `json:"input" binding:"required"`
	Payer string   `json:"payer,omitempty"`
	Cost  *int64   `json:"cost,omitempty"`
}

// ModelsResponse is the body of GET /models.
type ModelsResponse struct {
	Models []registry.Record `json:"models"`
}

// BalanceResponse is the body of GET /balance/:who.
type BalanceResponse struct {
	Who     string `json:"who"`
	Balance int64  `json:"balance"`
	Symbol  string `json:"symbol"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// ErrorCode maps a bridge error to its HTTP status and wire code.
func ErrorCode(err error) (int, string) {
	switch {
	case errors.Is(err, registry.ErrUnknownURI):
		return http.StatusNotFound, CodeUnknownURI
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return http.StatusPaymentRequired, CodeInsufficientBalance
	case errors.Is(err, ledger.ErrInvalidAmount), errors.Is(err, ledger.ErrInvalidIdentity),
		errors.Is(err, registry.ErrInvalidName), errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, CodeBadRequest
	case errors.Is(err, ErrNonFiniteOutput):
		return http.StatusUnprocessableEntity, CodeNonFiniteOutput
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

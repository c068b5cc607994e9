// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

import "github.com/shopspring/decimal"

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// Validation wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Error de validacion", Fields: fields}
}

// BalanceError reports a commit blocked by a negative balance.
type BalanceError struct {
	Detail string          `json:"detail"`
	Exceso decimal.Decimal `json:"exceso"`
}

func NewBalance(msg string, exceso decimal.Decimal) *BalanceError {
	return &BalanceError{Detail: msg, Exceso: exceso}
}

// ConfirmationError asks the client to repeat the request with confirmation.
type ConfirmationError struct {
	Detail      string `json:"detail"`
	Productores int    `json:"productores"`
	Variedades  int    `json:"variedades"`
}

func NewConfirmation(msg string, productores, variedades int) *ConfirmationError {
	return &ConfirmationError{Detail: msg, Productores: productores, Variedades: variedades}
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tienda-lubbi/mirador/pkg/allowlist"
	"github.com/tienda-lubbi/mirador/pkg/llm"
)

// Code classifies pipeline failures for API responses and logs.
type Code string

const (
	CodeInvalidQuery Code = "invalid_query"
	CodeMissingParam Code = "missing_param"
	CodeDatabase     Code = "database_error"
	CodeLLM          Code = "llm_error"
	CodeRateLimited  Code = "rate_limited"
	CodeCancelled    Code = "cancelled"
	CodeInternal     Code = "internal_error"
)

// Error is a classified pipeline failure.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// UserMessage returns the Spanish message shown to end users.
func (e *Error) UserMessage() string {
	switch e.Code {
	case CodeInvalidQuery:
		return "No pude interpretar la consulta. Proba reformulando la pregunta."
	case CodeMissingParam:
		return "Falta informacion para ejecutar la consulta. Proba agregando un periodo de fechas."
	case CodeDatabase:
		return "Hubo un problema consultando los datos. Intenta de nuevo en unos minutos."
	case CodeLLM, CodeRateLimited:
		return "El asistente esta saturado en este momento. Intenta de nuevo en unos segundos."
	case CodeCancelled:
		return "La consulta fue cancelada."
	default:
		return "Ocurrio un error inesperado procesando tu consulta."
	}
}

// Classify wraps an arbitrary error with its pipeline code.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var pipeErr *Error
	if errors.As(err, &pipeErr) {
		return pipeErr
	}

	var missing *allowlist.MissingParamError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &Error{Code: CodeCancelled, Message: err.Error(), cause: err}
	case errors.Is(err, llm.ErrRateLimited):
		return &Error{Code: CodeRateLimited, Message: err.Error(), cause: err}
	case errors.Is(err, llm.ErrNotConfigured):
		return &Error{Code: CodeLLM, Message: err.Error(), cause: err}
	case errors.As(err, &missing):
		return &Error{Code: CodeMissingParam, Message: err.Error(), cause: err}
	case strings.Contains(err.Error(), "not in the allowlist"):
		return &Error{Code: CodeInvalidQuery, Message: err.Error(), cause: err}
	case isDatabaseError(err):
		return &Error{Code: CodeDatabase, Message: err.Error(), cause: err}
	default:
		return &Error{Code: CodeInternal, Message: err.Error(), cause: err}
	}
}

func isDatabaseError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"database", "connection", "pgx", "sql", "query"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

package mcpserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/codectx/ctxd/internal/errs"
)

// Standard JSON-RPC error codes, plus ctxd-specific ones in the
// implementation-defined range.
const (
	errCodeInvalidParams  = -32602
	errCodeMethodNotFound = -32601
	errCodeInternalError  = -32603

	errCodeIndexCorrupted = -32001
	errCodeRebuildFailed  = -32002
	errCodeTimeout        = -32003
	errCodeIndexing       = -32004
)

// mcpError is a JSON-RPC-shaped error, returned as the error value from a
// tool handler so the SDK can serialize the {code, message} envelope.
type mcpError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *mcpError) Error() string {
	return fmt.Sprintf("mcp error %d: %s", e.Code, e.Message)
}

// mapError converts a ctxd error into the MCP envelope.
func mapError(err error) *mcpError {
	if err == nil {
		return nil
	}

	var ce *errs.CtxError
	if errs.As(err, &ce) {
		if ce.Code == errs.ErrCodeInternal {
			return &mcpError{Code: errCodeInternalError, Message: ce.Message}
		}
		switch ce.ExternalCode {
		case errs.CodeIndexCorrupted:
			return &mcpError{Code: errCodeIndexCorrupted, Message: ce.Message + " Index auto-heal was unable to recover; try `ctxd index --full`."}
		case errs.CodeRebuildFailed:
			return &mcpError{Code: errCodeRebuildFailed, Message: ce.Message}
		case errs.CodeIndexing:
			return &mcpError{Code: errCodeIndexing, Message: ce.Message}
		case errs.CodeInvalidParams:
			return &mcpError{Code: errCodeInvalidParams, Message: ce.Message}
		case errs.CodeTransient:
			return &mcpError{Code: errCodeTimeout, Message: ce.Message}
		}
		return &mcpError{Code: errCodeInternalError, Message: ce.Message}
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &mcpError{Code: errCodeTimeout, Message: "request timed out"}
	case errors.Is(err, context.Canceled):
		return &mcpError{Code: errCodeTimeout, Message: "request was canceled"}
	default:
		return &mcpError{Code: errCodeInternalError, Message: "internal server error"}
	}
}

func invalidParams(msg string) *mcpError {
	return &mcpError{Code: errCodeInvalidParams, Message: msg}
}

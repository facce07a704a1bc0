// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package errutil holds helpers for logging and asserting oops errors.
package errutil

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs an error with structured context if it's an oops error.
// For oops errors, it extracts and logs the message, code and context.
// For standard errors, it logs the error string.
func LogError(ctx context.Context, logger *slog.Logger, msg string, err error) {
	if oopsErr, ok := oops.AsOops(err); ok {
		attrs := []any{
			"error", oopsErr.Error(),
		}
		if code := oopsErr.Code(); code != nil {
			attrs = append(attrs, "code", code)
		}
		if errCtx := oopsErr.Context(); len(errCtx) > 0 {
			attrs = append(attrs, "context", errCtx)
		}
		logger.ErrorContext(ctx, msg, attrs...)
		return
	}
	logger.ErrorContext(ctx, msg, "error", err)
}

// Code returns the oops code attached to err, or "" when there is none.
func Code(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code := oopsErr.Code()
	if code == nil {
		return ""
	}
	if s, ok := code.(string); ok {
		return s
	}
	return fmt.Sprint(code)
}

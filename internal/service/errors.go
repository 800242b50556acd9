package service

import (
	"errors"

	"connectrpc.com/connect"

	"github.com/mmynk/tabsettle/internal/engine"
)

// Response headers that carry structured error context.
const (
	HeaderErrorKind = "Tabsettle-Error-Kind"
	HeaderTabID     = "Tabsettle-Tab-Id"
	HeaderTabStatus = "Tabsettle-Tab-Status"
)

// toConnectError maps engine error kinds to Connect codes.
func toConnectError(err error) error {
	code := connect.CodeInternal
	switch {
	case errors.Is(err, engine.ErrValidation):
		code = connect.CodeInvalidArgument
	case errors.Is(err, engine.ErrNotFound), errors.Is(err, engine.ErrSettlementNotFound):
		code = connect.CodeNotFound
	case errors.Is(err, engine.ErrInvalidState), errors.Is(err, engine.ErrTabLocked):
		code = connect.CodeFailedPrecondition
	case errors.Is(err, engine.ErrStorageUnavailable):
		code = connect.CodeUnavailable
	}

	connectErr := connect.NewError(code, err)
	var engErr *engine.Error
	if errors.As(err, &engErr) {
		connectErr.Meta().Set(HeaderErrorKind, engErr.Kind.Error())
		if engErr.TabID != "" {
			connectErr.Meta().Set(HeaderTabID, engErr.TabID)
		}
		if engErr.Status != "" {
			connectErr.Meta().Set(HeaderTabStatus, string(engErr.Status))
		}
	}
	return connectErr
}

package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mmynk/tabsettle/internal/models"
)

// Error kinds. Match with errors.Is.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidState       = errors.New("invalid state")
	ErrTabLocked          = errors.New("tab locked")
	ErrValidation         = errors.New("validation failed")
	ErrSettlementNotFound = errors.New("settlement not found")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Error carries enough context for a caller to render an actionable message.
type Error struct {
	Kind    error
	TabID   string
	Status  models.TabStatus
	Amount  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.TabID != "" {
		fmt.Fprintf(&b, " (tab %s", e.TabID)
		if e.Status != "" {
			fmt.Fprintf(&b, ", status %s", e.Status)
		}
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func validationf(format string, args ...any) *Error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func lockedError(tab *models.Tab) *Error {
	return &Error{
		Kind:    ErrTabLocked,
		TabID:   tab.ID,
		Status:  tab.Status,
		Message: "expenses cannot change once settlement has started",
	}
}

func stateError(tab *models.Tab, msg string) *Error {
	return &Error{Kind: ErrInvalidState, TabID: tab.ID, Status: tab.Status, Message: msg}
}

func settlementNotFound(tab *models.Tab, msg string) *Error {
	return &Error{Kind: ErrSettlementNotFound, TabID: tab.ID, Status: tab.Status, Message: msg}
}

func unavailable(tabID string, err error) *Error {
	return &Error{Kind: ErrStorageUnavailable, TabID: tabID, Err: err}
}

// Package action validates loosely typed action requests coming from the
// conversational engine (or the admin endpoint) and turns them into CRUD
// calls. Every outcome, including failures, is reported as a Result.
package action

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/healthline/healthline/internal/platform/crud"
)

const (
	StatusSuccess       = "success"
	StatusMissingFields = "missing_fields"
	StatusError         = "error"
)

var (
	ErrMissingFields     = errors.New("missing fields")
	ErrInvalidFormat     = errors.New("invalid format")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrUnsupportedAction = errors.New("unsupported action")
)

const (
	msgMissing       = "Please ask the user to provide the missing information."
	msgProvideUpdate = "Provide fields to update"
	msgInternal      = "The request could not be completed, please try again later."
)

// Result is the uniform reply of a dispatcher. Exactly one of Data,
// Missing or Message is meaningful, depending on Status.
type Result struct {
	Status  string   `json:"status"`
	Action  string   `json:"action,omitempty"`
	Data    any      `json:"data,omitempty"`
	Missing []string `json:"missing,omitempty"`
	Message string   `json:"message,omitempty"`
}

func success(action string, data any) Result {
	return Result{Status: StatusSuccess, Action: action, Data: data}
}

// Error is a validation or policy failure. Its message is shown to the user
// as is.
type Error struct {
	kind    error
	missing []string
	msg     string
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.kind }

// Missing lists the absent fields of an ErrMissingFields failure.
func (e *Error) Missing() []string { return e.missing }

func missingFields(msg string, fields ...string) error {
	return &Error{kind: ErrMissingFields, missing: fields, msg: msg}
}

func invalidFormat(msg string) error {
	return &Error{kind: ErrInvalidFormat, msg: msg}
}

func unauthorized(role, action string) error {
	return &Error{kind: ErrUnauthorized, msg: "role " + role + " is not permitted to " + action}
}

func unsupported(action string) error {
	return &Error{kind: ErrUnsupportedAction, msg: "Unsupported action: " + action}
}

// fromError converts a handler failure into a Result. Storage failures that
// are not caused by the request itself are logged and reported generically.
func fromError(ctx context.Context, tool, action string, err error) Result {
	var ae *Error
	switch {
	case errors.As(err, &ae) && errors.Is(ae, ErrMissingFields):
		return Result{Status: StatusMissingFields, Missing: ae.missing, Message: ae.msg}
	case errors.As(err, &ae):
		return Result{Status: StatusError, Message: ae.msg}
	case errors.Is(err, crud.ErrNotFound):
		return Result{Status: StatusError, Message: err.Error()}
	case errors.Is(err, crud.ErrConflict),
		errors.Is(err, crud.ErrInvalidReference),
		errors.Is(err, crud.ErrReferenced):
		return Result{Status: StatusError, Message: err.Error()}
	default:
		zerolog.Ctx(ctx).Error().Err(err).
			Str("tool", tool).
			Str("action", action).
			Msg("action failed")
		return Result{Status: StatusError, Message: msgInternal}
	}
}

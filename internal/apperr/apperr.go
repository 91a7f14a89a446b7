// Package apperr defines the error taxonomy shared by the planning, journey and
// fare-sign services and maps it onto HTTP responses.
package apperr

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

type Kind string

const (
	KindValidation  Kind = "validation"
	KindNotFound    Kind = "not_found"
	KindState       Kind = "state"
	KindConflict    Kind = "conflict"
	KindConcurrency Kind = "concurrency"
	KindForbidden   Kind = "forbidden"
)

const (
	CodeInvalidCoordinate      = "invalid_coordinate"
	CodeSameOriginDestination  = "same_origin_destination"
	CodeNoRankNearLocation     = "no_rank_near_location"
	CodeUnknownRank            = "unknown_rank"
	CodeInvalidMaxHops         = "invalid_max_hops"
	CodeInvalidStateTransition = "invalid_state_transition"
	CodeInvalidRating          = "invalid_rating"
	CodeMissingReason          = "missing_reason"
	CodeRouteInUse             = "route_in_use"
	CodeRouteWithdrawn         = "route_withdrawn"
	CodeRankInUse              = "rank_in_use"
	CodeVerificationConflict   = "verification_conflict"
	CodeInvalidInput           = "invalid_input"
	CodeNotFound               = "not_found"
	CodeForbidden              = "forbidden"
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	// LegalNext lists the states a journey may move to from its current one.
	LegalNext []string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(code, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: fmt.Sprintf(format, args...)}
}

func NotFound(code, format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: fmt.Sprintf(format, args...)}
}

func State(legalNext []string, format string, args ...any) *Error {
	if legalNext == nil {
		legalNext = []string{}
	}
	return &Error{Kind: KindState, Code: CodeInvalidStateTransition, Message: fmt.Sprintf(format, args...), LegalNext: legalNext}
}

func Conflict(code, format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Code: CodeForbidden, Message: fmt.Sprintf(format, args...)}
}

func Concurrency(err error, format string, args ...any) *Error {
	return &Error{Kind: KindConcurrency, Code: CodeVerificationConflict, Message: fmt.Sprintf(format, args...), Err: err}
}

// IsKind reports whether any error in err's chain is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func HTTPStatus(err error) int {
	var e *Error
	if errors.As(err, &e) {
		switch e.Kind {
		case KindValidation:
			return fiber.StatusBadRequest
		case KindNotFound:
			return fiber.StatusNotFound
		case KindState, KindConflict:
			return fiber.StatusConflict
		case KindConcurrency:
			return fiber.StatusServiceUnavailable
		case KindForbidden:
			return fiber.StatusForbidden
		}
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}

// ErrorHandler renders errors returned by handlers as JSON bodies. It is
// installed as the fiber application's ErrorHandler.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status := HTTPStatus(err)
	body := fiber.Map{"error": err.Error()}

	var e *Error
	if errors.As(err, &e) {
		body["error"] = e.Message
		body["code"] = e.Code
		if e.Kind == KindState {
			body["legal_next_states"] = e.LegalNext
		}
	}
	return c.Status(status).JSON(body)
}

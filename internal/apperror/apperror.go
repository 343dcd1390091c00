// Package apperror defines the error kinds shared by the foodgram services and the
// ServiceError carrier that the HTTP layer maps onto status codes.
package apperror

import (
	"errors"
	"fmt"
)

// Error kinds. Services wrap one of these in a ServiceError; callers test with errors.Is.
var (
	ErrValidation                = errors.New("validation_error")
	ErrDuplicateRelationship     = errors.New("duplicate_relationship")
	ErrRelationshipNotFound      = errors.New("relationship_not_found")
	ErrSelfSubscriptionForbidden = errors.New("self_subscription_forbidden")
	ErrNotFound                  = errors.New("not_found")
	ErrPermissionDenied          = errors.New("permission_denied")
	ErrUnauthenticated           = errors.New("unauthenticated")
)

// ServiceError carries a machine code of the form "<operation>.<reason>", the error kind,
// a human readable detail and the underlying cause.
type ServiceError struct {
	code   string
	kind   error
	detail string
	fields map[string]string
	err    error
}

// New builds a ServiceError. kind may be nil for internal failures.
func New(operation, reason string, kind error, detail string, cause error) *ServiceError {
	return &ServiceError{
		code:   fmt.Sprintf("%s.%s", operation, reason),
		kind:   kind,
		detail: detail,
		err:    cause,
	}
}

// Internal wraps an unexpected failure; the detail is never shown to clients.
func Internal(operation, reason string, cause error) *ServiceError {
	return New(operation, reason, nil, "", cause)
}

// Validation builds a validation failure with optional field-level messages.
func Validation(operation, reason, detail string, fields map[string]string) *ServiceError {
	serviceErr := New(operation, reason, ErrValidation, detail, nil)
	if len(fields) > 0 {
		serviceErr.fields = fields
	}
	return serviceErr
}

func (e *ServiceError) Error() string {
	switch {
	case e.err != nil:
		return fmt.Sprintf("%s: %v", e.code, e.err)
	case e.detail != "":
		return fmt.Sprintf("%s: %s", e.code, e.detail)
	default:
		return e.code
	}
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *ServiceError) Unwrap() []error {
	unwrapped := make([]error, 0, 2)
	if e.kind != nil {
		unwrapped = append(unwrapped, e.kind)
	}
	if e.err != nil {
		unwrapped = append(unwrapped, e.err)
	}
	return unwrapped
}

// Code returns the "<operation>.<reason>" identifier.
func (e *ServiceError) Code() string {
	return e.code
}

// Kind returns the sentinel kind, or nil for internal failures.
func (e *ServiceError) Kind() error {
	return e.kind
}

// Detail returns the client-facing message.
func (e *ServiceError) Detail() string {
	return e.detail
}

// Fields returns field-level validation messages keyed by external field name.
func (e *ServiceError) Fields() map[string]string {
	return e.fields
}

// KindOf reports the first known kind in err's chain, or nil.
func KindOf(err error) error {
	for _, kind := range []error{
		ErrValidation,
		ErrDuplicateRelationship,
		ErrRelationshipNotFound,
		ErrSelfSubscriptionForbidden,
		ErrNotFound,
		ErrPermissionDenied,
		ErrUnauthenticated,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// Package aifserrors defines the engine's error kinds
// (NotFound/InvalidArgument/AlreadyExists/...) and their mapping onto gRPC
// status codes, without tying the engine's internals to the RPC layer.
package aifserrors

import (
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind is one of the error kinds named in the engine's error handling design.
type Kind string

const (
	NotFound           Kind = "NotFound"
	InvalidArgument    Kind = "InvalidArgument"
	AlreadyExists      Kind = "AlreadyExists"
	FailedPrecondition Kind = "FailedPrecondition"
	PermissionDenied   Kind = "PermissionDenied"
	Unauthenticated    Kind = "Unauthenticated"
	ResourceExhausted  Kind = "ResourceExhausted"
	DataCorruption     Kind = "DataCorruption"
	Internal           Kind = "Internal"
)

// Error is the engine's structured error type. Every error that crosses a
// component boundary should be one of these rather than an opaque fmt.Errorf.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an Error of the given kind.
func New(kind Kind, message string, details map[string]string) *Error {
	return &Error{Kind: kind, Message: message, Details: details}
}

// Wrap builds an Error of the given kind carrying the original cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

func NotFoundf(resourceType, resourceID string) *Error {
	return New(NotFound, fmt.Sprintf("%s %q not found", resourceType, resourceID),
		map[string]string{"resource_type": resourceType, "resource_id": resourceID})
}

func InvalidArgumentf(field, reason string) *Error {
	return New(InvalidArgument, fmt.Sprintf("invalid argument for field %q: %s", field, reason),
		map[string]string{"field": field, "reason": reason})
}

func AlreadyExistsf(resourceType, resourceID string) *Error {
	return New(AlreadyExists, fmt.Sprintf("%s %q already exists", resourceType, resourceID),
		map[string]string{"resource_type": resourceType, "resource_id": resourceID})
}

func FailedPreconditionf(condition, reason string) *Error {
	return New(FailedPrecondition, fmt.Sprintf("precondition failed: %s: %s", condition, reason),
		map[string]string{"condition": condition, "reason": reason})
}

func PermissionDeniedf(operation, resource string) *Error {
	return New(PermissionDenied, fmt.Sprintf("permission denied for operation %q on resource %q", operation, resource),
		map[string]string{"operation": operation, "resource": resource})
}

// grpcCode maps a Kind onto the standard gRPC status code space (spec §6.3).
func grpcCode(k Kind) codes.Code {
	switch k {
	case NotFound:
		return codes.NotFound
	case InvalidArgument:
		return codes.InvalidArgument
	case AlreadyExists:
		return codes.AlreadyExists
	case FailedPrecondition:
		return codes.FailedPrecondition
	case PermissionDenied:
		return codes.PermissionDenied
	case Unauthenticated:
		return codes.Unauthenticated
	case ResourceExhausted:
		return codes.ResourceExhausted
	case DataCorruption:
		// DataCorruption has no direct gRPC analogue; Internal is the closest
		// standard code and matches spec §7's "surfaced immediately" policy.
		return codes.Internal
	default:
		return codes.Internal
	}
}

// ToStatus converts an *Error (or any error) into a gRPC status.
func ToStatus(err error) *status.Status {
	aerr, ok := err.(*Error)
	if !ok {
		return status.New(codes.Internal, err.Error())
	}
	return status.New(grpcCode(aerr.Kind), aerr.Message)
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	aerr, ok := err.(*Error)
	return ok && aerr.Kind == kind
}

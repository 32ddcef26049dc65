package errors

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"
)

// Map converts domain and infra errors into gRPC status errors.
// Storage details are not echoed to clients.
func Map(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var de *Error
	if errors.As(err, &de) {
		switch de.Kind {
		case KindNotFound:
			return status.Error(codes.NotFound, de.Msg)
		case KindUnauthorized:
			return status.Error(codes.PermissionDenied, de.Msg)
		case KindValidation:
			return status.Error(codes.InvalidArgument, de.Msg)
		case KindConflict:
			return status.Error(codes.AlreadyExists, de.Msg)
		}
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return status.Error(codes.NotFound, "record not found")

	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "request timed out")

	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request was canceled")

	default:
		return status.Error(codes.Internal, "internal storage error")
	}
}

// InvalidArgument creates a gRPC InvalidArgument error.
// Use this in the rpc layer for malformed requests.
func InvalidArgument(msg string) error {
	return status.Error(codes.InvalidArgument, msg)
}

// Unauthenticated creates a gRPC Unauthenticated error for missing or bad tokens.
func Unauthenticated(msg string) error {
	return status.Error(codes.Unauthenticated, msg)
}

package grpcx

import (
	"context"
	"errors"

	"github.com/cwrk-planet/lobby-service/internal/domain"
	"github.com/cwrk-planet/lobby-service/pkg/errs"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	mdErrorCode = "x-error-code"
	mdStage     = "x-provisioning-stage"
)

// mapErr: вид ошибки -> код gRPC; машинный код и стадия уходят в trailer.
func mapErr(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	trailer := metadata.Pairs(mdErrorCode, errs.Code(err))
	if stage := domain.StageOf(err); stage != "" {
		trailer.Append(mdStage, stage)
	}
	_ = grpc.SetTrailer(ctx, trailer)

	switch {
	case errors.Is(err, errs.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, errs.ErrUnauthorized):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, errs.ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, errs.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, errs.ErrConflict), errors.Is(err, errs.ErrInvalidState):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, errs.ErrProvisioning), errors.Is(err, errs.ErrUpstream), errors.Is(err, errs.ErrUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

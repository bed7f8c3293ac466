package grpcx

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/cwrk-planet/lobby-service/pkg/httputil"
	"github.com/cwrk-planet/lobby-service/pkg/logger"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const mdRequestID = "x-request-id"

func recoveryUnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("grpc unary panic",
					"method", info.FullMethod,
					"panic", r,
					"stack", string(debug.Stack()))
				err = status.Error(codes.Internal, "internal server error")
			}
		}()

		return handler(ctx, req)
	}
}

// requestIDInterceptor берёт x-request-id из metadata или выдаёт новый и
// кладёт в контекст логгер запроса.
func requestIDInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		ctx = withRequestScope(ctx, info.FullMethod)
		return handler(ctx, req)
	}
}

func withRequestScope(ctx context.Context, method string) context.Context {
	md, _ := metadata.FromIncomingContext(ctx)
	reqID := httputil.NormalizeRequestID(first(md.Get(mdRequestID)))
	_ = grpc.SetHeader(ctx, metadata.Pairs(mdRequestID, reqID))

	ctx = httputil.WithRequestID(ctx, reqID)
	return logger.WithContext(ctx, logger.FromContext(ctx).With("req_id", reqID, "method", method))
}

// loggingUnaryInterceptor + deadline guard, если у вызова нет deadline.
func loggingUnaryInterceptor(guard time.Duration) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp any, err error) {
		start := time.Now()
		if _, ok := ctx.Deadline(); !ok && guard > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, guard)
			defer cancel()
		}

		resp, err = handler(ctx, req)

		l := logger.FromContext(ctx)
		code := status.Code(err)
		if code == codes.Internal || code == codes.Unknown {
			l.Error("grpc unary", "code", code.String(), "duration", time.Since(start), logger.Err(err))
		} else {
			l.Info("grpc unary", "code", code.String(), "duration", time.Since(start))
		}
		return resp, err
	}
}

func streamServerInterceptor() grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) (err error) {
		start := time.Now()
		ctx := withRequestScope(ss.Context(), info.FullMethod)

		defer func() {
			if r := recover(); r != nil {
				slog.Error("grpc stream panic",
					"method", info.FullMethod,
					"panic", r,
					"stack", string(debug.Stack()))
				err = status.Error(codes.Internal, "internal server error")
			}
			logger.FromContext(ctx).Info("grpc stream",
				"code", status.Code(err).String(),
				"duration", time.Since(start))
		}()

		return handler(srv, &scopedStream{ServerStream: ss, ctx: ctx})
	}
}

type scopedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *scopedStream) Context() context.Context { return s.ctx }

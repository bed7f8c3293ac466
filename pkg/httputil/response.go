package httputil

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/cwrk-planet/lobby-service/pkg/errs"
	"github.com/cwrk-planet/lobby-service/pkg/logger"
)

type envelope map[string]any

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write json response failed", slog.Any("err", err))
	}
}

// OK - «успешный» ответ с обёрткой.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, envelope{"data": data})
}

func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, envelope{"data": data})
}

func Accepted(w http.ResponseWriter, data any) {
	JSON(w, http.StatusAccepted, envelope{"data": data})
}

// Error - унифицированная ошибка (message + meta).
func Error(ctx context.Context, w http.ResponseWriter, status int, msg string, meta map[string]any) {
	body := envelope{"message": msg}
	if len(meta) > 0 {
		body["meta"] = meta
	}
	if reqID, ok := RequestIDFrom(ctx); ok {
		body["request_id"] = reqID
	}
	JSON(w, status, envelope{"error": body})
}

// Fail переводит ошибку в статус по её виду. 5xx логируются, текст
// внутренних ошибок наружу не уходит.
func Fail(ctx context.Context, w http.ResponseWriter, err error) {
	status := errs.ToHTTP(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		logger.FromContext(ctx).Error("request failed", logger.Err(err))
		msg = http.StatusText(status)
	}
	Error(ctx, w, status, msg, map[string]any{"code": errs.Code(err)})
}

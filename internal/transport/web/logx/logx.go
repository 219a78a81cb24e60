// Package logx — единый формат логов обработчиков: req_id, op, сообщение, пары ключ-значение.
package logx

import "go.uber.org/zap"

func Info(l *zap.Logger, reqID, op, msg string, kv ...any) {
	l.Sugar().Infow(msg, with(reqID, op, kv)...)
}

func Warn(l *zap.Logger, reqID, op, msg string, kv ...any) {
	l.Sugar().Warnw(msg, with(reqID, op, kv)...)
}

func Error(l *zap.Logger, reqID, op, msg string, err error, kv ...any) {
	l.Sugar().Errorw(msg, append(with(reqID, op, kv), "error", err)...)
}

func with(reqID, op string, kv []any) []any {
	out := make([]any, 0, len(kv)+4)
	out = append(out, "req_id", reqID, "op", op)
	return append(out, kv...)
}

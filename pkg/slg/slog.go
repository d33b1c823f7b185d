package slg

import (
	"context"

	"log/slog"
)

type slogKeyType struct {
	Name string
}

var slogKey = &slogKeyType{Name: "slog"}

func GetSlog(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(slogKey).(*slog.Logger); ok {
		return logger
	}

	return slog.Default()
}

func WithSlog(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, slogKey, log)
}

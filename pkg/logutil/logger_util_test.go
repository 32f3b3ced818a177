package logutil

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
)

func TestLoggerFromContextPrefersContext(t *testing.T) {
	var buf bytes.Buffer
	ctxLog := zerolog.New(&buf)
	ctx := ctxLog.WithContext(context.Background())
	fallback := zerolog.Nop()

	LoggerFromContext(ctx, &fallback).Info().Msg("from ctx")
	if !bytes.Contains(buf.Bytes(), []byte("from ctx")) {
		t.Fatalf("expected context logger to be used, got %q", buf.String())
	}
}

func TestLoggerFromContextFallback(t *testing.T) {
	var buf bytes.Buffer
	fallback := zerolog.New(&buf)
	LoggerFromContext(context.Background(), &fallback).Info().Msg("fallback")
	if !bytes.Contains(buf.Bytes(), []byte("fallback")) {
		t.Fatalf("expected fallback logger to be used, got %q", buf.String())
	}
}

func TestLoggerFromContextNilFallback(t *testing.T) {
	if LoggerFromContext(context.Background(), nil) == nil {
		t.Fatalf("expected nop logger")
	}
}

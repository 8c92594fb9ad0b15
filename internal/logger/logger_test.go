package logger

import (
	"context"
	"testing"
)

func TestRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-123")
	if got := RequestID(ctx); got != "req-123" {
		t.Errorf("expected req-123, got %q", got)
	}
	if got := RequestID(context.Background()); got != "" {
		t.Errorf("expected empty id, got %q", got)
	}
}

func TestFromContext(t *testing.T) {
	Init("test")
	if FromContext(context.Background()) == nil {
		t.Fatal("expected logger without request id")
	}
	if FromContext(WithRequestID(context.Background(), "abc")) == nil {
		t.Fatal("expected logger with request id")
	}
}

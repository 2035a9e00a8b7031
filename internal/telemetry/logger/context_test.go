package logger

import (
	"context"
	"testing"
)

func TestWithLogger_FromContext(t *testing.T) {
	l, buf := newBufferLogger(t, "info")
	ctx := WithLogger(context.Background(), l)

	FromContext(ctx).Info("hello")
	if buf.Len() == 0 {
		t.Error("logger from context should write to the configured buffer")
	}

	if FromContext(context.Background()) == nil {
		t.Error("FromContext without logger should return the default")
	}
}

func TestContextIDs(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-123")
	ctx = WithSessionID(ctx, "0123456789abcdefXYZ")

	if got := RequestIDFromContext(ctx); got != "req-123" {
		t.Errorf("RequestIDFromContext() = %q", got)
	}
	if got := SessionIDFromContext(ctx); got != "0123456789abcdefXYZ" {
		t.Errorf("SessionIDFromContext() = %q", got)
	}
	if RequestIDFromContext(context.Background()) != "" || SessionIDFromContext(context.Background()) != "" {
		t.Error("empty context should yield empty IDs")
	}
}

func TestL_EnrichesAndMasks(t *testing.T) {
	l, buf := newBufferLogger(t, "info")

	ctx := WithLogger(context.Background(), l)
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithSessionID(ctx, "0123456789abcdefXYZ")

	L(ctx).Info("opened")

	entry := decodeLine(t, buf)
	if entry["request_id"] != "req-1" {
		t.Errorf("request_id = %v", entry["request_id"])
	}
	if entry["session_id"] != "0123...fXYZ" {
		t.Errorf("session_id = %v, want masked", entry["session_id"])
	}
}

func TestL_NoIDs(t *testing.T) {
	l, buf := newBufferLogger(t, "info")

	L(WithLogger(context.Background(), l)).Info("plain")

	entry := decodeLine(t, buf)
	if _, ok := entry["request_id"]; ok {
		t.Error("request_id should be absent")
	}
	if _, ok := entry["session_id"]; ok {
		t.Error("session_id should be absent")
	}
}

package logger

import (
	"context"
	"testing"
)

func TestRequestIDFromContext(t *testing.T) {
	ctx := context.Background()
	if got := RequestIDFromContext(ctx); got != "" {
		t.Errorf("RequestIDFromContext() on empty context = %q", got)
	}

	ctx = WithRequestID(ctx, "01J9Z3M6T7Q4B8N2C5X0V1R9KD")
	if got := RequestIDFromContext(ctx); got != "01J9Z3M6T7Q4B8N2C5X0V1R9KD" {
		t.Errorf("RequestIDFromContext() = %q", got)
	}
	if got := ClientFromContext(ctx); got != "" {
		t.Errorf("ClientFromContext() = %q, want empty", got)
	}
}

func TestContextAttrs(t *testing.T) {
	tests := []struct {
		name       string
		ctx        context.Context
		wantReqID  any
		wantClient any
	}{
		{"empty", context.Background(), nil, nil},
		{"request id", WithRequestID(context.Background(), "req-12345"), "req-12345", nil},
		{"client", WithClient(context.Background(), "10.0.0.7:51234"), nil, "10.0.0.7:51234"},
		{"both", WithClient(WithRequestID(context.Background(), "req-9"), "[::1]:6000"), "req-9", "[::1]:6000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, buf := newBufferLogger(t, Config{Level: "info", Format: "json"})

			l.WithContext(tt.ctx).With("op", "get").Info("test message")

			entry := decodeEntry(t, buf)
			if entry["request_id"] != tt.wantReqID {
				t.Errorf("request_id = %v, want %v", entry["request_id"], tt.wantReqID)
			}
			if entry["client"] != tt.wantClient {
				t.Errorf("client = %v, want %v", entry["client"], tt.wantClient)
			}
			if entry["op"] != "get" {
				t.Errorf("op = %v, want get", entry["op"])
			}
		})
	}
}

func TestContextAttrs_UnboundLogger(t *testing.T) {
	l, buf := newBufferLogger(t, Config{Level: "info", Format: "json"})

	l.Info("no context")

	if entry := decodeEntry(t, buf); entry["request_id"] != nil {
		t.Errorf("unbound logger should not add request_id, got %v", entry["request_id"])
	}
}

package apierr

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"

	"qbadmin/internal/gateway"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		kind   Kind
		status int
		msg    string
	}{
		{
			name:   "structured api error",
			err:    fmt.Errorf("approve kyc: %w", &gateway.APIError{StatusCode: 409, Message: "already approved"}),
			kind:   API,
			status: 409,
			msg:    "already approved",
		},
		{
			name:   "api error without message",
			err:    &gateway.APIError{StatusCode: 502, Body: "<html>"},
			kind:   API,
			status: 502,
			msg:    "api error: status=502 body=<html>",
		},
		{
			name: "transport error",
			err:  &url.Error{Op: "Get", URL: "http://x", Err: errors.New("connection refused")},
			kind: Network,
			msg:  networkMessage,
		},
		{
			name: "deadline",
			err:  context.DeadlineExceeded,
			kind: Network,
			msg:  networkMessage,
		},
		{
			name: "plain error",
			err:  errors.New("token required"),
			kind: Unknown,
			msg:  "token required",
		},
		{
			name: "empty message falls back",
			err:  errors.New("  "),
			kind: Unknown,
			msg:  "failed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.err)
			if got.Kind != tt.kind || got.Status != tt.status || got.Message != tt.msg {
				t.Fatalf("Normalize = %+v, want kind=%s status=%d msg=%q", got, tt.kind, tt.status, tt.msg)
			}
			if !errors.Is(got, tt.err) {
				t.Fatalf("normalised error should unwrap to the original")
			}
		})
	}
}

func TestMessageNil(t *testing.T) {
	if Message(nil) != "" {
		t.Fatalf("nil error should have no message")
	}
	if Normalize(nil).Kind != Unknown {
		t.Fatalf("nil normalises to zero value")
	}
}

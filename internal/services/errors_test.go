package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"reelforge/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrProvider, "images", "generate", "provider rejected prompt", base)
	if !errors.Is(err, services.ErrProvider) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"images", "generate", "provider rejected prompt", "boom"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapNilMarkerDefaultsToProvider(t *testing.T) {
	err := services.Wrap(nil, "audio", "", "", nil)
	if !errors.Is(err, services.ErrProvider) {
		t.Fatalf("expected provider marker, got %v", err)
	}
}

func TestDetailsSurvivesOuterWrapping(t *testing.T) {
	inner := services.Wrap(services.ErrValidation, "orchestrator", "advance", "voice missing", nil)
	outer := fmt.Errorf("advance session: %w", inner)

	details := services.Details(outer)
	if details.Kind != services.KindValidation {
		t.Fatalf("expected validation kind, got %s", details.Kind)
	}
	if details.Stage != "orchestrator" || details.Operation != "advance" {
		t.Fatalf("unexpected details: %+v", details)
	}
	if details.Message != "voice missing" {
		t.Fatalf("unexpected message: %q", details.Message)
	}
}

func TestKindOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want services.Kind
	}{
		{"nil", nil, ""},
		{"context canceled", context.Canceled, services.KindCancelled},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), services.KindProvider},
		{"concurrent", services.ErrConcurrentOperation, services.KindConcurrentOperation},
		{"transition", services.Wrap(services.ErrInvalidTransition, "", "retry", "", nil), services.KindInvalidTransition},
		{"plain", errors.New("x"), services.KindUnknown},
	}
	for _, tc := range cases {
		if got := services.KindOf(tc.err); got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
	}
}

func TestIsCancellation(t *testing.T) {
	if !services.IsCancellation(services.Wrap(services.ErrCancelled, "audio", "", "", context.Canceled)) {
		t.Fatal("expected cancellation")
	}
	if services.IsCancellation(services.ErrProvider) {
		t.Fatal("provider error is not a cancellation")
	}
}

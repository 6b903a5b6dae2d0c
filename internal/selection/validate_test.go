package selection_test

import (
	"errors"
	"testing"

	"reelforge/internal/selection"
	"reelforge/internal/services"
	"reelforge/internal/session"
)

func validInput() selection.Input {
	return selection.Input{
		Script:                "How to save money",
		Duration:              30,
		Voice:                 "voice2",
		Voices:                session.DefaultVoices(),
		CredentialsConfigured: true,
	}
}

func TestValidateAcceptsCompleteSelection(t *testing.T) {
	if err := selection.Validate(validInput()); err != nil {
		t.Fatalf("expected valid input, got %v", err)
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*selection.Input)
		missing []string
		invalid []string
	}{
		{
			name:    "missing voice",
			mutate:  func(in *selection.Input) { in.Voice = "" },
			missing: []string{"voice"},
		},
		{
			name:    "unknown voice",
			mutate:  func(in *selection.Input) { in.Voice = "voice9" },
			invalid: []string{"voice"},
		},
		{
			name:    "missing duration",
			mutate:  func(in *selection.Input) { in.Duration = 0 },
			missing: []string{"duration"},
		},
		{
			name:    "off-grid duration",
			mutate:  func(in *selection.Input) { in.Duration = 45 },
			invalid: []string{"duration"},
		},
		{
			name:    "blank script",
			mutate:  func(in *selection.Input) { in.Script = "   " },
			missing: []string{"script"},
		},
		{
			name:    "credentials",
			mutate:  func(in *selection.Input) { in.CredentialsConfigured = false },
			missing: []string{"credentials"},
		},
		{
			name: "everything",
			mutate: func(in *selection.Input) {
				*in = selection.Input{Duration: 130, Voices: session.DefaultVoices()}
			},
			missing: []string{"credentials", "script", "voice"},
			invalid: []string{"duration"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			err := selection.Validate(in)
			var verr *selection.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected ErrValidation marker, got %v", err)
			}
			if !equal(verr.MissingFields, tt.missing) {
				t.Fatalf("missing = %v, want %v", verr.MissingFields, tt.missing)
			}
			if !equal(verr.InvalidFields, tt.invalid) {
				t.Fatalf("invalid = %v, want %v", verr.InvalidFields, tt.invalid)
			}
		})
	}
}

func TestValidateSelectionAllowsUnsetFields(t *testing.T) {
	if err := selection.ValidateSelection(0, "", session.DefaultVoices()); err != nil {
		t.Fatalf("expected unset selection to pass, got %v", err)
	}
	err := selection.ValidateSelection(25, "voice1", session.DefaultVoices())
	var verr *selection.ValidationError
	if !errors.As(err, &verr) || !verr.Has(selection.FieldDuration) {
		t.Fatalf("expected invalid duration, got %v", err)
	}
}

func TestValidateRegeneration(t *testing.T) {
	if err := selection.ValidateRegeneration(session.PhaseReviewingContent, session.StageImages); err != nil {
		t.Fatalf("expected images regeneration to be allowed, got %v", err)
	}
	for _, kind := range []session.StageKind{session.StageAudio, session.StageThumbnail, session.StageFinalVideo} {
		err := selection.ValidateRegeneration(session.PhaseReviewingContent, kind)
		if services.KindOf(err) != services.KindValidation {
			t.Fatalf("regenerate %s: expected validation error, got %v", kind, err)
		}
	}
	err := selection.ValidateRegeneration(session.PhaseComplete, session.StageImages)
	if !errors.Is(err, services.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition outside review, got %v", err)
	}
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

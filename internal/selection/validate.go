package selection

import (
	"fmt"
	"sort"
	"strings"

	"reelforge/internal/services"
	"reelforge/internal/session"
)

// Field names reported by ValidationError.
const (
	FieldScript      = "script"
	FieldDuration    = "duration"
	FieldVoice       = "voice"
	FieldCredentials = "credentials"
	FieldStage       = "stage"
)

// Input is everything Validate needs to decide whether generation may start.
type Input struct {
	Script                string
	Duration              session.Duration
	Voice                 session.VoiceID
	Voices                []session.Voice
	CredentialsConfigured bool
}

// InputFor builds an Input from a session's current selections.
func InputFor(s *session.Session, voices []session.Voice, credentialsConfigured bool) Input {
	return Input{
		Script:                s.Script,
		Duration:              s.Duration,
		Voice:                 s.Voice,
		Voices:                voices,
		CredentialsConfigured: credentialsConfigured,
	}
}

// ValidationError lists the fields that block progress.
type ValidationError struct {
	MissingFields []string
	InvalidFields []string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, 2)
	if len(e.MissingFields) > 0 {
		parts = append(parts, "missing "+strings.Join(e.MissingFields, ", "))
	}
	if len(e.InvalidFields) > 0 {
		parts = append(parts, "invalid "+strings.Join(e.InvalidFields, ", "))
	}
	if len(parts) == 0 {
		return "validation error"
	}
	return "validation error: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return services.ErrValidation
}

// Has reports whether field is listed as missing or invalid.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.MissingFields {
		if f == field {
			return true
		}
	}
	for _, f := range e.InvalidFields {
		if f == field {
			return true
		}
	}
	return false
}

func (e *ValidationError) empty() bool {
	return len(e.MissingFields) == 0 && len(e.InvalidFields) == 0
}

// Validate checks that the script is present, the duration is one of the
// selectable values, the voice is in the catalog, and credentials are
// configured. It returns nil or a *ValidationError.
func Validate(in Input) error {
	verr := &ValidationError{}

	if strings.TrimSpace(in.Script) == "" {
		verr.MissingFields = append(verr.MissingFields, FieldScript)
	}

	switch {
	case in.Duration == 0:
		verr.MissingFields = append(verr.MissingFields, FieldDuration)
	case !in.Duration.Valid():
		verr.InvalidFields = append(verr.InvalidFields, FieldDuration)
	}

	switch {
	case strings.TrimSpace(string(in.Voice)) == "":
		verr.MissingFields = append(verr.MissingFields, FieldVoice)
	case !voiceKnown(in.Voices, in.Voice):
		verr.InvalidFields = append(verr.InvalidFields, FieldVoice)
	}

	if !in.CredentialsConfigured {
		verr.MissingFields = append(verr.MissingFields, FieldCredentials)
	}

	if verr.empty() {
		return nil
	}
	sort.Strings(verr.MissingFields)
	sort.Strings(verr.InvalidFields)
	return verr
}

// ValidateSelection checks only the fields a caller may change while
// configuring. Zero values are treated as "not chosen yet".
func ValidateSelection(duration session.Duration, voice session.VoiceID, voices []session.Voice) error {
	verr := &ValidationError{}
	if duration != 0 && !duration.Valid() {
		verr.InvalidFields = append(verr.InvalidFields, FieldDuration)
	}
	if voice != "" && !voiceKnown(voices, voice) {
		verr.InvalidFields = append(verr.InvalidFields, FieldVoice)
	}
	if verr.empty() {
		return nil
	}
	return verr
}

// ValidateRegeneration reports whether kind may be regenerated while the
// session is in phase. Only images are regenerable, and only during review.
func ValidateRegeneration(phase session.Phase, kind session.StageKind) error {
	if phase != session.PhaseReviewingContent {
		return services.Wrap(services.ErrInvalidTransition, string(kind), "regenerate",
			fmt.Sprintf("regeneration is not available in phase %s", phase), nil)
	}
	if kind != session.StageImages {
		return &ValidationError{InvalidFields: []string{FieldStage}}
	}
	return nil
}

func voiceKnown(voices []session.Voice, id session.VoiceID) bool {
	for _, v := range voices {
		if v.ID == id {
			return true
		}
	}
	return false
}

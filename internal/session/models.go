package session

import (
	"fmt"
	"strings"
)

// Phase is the orchestrator-level state spanning one or more stages.
type Phase string

const (
	PhaseConfiguring       Phase = "configuring"
	PhaseGeneratingContent Phase = "generating_content"
	PhaseReviewingContent  Phase = "reviewing_content"
	PhaseFinalizing        Phase = "finalizing"
	PhaseComplete          Phase = "complete"
	PhaseFailed            Phase = "failed"
)

var allPhases = []Phase{
	PhaseConfiguring,
	PhaseGeneratingContent,
	PhaseReviewingContent,
	PhaseFinalizing,
	PhaseComplete,
	PhaseFailed,
}

// phaseRank orders the forward path; failed has no rank of its own.
var phaseRank = map[Phase]int{
	PhaseConfiguring:       0,
	PhaseGeneratingContent: 1,
	PhaseReviewingContent:  2,
	PhaseFinalizing:        3,
	PhaseComplete:          4,
}

// AllPhases returns every phase, forward path first.
func AllPhases() []Phase {
	return append([]Phase(nil), allPhases...)
}

// ParsePhase converts a string into a known Phase.
func ParsePhase(value string) (Phase, bool) {
	normalized := Phase(strings.ToLower(strings.TrimSpace(value)))
	for _, p := range allPhases {
		if p == normalized {
			return p, true
		}
	}
	return "", false
}

// Terminal reports whether no forward transition leaves the phase.
func (p Phase) Terminal() bool {
	return p == PhaseComplete
}

// AtLeast reports whether p is at or beyond other on the forward path.
// PhaseFailed is never at least anything; use Session.EffectivePhase.
func (p Phase) AtLeast(other Phase) bool {
	a, okA := phaseRank[p]
	b, okB := phaseRank[other]
	return okA && okB && a >= b
}

// StageKind names one unit of external generation work.
type StageKind string

const (
	StageAudio      StageKind = "audio"
	StageImages     StageKind = "images"
	StageThumbnail  StageKind = "thumbnail"
	StageFinalVideo StageKind = "final_video"
)

var allStages = []StageKind{StageAudio, StageImages, StageThumbnail, StageFinalVideo}

// AllStages returns the stage kinds in execution order.
func AllStages() []StageKind {
	cp := make([]StageKind, len(allStages))
	copy(cp, allStages)
	return cp
}

// ParseStageKind converts a string into a known StageKind. Hyphens and
// spaces are accepted in place of underscores.
func ParseStageKind(value string) (StageKind, bool) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	for _, k := range allStages {
		if string(k) == normalized {
			return k, true
		}
	}
	return "", false
}

// StagesForPhase lists the stages a phase executes, in order.
func StagesForPhase(p Phase) []StageKind {
	switch p {
	case PhaseGeneratingContent:
		return []StageKind{StageAudio, StageImages, StageThumbnail}
	case PhaseFinalizing:
		return []StageKind{StageFinalVideo}
	default:
		return nil
	}
}

// Dependencies lists the upstream stages whose artifacts a stage consumes.
func (k StageKind) Dependencies() []StageKind {
	switch k {
	case StageThumbnail:
		return []StageKind{StageImages}
	case StageFinalVideo:
		return []StageKind{StageAudio, StageImages, StageThumbnail}
	default:
		return nil
	}
}

// Status is the lifecycle of one StageRecord.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	switch s := Status(strings.ToLower(strings.TrimSpace(value))); s {
	case StatusPending, StatusRunning, StatusSucceeded, StatusFailed:
		return s, true
	default:
		return "", false
	}
}

// Duration is the target video length in seconds.
type Duration int

const (
	minDuration  Duration = 10
	maxDuration  Duration = 120
	durationStep Duration = 10
)

// Durations returns the selectable durations in ascending order.
func Durations() []Duration {
	out := make([]Duration, 0, int((maxDuration-minDuration)/durationStep)+1)
	for d := minDuration; d <= maxDuration; d += durationStep {
		out = append(out, d)
	}
	return out
}

// Valid reports whether d is one of the selectable durations.
func (d Duration) Valid() bool {
	return d >= minDuration && d <= maxDuration && d%durationStep == 0
}

// Label renders the duration as "30s" under a minute and "1:30" otherwise.
func (d Duration) Label() string {
	if d < 60 {
		return fmt.Sprintf("%ds", int(d))
	}
	return fmt.Sprintf("%d:%02d", int(d)/60, int(d)%60)
}

// VoiceID identifies a narration voice from the configured catalog.
type VoiceID string

// Voice describes one catalog entry.
type Voice struct {
	ID   VoiceID `toml:"id" json:"id"`
	Name string  `toml:"name" json:"name"`
}

// DefaultVoices is the catalog used when configuration does not supply one.
func DefaultVoices() []Voice {
	return []Voice{
		{ID: "voice1", Name: "João - Masculina Grave"},
		{ID: "voice2", Name: "Maria - Feminina Suave"},
		{ID: "voice3", Name: "Pedro - Masculina Jovem"},
		{ID: "voice4", Name: "Ana - Feminina Profissional"},
	}
}

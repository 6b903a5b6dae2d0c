package session

import (
	"strings"
	"time"
)

// ArtifactRef is a handle into the artifact store.
type ArtifactRef struct {
	SessionID string    `json:"session_id"`
	Stage     StageKind `json:"stage"`
	Version   int       `json:"version"`
}

// ErrorInfo records why a stage execution failed.
type ErrorInfo struct {
	Kind    string    `json:"kind"`
	Stage   StageKind `json:"stage"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// StageRecord is the result of the most recent execution of one stage.
type StageRecord struct {
	Kind        StageKind         `json:"kind"`
	Status      Status            `json:"status"`
	Version     int               `json:"version"`
	ArtifactRef *ArtifactRef      `json:"artifact_ref,omitempty"`
	Inputs      map[StageKind]int `json:"inputs,omitempty"`
	Error       *ErrorInfo        `json:"error,omitempty"`
	Attempts    int               `json:"attempts"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Session is one generation attempt.
type Session struct {
	ID         string
	Title      string
	Script     string
	Duration   Duration
	Voice      VoiceID
	Phase      Phase
	FailedFrom Phase
	Stages     map[StageKind]*StageRecord
	// ChannelURL and References come from the optional channel analysis at
	// creation.
	ChannelURL  string
	References  []Reference
	Publication *Publication
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// New creates a session in the configuring phase with every stage pending.
func New(id, title, script string) *Session {
	now := time.Now().UTC()
	s := &Session{
		ID:        id,
		Title:     strings.TrimSpace(title),
		Script:    strings.TrimSpace(script),
		Phase:     PhaseConfiguring,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.ResetStages()
	return s
}

// ResetStages discards every stage record and recreates them pending.
func (s *Session) ResetStages() {
	now := time.Now().UTC()
	s.Stages = make(map[StageKind]*StageRecord, len(allStages))
	for _, kind := range allStages {
		s.Stages[kind] = &StageRecord{Kind: kind, Status: StatusPending, UpdatedAt: now}
	}
}

// Record returns the stage record for kind, creating a pending one if the
// session was restored without it.
func (s *Session) Record(kind StageKind) *StageRecord {
	if s.Stages == nil {
		s.Stages = make(map[StageKind]*StageRecord, len(allStages))
	}
	rec, ok := s.Stages[kind]
	if !ok || rec == nil {
		rec = &StageRecord{Kind: kind, Status: StatusPending, UpdatedAt: time.Now().UTC()}
		s.Stages[kind] = rec
	}
	return rec
}

// EffectivePhase returns the phase the session is working in, resolving
// PhaseFailed to the phase it failed from.
func (s *Session) EffectivePhase() Phase {
	if s.Phase == PhaseFailed && s.FailedFrom != "" {
		return s.FailedFrom
	}
	return s.Phase
}

// Touch bumps the session's modification time.
func (s *Session) Touch() {
	s.UpdatedAt = time.Now().UTC()
}

// SetRunning marks the record as executing.
func (r *StageRecord) SetRunning() {
	r.Status = StatusRunning
	r.Error = nil
	r.Attempts++
	r.UpdatedAt = time.Now().UTC()
}

// SetSucceeded points the record at a freshly stored artifact version.
func (r *StageRecord) SetSucceeded(ref ArtifactRef, inputs map[StageKind]int) {
	r.Status = StatusSucceeded
	r.Version = ref.Version
	refCopy := ref
	r.ArtifactRef = &refCopy
	r.Inputs = copyInputs(inputs)
	r.Error = nil
	r.UpdatedAt = time.Now().UTC()
}

// SetFailed records the failure; version and artifact reference are kept so
// earlier output remains addressable.
func (r *StageRecord) SetFailed(kind, message string) {
	now := time.Now().UTC()
	r.Status = StatusFailed
	r.Error = &ErrorInfo{Kind: kind, Stage: r.Kind, Message: message, At: now}
	r.UpdatedAt = now
}

// SetPending returns the record to pending without discarding its version.
func (r *StageRecord) SetPending() {
	r.Status = StatusPending
	r.UpdatedAt = time.Now().UTC()
}

// Clone returns a deep copy of the record.
func (r *StageRecord) Clone() *StageRecord {
	if r == nil {
		return nil
	}
	cp := *r
	if r.ArtifactRef != nil {
		ref := *r.ArtifactRef
		cp.ArtifactRef = &ref
	}
	if r.Error != nil {
		info := *r.Error
		cp.Error = &info
	}
	cp.Inputs = copyInputs(r.Inputs)
	return &cp
}

// Stale reports whether the record consumed upstream versions other than the
// ones given in latest.
//
// A thumbnail reports stale once images are regenerated, since its Inputs
// still name the old images version. Only the final video is invalidated on
// staleness; the thumbnail changes only through its own regeneration.
func (r *StageRecord) Stale(latest map[StageKind]int) bool {
	if r == nil || r.Status != StatusSucceeded {
		return false
	}
	for _, dep := range r.Kind.Dependencies() {
		if r.Inputs[dep] != latest[dep] {
			return true
		}
	}
	return false
}

func copyInputs(in map[StageKind]int) map[StageKind]int {
	if len(in) == 0 {
		return nil
	}
	out := make(map[StageKind]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

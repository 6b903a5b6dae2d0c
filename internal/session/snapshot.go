package session

import "time"

// Snapshot is a read-only copy of a session handed to collaborators.
type Snapshot struct {
	ID         string                     `json:"id"`
	Title      string                     `json:"title,omitempty"`
	Script     string                     `json:"script"`
	Duration   Duration                   `json:"duration"`
	Voice      VoiceID                    `json:"voice"`
	Phase      Phase                      `json:"phase"`
	FailedFrom Phase                      `json:"failed_from,omitempty"`
	Stages     map[StageKind]*StageRecord `json:"stages"`
	ChannelURL string                     `json:"channel_url,omitempty"`
	References []Reference                `json:"references,omitempty"`
	// Publication is set once the final video has been published.
	Publication *Publication `json:"publication,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Snapshot deep-copies the session.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		ID:          s.ID,
		Title:       s.Title,
		Script:      s.Script,
		Duration:    s.Duration,
		Voice:       s.Voice,
		Phase:       s.Phase,
		FailedFrom:  s.FailedFrom,
		Stages:      make(map[StageKind]*StageRecord, len(s.Stages)),
		ChannelURL:  s.ChannelURL,
		References:  cloneReferences(s.References),
		Publication: s.Publication.Clone(),
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
	for kind, rec := range s.Stages {
		snap.Stages[kind] = rec.Clone()
	}
	return snap
}

// Stage returns a copy of the record for kind, or a pending placeholder.
func (s Snapshot) Stage(kind StageKind) StageRecord {
	if rec, ok := s.Stages[kind]; ok && rec != nil {
		return *rec.Clone()
	}
	return StageRecord{Kind: kind, Status: StatusPending}
}

// FromSnapshot rebuilds an owned session from a snapshot. Records left
// running by an interrupted process are rolled back to pending.
func FromSnapshot(snap Snapshot) *Session {
	s := &Session{
		ID:          snap.ID,
		Title:       snap.Title,
		Script:      snap.Script,
		Duration:    snap.Duration,
		Voice:       snap.Voice,
		Phase:       snap.Phase,
		FailedFrom:  snap.FailedFrom,
		ChannelURL:  snap.ChannelURL,
		References:  cloneReferences(snap.References),
		Publication: snap.Publication.Clone(),
		CreatedAt:   snap.CreatedAt,
		UpdatedAt:   snap.UpdatedAt,
	}
	if s.Phase == "" {
		s.Phase = PhaseConfiguring
	}
	s.Stages = make(map[StageKind]*StageRecord, len(allStages))
	for _, kind := range allStages {
		rec := snap.Stages[kind].Clone()
		if rec == nil {
			rec = &StageRecord{Kind: kind, Status: StatusPending}
		}
		rec.Kind = kind
		if rec.Status == StatusRunning {
			rec.Status = StatusPending
		}
		s.Stages[kind] = rec
	}
	return s
}

package api

import (
	"time"

	"reelforge/internal/artifact"
	"reelforge/internal/logging"
	"reelforge/internal/orchestrator"
	"reelforge/internal/preflight"
	"reelforge/internal/session"
)

// FromSnapshot converts a session snapshot to its API representation.
// Stages are listed in pipeline order.
func FromSnapshot(snap session.Snapshot) Session {
	dto := Session{
		ID:         snap.ID,
		Title:      snap.Title,
		Script:     snap.Script,
		Duration:   int(snap.Duration),
		Voice:      string(snap.Voice),
		Phase:      string(snap.Phase),
		FailedFrom: string(snap.FailedFrom),
		ChannelURL: snap.ChannelURL,
		CreatedAt:  formatTime(snap.CreatedAt),
		UpdatedAt:  formatTime(snap.UpdatedAt),
	}
	if snap.Duration != 0 {
		dto.DurationLabel = snap.Duration.Label()
	}
	for _, ref := range snap.References {
		dto.References = append(dto.References, Reference(ref))
	}
	if pub := snap.Publication; pub != nil {
		dto.Publication = &Publication{
			URL:          pub.URL,
			VideoVersion: pub.VideoVersion,
			PublishedAt:  formatTime(pub.PublishedAt),
		}
	}
	for _, kind := range session.AllStages() {
		dto.Stages = append(dto.Stages, fromStageRecord(snap.Stage(kind)))
	}
	return dto
}

// FromSnapshots converts a list of snapshots.
func FromSnapshots(snaps []session.Snapshot) []Session {
	out := make([]Session, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, FromSnapshot(snap))
	}
	return out
}

func fromStageRecord(rec session.StageRecord) StageRecord {
	dto := StageRecord{
		Stage:     string(rec.Kind),
		Status:    string(rec.Status),
		Version:   rec.Version,
		Attempts:  rec.Attempts,
		UpdatedAt: formatTime(rec.UpdatedAt),
	}
	if len(rec.Inputs) > 0 {
		dto.Inputs = make(map[string]int, len(rec.Inputs))
		for dep, v := range rec.Inputs {
			dto.Inputs[string(dep)] = v
		}
	}
	if rec.Error != nil {
		dto.Error = &StageError{
			Kind:    rec.Error.Kind,
			Message: rec.Error.Message,
			At:      formatTime(rec.Error.At),
		}
	}
	return dto
}

// FromEvent converts an orchestrator event. The session is included only
// when withSession is set, keeping polling payloads small.
func FromEvent(evt orchestrator.Event, withSession bool) Event {
	dto := Event{
		Seq:       evt.Seq,
		Timestamp: formatTime(evt.Timestamp),
		SessionID: evt.SessionID,
		Type:      string(evt.Type),
		Phase:     string(evt.Phase),
		Stage:     string(evt.Stage),
		Status:    string(evt.Status),
		Version:   evt.Version,
		Message:   evt.Message,
	}
	if withSession && evt.Snapshot != nil {
		s := FromSnapshot(*evt.Snapshot)
		dto.Session = &s
	}
	return dto
}

// FromEvents converts events and returns the cursor for the next poll.
func FromEvents(events []orchestrator.Event, since int64, withSession bool) EventsResponse {
	resp := EventsResponse{Events: make([]Event, 0, len(events)), Next: since}
	for _, evt := range events {
		resp.Events = append(resp.Events, FromEvent(evt, withSession))
		if evt.Seq > resp.Next {
			resp.Next = evt.Seq
		}
	}
	return resp
}

// FromArtifact describes art, embedding payloads when withPayload is set.
func FromArtifact(art artifact.Artifact, withPayload bool) Artifact {
	dto := Artifact{
		SessionID:  art.Ref.SessionID,
		Stage:      string(art.Ref.Stage),
		Version:    art.Ref.Version,
		CreatedAt:  formatTime(art.CreatedAt),
		TotalBytes: art.TotalBytes(),
		Items:      make([]ArtifactItem, 0, len(art.Items)),
	}
	for _, item := range art.Items {
		entry := ArtifactItem{
			ContentType:     item.ContentType,
			Size:            item.Size(),
			Label:           item.Metadata.Label,
			Width:           item.Metadata.Width,
			Height:          item.Metadata.Height,
			DurationSeconds: item.Metadata.DurationSeconds,
		}
		if withPayload {
			entry.Payload = item.Payload
		}
		dto.Items = append(dto.Items, entry)
	}
	return dto
}

// FromCatalog lists the voice catalog and selectable durations.
func FromCatalog(voices []session.Voice) CatalogResponse {
	resp := CatalogResponse{Voices: make([]Voice, 0, len(voices))}
	for _, v := range voices {
		resp.Voices = append(resp.Voices, Voice{ID: string(v.ID), Name: v.Name})
	}
	for _, d := range session.Durations() {
		resp.Durations = append(resp.Durations, int(d))
	}
	return resp
}

// FromChecks converts preflight results.
func FromChecks(results []preflight.Result) []CheckResult {
	out := make([]CheckResult, 0, len(results))
	for _, r := range results {
		out = append(out, CheckResult{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
	}
	return out
}

// FromLogEvents converts log hub entries.
func FromLogEvents(events []logging.LogEvent) []LogEvent {
	if len(events) == 0 {
		return nil
	}
	out := make([]LogEvent, 0, len(events))
	for _, evt := range events {
		out = append(out, LogEvent{
			Sequence:      evt.Sequence,
			Timestamp:     formatTime(evt.Timestamp),
			Level:         evt.Level,
			Message:       evt.Message,
			Component:     evt.Component,
			SessionID:     evt.SessionID,
			Stage:         evt.Stage,
			CorrelationID: evt.CorrelationID,
			Fields:        evt.Fields,
		})
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

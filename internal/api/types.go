package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Session describes one generation session.
type Session struct {
	ID            string        `json:"id"`
	Title         string        `json:"title,omitempty"`
	Script        string        `json:"script"`
	Duration      int           `json:"duration"`
	DurationLabel string        `json:"durationLabel,omitempty"`
	Voice         string        `json:"voice"`
	Phase         string        `json:"phase"`
	FailedFrom    string        `json:"failedFrom,omitempty"`
	Stages        []StageRecord `json:"stages"`
	ChannelURL    string        `json:"channelUrl,omitempty"`
	References    []Reference   `json:"references,omitempty"`
	Publication   *Publication  `json:"publication,omitempty"`
	CreatedAt     string        `json:"createdAt,omitempty"`
	UpdatedAt     string        `json:"updatedAt,omitempty"`
}

// Reference is a popular video of the analysed channel.
type Reference struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Views           int64  `json:"views"`
	DurationSeconds int    `json:"durationSeconds,omitempty"`
	Description     string `json:"description,omitempty"`
	ThumbnailURL    string `json:"thumbnailUrl,omitempty"`
}

// Publication records where the final video was published.
type Publication struct {
	URL          string `json:"url"`
	VideoVersion int    `json:"videoVersion"`
	PublishedAt  string `json:"publishedAt,omitempty"`
}

// StageRecord is the latest execution result of one stage.
type StageRecord struct {
	Stage     string         `json:"stage"`
	Status    string         `json:"status"`
	Version   int            `json:"version"`
	Attempts  int            `json:"attempts"`
	Inputs    map[string]int `json:"inputs,omitempty"`
	Error     *StageError    `json:"error,omitempty"`
	UpdatedAt string         `json:"updatedAt,omitempty"`
}

// StageError explains the most recent failure of a stage.
type StageError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	At      string `json:"at,omitempty"`
}

// SessionResponse wraps a single session. Pending is set when a control
// operation was accepted and is still running.
type SessionResponse struct {
	Session Session `json:"session"`
	Pending bool    `json:"pending,omitempty"`
}

// SessionListResponse wraps a collection of sessions.
type SessionListResponse struct {
	Sessions []Session `json:"sessions"`
}

// CreateSessionRequest seeds a new session.
type CreateSessionRequest struct {
	Title      string `json:"title"`
	Script     string `json:"script"`
	Duration   int    `json:"duration"`
	Voice      string `json:"voice"`
	ChannelURL string `json:"channelUrl,omitempty"`
}

// ConfigureRequest changes selections during configuring.
type ConfigureRequest struct {
	Script   string `json:"script"`
	Duration int    `json:"duration"`
	Voice    string `json:"voice"`
}

// RegenerateRequest names the stage to regenerate.
type RegenerateRequest struct {
	Stage string `json:"stage"`
}

// Event is one orchestrator state change.
type Event struct {
	Seq       int64    `json:"seq"`
	Timestamp string   `json:"timestamp"`
	SessionID string   `json:"sessionId"`
	Type      string   `json:"type"`
	Phase     string   `json:"phase,omitempty"`
	Stage     string   `json:"stage,omitempty"`
	Status    string   `json:"status,omitempty"`
	Version   int      `json:"version,omitempty"`
	Message   string   `json:"message,omitempty"`
	Session   *Session `json:"session,omitempty"`
}

// EventsResponse carries events after a cursor. Next is the cursor for the
// following poll.
type EventsResponse struct {
	Events []Event `json:"events"`
	Next   int64   `json:"next"`
}

// Artifact describes one stored stage output.
type Artifact struct {
	SessionID  string         `json:"sessionId"`
	Stage      string         `json:"stage"`
	Version    int            `json:"version"`
	CreatedAt  string         `json:"createdAt,omitempty"`
	TotalBytes int64          `json:"totalBytes"`
	Items      []ArtifactItem `json:"items"`
}

// ArtifactItem is one payload of an artifact. Payload is base64 encoded by
// encoding/json and omitted unless requested.
type ArtifactItem struct {
	ContentType     string  `json:"contentType"`
	Size            int     `json:"size"`
	Label           string  `json:"label,omitempty"`
	Width           int     `json:"width,omitempty"`
	Height          int     `json:"height,omitempty"`
	DurationSeconds float64 `json:"durationSeconds,omitempty"`
	Payload         []byte  `json:"payload,omitempty"`
}

// Voice is one entry of the voice catalog.
type Voice struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CatalogResponse lists the selectable voices and durations.
type CatalogResponse struct {
	Voices    []Voice `json:"voices"`
	Durations []int   `json:"durations"`
}

// CheckResult mirrors one preflight check.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	DatabasePath string         `json:"databasePath"`
	LockFilePath string         `json:"lockFilePath"`
	Sessions     map[string]int `json:"sessions"`
	LastEventSeq int64          `json:"lastEventSeq"`
	Checks       []CheckResult  `json:"checks,omitempty"`
}

// LogEvent is one structured log entry.
type LogEvent struct {
	Sequence      uint64            `json:"seq"`
	Timestamp     string            `json:"ts"`
	Level         string            `json:"level"`
	Message       string            `json:"msg"`
	Component     string            `json:"component,omitempty"`
	SessionID     string            `json:"sessionId,omitempty"`
	Stage         string            `json:"stage,omitempty"`
	CorrelationID string            `json:"correlationId,omitempty"`
	Fields        map[string]string `json:"fields,omitempty"`
}

// LogStreamResponse carries log entries after a cursor.
type LogStreamResponse struct {
	Events []LogEvent `json:"events"`
	Next   uint64     `json:"next"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error         string   `json:"error"`
	Kind          string   `json:"kind,omitempty"`
	MissingFields []string `json:"missingFields,omitempty"`
	InvalidFields []string `json:"invalidFields,omitempty"`
}

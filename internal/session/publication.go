package session

import "time"

// Reference is a popular video from an analysed channel, kept on the session
// as inspiration for the script.
type Reference struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Views           int64  `json:"views"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
	Description     string `json:"description,omitempty"`
	ThumbnailURL    string `json:"thumbnail_url,omitempty"`
}

// Publication records the upload of a finished video.
type Publication struct {
	URL          string    `json:"url"`
	VideoVersion int       `json:"video_version"`
	PublishedAt  time.Time `json:"published_at"`
}

// Clone returns a copy of the publication.
func (p *Publication) Clone() *Publication {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}

func cloneReferences(refs []Reference) []Reference {
	if len(refs) == 0 {
		return nil
	}
	return append([]Reference(nil), refs...)
}

package model

import "time"

// UploadedVideo is the metadata record for a stored source video.
// FilePath is relative to the storage root (videos/{id}{ext}).
type UploadedVideo struct {
	ID           string      `json:"id"`
	OriginalName string      `json:"originalName"`
	FilePath     string      `json:"filePath"`
	FileSize     int64       `json:"fileSize"`
	MimeType     string      `json:"mimeType"`
	Duration     *float64    `json:"duration,omitempty"`
	Width        *int        `json:"width,omitempty"`
	Height       *int        `json:"height,omitempty"`
	Transcript   *Transcript `json:"transcript,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
}

// Clone returns a deep copy safe to hand out of the store.
func (v *UploadedVideo) Clone() *UploadedVideo {
	cp := *v
	if v.Duration != nil {
		d := *v.Duration
		cp.Duration = &d
	}
	if v.Width != nil {
		w := *v.Width
		cp.Width = &w
	}
	if v.Height != nil {
		h := *v.Height
		cp.Height = &h
	}
	if v.Transcript != nil {
		cp.Transcript = v.Transcript.Clone()
	}
	return &cp
}

// TranscriptSegment is one timestamped span of recognized speech.
type TranscriptSegment struct {
	ID         int      `json:"id"`
	Start      float64  `json:"start"`
	End        float64  `json:"end"`
	Text       string   `json:"text"`
	Confidence *float64 `json:"confidence,omitempty"`
	IsSilence  bool     `json:"isSilence,omitempty"`
}

// Transcript is the cached result of a speech transcription run.
type Transcript struct {
	Segments            []TranscriptSegment `json:"segments"`
	FullText            string              `json:"fullText"`
	Language            string              `json:"language"`
	LanguageProbability *float64            `json:"languageProbability,omitempty"`
	Duration            *float64            `json:"duration,omitempty"`
}

// Clone returns a deep copy of the transcript.
func (t *Transcript) Clone() *Transcript {
	cp := *t
	cp.Segments = make([]TranscriptSegment, len(t.Segments))
	copy(cp.Segments, t.Segments)
	if t.LanguageProbability != nil {
		p := *t.LanguageProbability
		cp.LanguageProbability = &p
	}
	if t.Duration != nil {
		d := *t.Duration
		cp.Duration = &d
	}
	return &cp
}

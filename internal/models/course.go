package models

import (
	"github.com/google/uuid"
)

const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

const (
	BlockKindParagraph = "paragraph"
	BlockKindImage     = "image"
	BlockKindCode      = "code"
	BlockKindVideo     = "video"
	BlockKindQuote     = "quote"
)

// Course is the authoring-time object an edit session mutates locally.
// Sections reference lessons by authoring id; the storage layer never sees
// those ids, only the compacted blob form.
type Course struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Thumbnail   string    `json:"thumbnail"`
	Instructor  string    `json:"instructor"`
	Category    string    `json:"category"`
	Level       string    `json:"level"`
	Duration    int       `json:"duration"`
	Sections    []Section `json:"sections"`
	Lessons     []Lesson  `json:"lessons"`
}

type Section struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	LessonIDs []string `json:"lesson_ids"`
}

type Lesson struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Duration int            `json:"duration"`
	Blocks   []ContentBlock `json:"blocks"`
}

type ContentBlock struct {
	Kind     string `json:"kind"`
	Value    string `json:"value"`
	MediaURL string `json:"media_url,omitempty"`
}

// CourseMeta is the lightweight browsing metadata kept next to the pointer
// records so a catalog entry can be rendered without touching blob content.
type CourseMeta struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Thumbnail   string `json:"thumbnail"`
	Instructor  string `json:"instructor"`
	Category    string `json:"category"`
	Level       string `json:"level"`
	Duration    int    `json:"duration"`
}

package models

const BlobVersion = 1

// Blob is the compacted storage-time artifact for one course. Lesson and
// block keys are short synthetic identifiers (L1, B1, ...) assigned in
// traversal order at encode time; they do not carry over authoring ids.
type Blob struct {
	V        int                     `json:"v"`
	Lessons  map[string]LessonRecord `json:"lessons"`
	Blocks   map[string]BlockRecord  `json:"blocks"`
	Sections []SectionIndex          `json:"sections"`
}

type LessonRecord struct {
	Title     string   `json:"t"`
	Duration  int      `json:"d"`
	BlockKeys []string `json:"b"`
}

// BlockRecord holds markup-free text; the original markup is not recoverable
// from a stored blob.
type BlockRecord struct {
	Kind     string `json:"k"`
	Text     string `json:"x"`
	MediaURL string `json:"m,omitempty"`
}

// SectionIndex maps a section to lesson keys. The same structure doubles as
// the compact section index stored in the course metadata document.
type SectionIndex struct {
	Title      string   `json:"title"`
	LessonKeys []string `json:"lesson_keys"`
}

type BlobStats struct {
	LessonCount int `json:"lesson_count"`
	BlockCount  int `json:"block_count"`
	SizeBytes   int `json:"size_bytes"`
}

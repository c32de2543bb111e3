package models

import (
	"time"

	"github.com/google/uuid"
)

type Variant string

const (
	VariantPublished Variant = "published"
	VariantDraft     Variant = "draft"
)

func (v Variant) Valid() bool {
	return v == VariantPublished || v == VariantDraft
}

// PointerRecord records which blob handle/version/hash is current for one
// course variant. Version is monotonic per course per variant. Dirty is only
// meaningful on the draft variant: blob uploaded but not yet confirmed
// reflected in browsing metadata.
type PointerRecord struct {
	FileHandle  string    `json:"file_handle"`
	Version     int       `json:"version"`
	Hash        string    `json:"hash"`
	LessonCount int       `json:"lesson_count"`
	BlockCount  int       `json:"block_count"`
	Timestamp   time.Time `json:"timestamp"`
	ActorID     uuid.UUID `json:"actor_id"`
	Dirty       bool      `json:"dirty,omitempty"`
}

// CourseMetaRecord is the per-course document held by the primary metadata
// store. Pointer writes merge into it without clobbering unrelated fields.
type CourseMetaRecord struct {
	Meta             CourseMeta     `json:"meta"`
	Sections         []SectionIndex `json:"sections"`
	Published        *PointerRecord `json:"published"`
	DraftSnapshot    *PointerRecord `json:"draft_snapshot"`
	Status           string         `json:"status"`
	StructureVersion int            `json:"structure_version"`
}

// LocalRegistryEntry mirrors the pointer record for a course in the fallback
// registry. PendingSync means the pointer has not been confirmed written to
// the primary metadata store.
type LocalRegistryEntry struct {
	CourseID    uuid.UUID      `json:"course_id"`
	FileHandle  string         `json:"file_handle"`
	Pointer     PointerRecord  `json:"pointer"`
	Meta        CourseMeta     `json:"meta"`
	Sections    []SectionIndex `json:"sections"`
	PendingSync bool           `json:"pending_sync"`
	CreatedAt   time.Time      `json:"created_at"`
}

// PublishResult is what a publish or draft save returns to the caller.
// MetaUpdated distinguishes "fully published" from "published but metadata
// store lagging"; the latter needs no caller retry, the sync queue catches up.
type PublishResult struct {
	Version     int    `json:"version"`
	Hash        string `json:"hash"`
	LessonCount int    `json:"lesson_count"`
	BlockCount  int    `json:"block_count"`
	MetaUpdated bool   `json:"meta_updated"`
}

type SyncReport struct {
	Synced         int  `json:"synced"`
	Failed         int  `json:"failed"`
	Skipped        int  `json:"skipped"`
	QuotaExhausted bool `json:"quota_exhausted"`
}

type RegistryStats struct {
	Count     int         `json:"count"`
	CourseIDs []uuid.UUID `json:"course_ids"`
}

type CatalogHit struct {
	CourseID uuid.UUID  `json:"course_id"`
	Meta     CourseMeta `json:"meta"`
	Status   string     `json:"status,omitempty"`
}

type MigrationReport struct {
	Found    int  `json:"found"`
	Migrated int  `json:"migrated"`
	Failed   int  `json:"failed"`
	Uploads  int  `json:"uploads"`
	MetaOK   bool `json:"meta_updated"`
}

package postgres

import (
	"CourseVault/internal/app_errors"
	"CourseVault/internal/models"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CourseMetaPostgres is the primary metadata store adapter: one JSONB
// document per course, pointer writes merged in without clobbering unrelated
// fields. Callers supply the deadline context; this layer only classifies
// what comes back.
type CourseMetaPostgres struct {
	db *pgxpool.Pool
}

func NewCourseMetaPostgres(db *pgxpool.Pool) *CourseMetaPostgres {
	return &CourseMetaPostgres{db: db}
}

func variantField(variant models.Variant) (string, error) {
	switch variant {
	case models.VariantPublished:
		return "published", nil
	case models.VariantDraft:
		return "draft_snapshot", nil
	default:
		return "", fmt.Errorf("%w: %q", app_errors.ErrBadVariant, variant)
	}
}

// GetPointer returns nil without error when the course document or the
// variant pointer does not exist.
func (r *CourseMetaPostgres) GetPointer(ctx context.Context, courseID uuid.UUID, variant models.Variant) (*models.PointerRecord, error) {
	field, err := variantField(variant)
	if err != nil {
		return nil, err
	}
	const query = `
        SELECT doc -> $2
          FROM course_documents
         WHERE course_id = $1
    `
	var raw []byte
	err = r.db.QueryRow(ctx, query, courseID, field).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classifyStoreError("get pointer", err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var record models.PointerRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("get pointer: decode: %w", err)
	}
	return &record, nil
}

// SetPointer merges the pointer record plus browsing metadata into the course
// document. The published variant also flips the document status.
func (r *CourseMetaPostgres) SetPointer(ctx context.Context, courseID uuid.UUID, variant models.Variant, record models.PointerRecord, meta models.CourseMeta, sections []models.SectionIndex) error {
	field, err := variantField(variant)
	if err != nil {
		return err
	}

	partial := map[string]any{
		"meta":              meta,
		"sections":          sections,
		field:               record,
		"structure_version": models.BlobVersion,
	}
	if variant == models.VariantPublished {
		partial["status"] = models.StatusPublished
	}
	doc, err := json.Marshal(partial)
	if err != nil {
		return fmt.Errorf("set pointer: encode: %w", err)
	}

	const query = `
        INSERT INTO course_documents (course_id, doc, updated_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (course_id)
        DO UPDATE SET doc        = course_documents.doc || EXCLUDED.doc,
                      updated_at = NOW()
    `
	if _, err := r.db.Exec(ctx, query, courseID, doc); err != nil {
		return classifyStoreError("set pointer", err)
	}
	return nil
}

func (r *CourseMetaPostgres) GetDocument(ctx context.Context, courseID uuid.UUID) (*models.CourseMetaRecord, error) {
	const query = `
        SELECT doc
          FROM course_documents
         WHERE course_id = $1
    `
	var raw []byte
	err := r.db.QueryRow(ctx, query, courseID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, app_errors.ErrCourseNotFound
		}
		return nil, classifyStoreError("get document", err)
	}
	var record models.CourseMetaRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("get document: decode: %w", err)
	}
	return &record, nil
}

// classifyStoreError maps store failures onto the taxonomy the orchestrator
// and sync queue branch on: deadline overrun, resource exhaustion (pg error
// classes 53/54), or a generic transient error left as-is.
func classifyStoreError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, app_errors.ErrStoreTimeout)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if strings.HasPrefix(pgErr.Code, "53") || strings.HasPrefix(pgErr.Code, "54") {
			return fmt.Errorf("%s: %s: %w", op, pgErr.Code, app_errors.ErrQuotaExhausted)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

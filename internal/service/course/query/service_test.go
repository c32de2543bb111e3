package query

import (
	"CourseVault/internal/app_errors"
	"CourseVault/internal/blobcodec"
	"CourseVault/internal/cache"
	"CourseVault/internal/models"
	"CourseVault/pkg/logger"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBlobs struct {
	objects   map[string]*models.Blob
	downloads int
}

func (b *stubBlobs) Download(ctx context.Context, handle string) (*models.Blob, error) {
	_ = ctx
	b.downloads++
	blob, ok := b.objects[handle]
	if !ok {
		return nil, app_errors.ErrBlobNotFound
	}
	return blob, nil
}

type stubMeta struct {
	pointer  *models.PointerRecord
	getErr   error
	getCalls int
}

func (m *stubMeta) GetPointer(ctx context.Context, courseID uuid.UUID, variant models.Variant) (*models.PointerRecord, error) {
	_ = ctx
	_ = courseID
	_ = variant
	m.getCalls++
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.pointer, nil
}

func (m *stubMeta) GetDocument(ctx context.Context, courseID uuid.UUID) (*models.CourseMetaRecord, error) {
	_ = ctx
	_ = courseID
	return nil, app_errors.ErrCourseNotFound
}

type stubRegistry struct {
	entry    *models.LocalRegistryEntry
	getCalls int
}

func (r *stubRegistry) Get(ctx context.Context, courseID uuid.UUID) (*models.LocalRegistryEntry, error) {
	_ = ctx
	_ = courseID
	r.getCalls++
	return r.entry, nil
}

type stubSearch struct {
	ids []uuid.UUID
}

func (s *stubSearch) Search(ctx context.Context, query string, size int) ([]uuid.UUID, error) {
	_ = ctx
	_ = query
	_ = size
	return s.ids, nil
}

func encodedBlob(t *testing.T) (*models.Blob, string) {
	t.Helper()
	blob, _, _, err := blobcodec.Encode(&models.Course{
		Title:    "Read path",
		Sections: []models.Section{{ID: "s1", Title: "One", LessonIDs: []string{"l1"}}},
		Lessons: []models.Lesson{{ID: "l1", Title: "Only", Blocks: []models.ContentBlock{
			{Kind: models.BlockKindParagraph, Value: "body"},
		}}},
	})
	require.NoError(t, err)
	return blob, "blobs/x/1.json"
}

func newQueryService(blobs *stubBlobs, meta *stubMeta, reg *stubRegistry) (*QueryService, *cache.PointerCache) {
	pc := cache.NewPointerCache(time.Minute, time.Minute)
	svc := NewQueryService(logger.NewDiscard(), blobs, meta, pc, reg, &stubSearch{}, time.Second)
	return svc, pc
}

func TestGetCoursePrefersCache(t *testing.T) {
	blob, handle := encodedBlob(t)
	blobs := &stubBlobs{objects: map[string]*models.Blob{handle: blob}}
	meta := &stubMeta{}
	svc, pc := newQueryService(blobs, meta, &stubRegistry{})

	courseID := uuid.New()
	pc.Set(courseID, models.VariantPublished, models.PointerRecord{FileHandle: handle, Version: 2})

	course, ptr, err := svc.GetCourse(context.Background(), courseID, models.VariantPublished)
	require.NoError(t, err)
	assert.Equal(t, 2, ptr.Version)
	assert.Equal(t, "One", course.Sections[0].Title)
	assert.Equal(t, 0, meta.getCalls)
}

func TestGetCourseFallsBackToStoreAndPopulatesCache(t *testing.T) {
	blob, handle := encodedBlob(t)
	blobs := &stubBlobs{objects: map[string]*models.Blob{handle: blob}}
	meta := &stubMeta{pointer: &models.PointerRecord{FileHandle: handle, Version: 5}}
	svc, pc := newQueryService(blobs, meta, &stubRegistry{})

	courseID := uuid.New()
	_, ptr, err := svc.GetCourse(context.Background(), courseID, models.VariantPublished)
	require.NoError(t, err)
	assert.Equal(t, 5, ptr.Version)

	cached := pc.Get(courseID, models.VariantPublished)
	require.NotNil(t, cached)
	assert.Equal(t, 5, cached.Version)
}

func TestGetCourseFallsBackToRegistryOnStoreError(t *testing.T) {
	blob, handle := encodedBlob(t)
	blobs := &stubBlobs{objects: map[string]*models.Blob{handle: blob}}
	meta := &stubMeta{getErr: errors.New("store down")}
	courseID := uuid.New()
	reg := &stubRegistry{entry: &models.LocalRegistryEntry{
		CourseID:    courseID,
		FileHandle:  handle,
		Pointer:     models.PointerRecord{FileHandle: handle, Version: 9},
		PendingSync: true,
	}}
	svc, _ := newQueryService(blobs, meta, reg)

	_, ptr, err := svc.GetCourse(context.Background(), courseID, models.VariantPublished)
	require.NoError(t, err)
	assert.Equal(t, 9, ptr.Version)
	assert.Equal(t, 1, reg.getCalls)
}

func TestGetCourseFallsBackToRegistryOnStoreMiss(t *testing.T) {
	blob, handle := encodedBlob(t)
	blobs := &stubBlobs{objects: map[string]*models.Blob{handle: blob}}
	meta := &stubMeta{}
	courseID := uuid.New()
	reg := &stubRegistry{entry: &models.LocalRegistryEntry{
		CourseID: courseID,
		Pointer:  models.PointerRecord{FileHandle: handle, Version: 1},
	}}
	svc, _ := newQueryService(blobs, meta, reg)

	_, ptr, err := svc.GetCourse(context.Background(), courseID, models.VariantPublished)
	require.NoError(t, err)
	assert.Equal(t, 1, ptr.Version)
}

func TestGetCourseNotFound(t *testing.T) {
	svc, _ := newQueryService(&stubBlobs{objects: map[string]*models.Blob{}}, &stubMeta{}, &stubRegistry{})

	_, _, err := svc.GetCourse(context.Background(), uuid.New(), models.VariantPublished)
	assert.ErrorIs(t, err, app_errors.ErrCourseNotFound)
}

func TestGetCourseRejectsUnknownVariant(t *testing.T) {
	svc, _ := newQueryService(&stubBlobs{objects: map[string]*models.Blob{}}, &stubMeta{}, &stubRegistry{})

	_, _, err := svc.GetCourse(context.Background(), uuid.New(), models.Variant("weird"))
	assert.ErrorIs(t, err, app_errors.ErrBadVariant)
}

func TestDraftVariantDoesNotConsultRegistry(t *testing.T) {
	meta := &stubMeta{}
	reg := &stubRegistry{entry: &models.LocalRegistryEntry{}}
	svc, _ := newQueryService(&stubBlobs{objects: map[string]*models.Blob{}}, meta, reg)

	_, _, err := svc.GetCourse(context.Background(), uuid.New(), models.VariantDraft)
	assert.ErrorIs(t, err, app_errors.ErrCourseNotFound)
	assert.Equal(t, 0, reg.getCalls)
}

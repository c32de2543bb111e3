package migration

import (
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

type stubFetcher struct {
	failing map[string]bool
	fetches int
}

func (f *stubFetcher) Fetch(ctx context.Context, ref string) ([]byte, string, string, error) {
	_ = ctx
	f.fetches++
	if f.failing[ref] {
		return nil, "", "", errors.New("origin gone")
	}
	return []byte("asset-bytes"), "a.png", "image/png", nil
}

type stubAssets struct {
	uploads int
}

func (a *stubAssets) PublicPrefix() string { return "https://cdn.coursevault.dev/assets/" }

func (a *stubAssets) Upload(ctx context.Context, assetID, filename string, data []byte, contentType string) (string, error) {
	_ = ctx
	_ = filename
	_ = data
	_ = contentType
	a.uploads++
	return "https://cdn.coursevault.dev/assets/" + assetID + ".png", nil
}

type stubBlobs struct {
	objects map[string]*models.Blob
	uploads int
}

func newStubBlobs() *stubBlobs {
	return &stubBlobs{objects: make(map[string]*models.Blob)}
}

func (b *stubBlobs) Upload(ctx context.Context, courseID uuid.UUID, blob *models.Blob) (string, string, error) {
	_ = ctx
	b.uploads++
	handle := "blobs/" + courseID.String() + "/" + uuid.NewString() + ".json"
	b.objects[handle] = blob
	return handle, "hash-" + uuid.NewString()[:8], nil
}

func (b *stubBlobs) Download(ctx context.Context, handle string) (*models.Blob, error) {
	_ = ctx
	blob, ok := b.objects[handle]
	if !ok {
		return nil, errors.New("no such handle")
	}
	return blob, nil
}

type stubMeta struct {
	docs     map[uuid.UUID]*models.CourseMetaRecord
	setCalls int
}

func (m *stubMeta) GetDocument(ctx context.Context, courseID uuid.UUID) (*models.CourseMetaRecord, error) {
	_ = ctx
	doc, ok := m.docs[courseID]
	if !ok {
		return nil, errors.New("missing document")
	}
	copied := *doc
	return &copied, nil
}

func (m *stubMeta) SetPointer(ctx context.Context, courseID uuid.UUID, variant models.Variant, record models.PointerRecord, meta models.CourseMeta, sections []models.SectionIndex) error {
	_ = ctx
	_ = sections
	m.setCalls++
	doc := m.docs[courseID]
	doc.Meta = meta
	if variant == models.VariantPublished {
		doc.Published = &record
	} else {
		doc.DraftSnapshot = &record
	}
	return nil
}

type stubCache struct {
	sets int
}

func (c *stubCache) Set(courseID uuid.UUID, variant models.Variant, record models.PointerRecord) {
	_ = courseID
	_ = variant
	_ = record
	c.sets++
}

type stubRegistry struct {
	added  int
	synced int
}

func (r *stubRegistry) Add(ctx context.Context, courseID uuid.UUID, pointer models.PointerRecord, meta models.CourseMeta, sections []models.SectionIndex) error {
	_ = ctx
	_ = courseID
	_ = pointer
	_ = meta
	_ = sections
	r.added++
	return nil
}

func (r *stubRegistry) MarkSynced(ctx context.Context, courseID uuid.UUID) error {
	_ = ctx
	_ = courseID
	r.synced++
	return nil
}

func newTestEngine(fetcher *stubFetcher, assets *stubAssets, blobs *stubBlobs, meta *stubMeta) (*Engine, *stubCache, *stubRegistry) {
	pc := &stubCache{}
	reg := &stubRegistry{}
	return NewEngine(logger.NewDiscard(), fetcher, assets, blobs, meta, pc, reg, time.Second), pc, reg
}

func TestMigrateStringRewritesRefs(t *testing.T) {
	fetcher := &stubFetcher{}
	assets := &stubAssets{}
	engine, _, _ := newTestEngine(fetcher, assets, newStubBlobs(), &stubMeta{})

	stats := &Stats{}
	in := `see <img src="/legacy-assets/abcdef1234.png"> and /legacy-assets/abcdef1234.png again`
	out := engine.Migrate(context.Background(), in, stats).(string)

	assert.NotContains(t, out, "/legacy-assets/")
	assert.Contains(t, out, "https://cdn.coursevault.dev/assets/abcdef1234.png")
	report := stats.Report()
	assert.Equal(t, 1, report.Found)
	assert.Equal(t, 1, report.Migrated)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, 1, fetcher.fetches)
}

func TestMigrateStringFailureIsIsolated(t *testing.T) {
	fetcher := &stubFetcher{failing: map[string]bool{"/legacy-assets/deadbeef01.png": true}}
	assets := &stubAssets{}
	engine, _, _ := newTestEngine(fetcher, assets, newStubBlobs(), &stubMeta{})

	stats := &Stats{}
	in := "a /legacy-assets/deadbeef01.png b /legacy-assets/cafebabe02.png"
	out := engine.Migrate(context.Background(), in, stats).(string)

	assert.Contains(t, out, "/legacy-assets/deadbeef01.png")
	assert.Contains(t, out, "https://cdn.coursevault.dev/assets/cafebabe02.png")
	report := stats.Report()
	assert.Equal(t, 2, report.Found)
	assert.Equal(t, 1, report.Migrated)
	assert.Equal(t, 1, report.Failed)
}

func TestMigrateStringPrefixCollidingRefs(t *testing.T) {
	fetcher := &stubFetcher{}
	assets := &stubAssets{}
	engine, _, _ := newTestEngine(fetcher, assets, newStubBlobs(), &stubMeta{})

	// The first ref is a strict string prefix of the second; rewriting it
	// must not strand the second ref's trailing characters.
	stats := &Stats{}
	in := "a /legacy-assets/abc12345.png b /legacy-assets/abc12345.png2"
	out := engine.Migrate(context.Background(), in, stats).(string)

	assert.Equal(t, "a https://cdn.coursevault.dev/assets/abc12345.png b https://cdn.coursevault.dev/assets/abc12345.png", out)
	assert.NotContains(t, out, "/legacy-assets/")
	report := stats.Report()
	assert.Equal(t, 2, report.Found)
	assert.Equal(t, 2, report.Migrated)
	assert.Equal(t, 2, fetcher.fetches)
}

func TestMigrateStringSkipsAlreadyHostedRefs(t *testing.T) {
	fetcher := &stubFetcher{}
	engine, _, _ := newTestEngine(fetcher, &stubAssets{}, newStubBlobs(), &stubMeta{})

	stats := &Stats{}
	in := `x https://cdn.coursevault.dev/assets/legacy-assets/abcdef1234.png y`
	out := engine.Migrate(context.Background(), in, stats).(string)

	assert.Equal(t, in, out)
	assert.Equal(t, 0, stats.Report().Found)
	assert.Equal(t, 0, fetcher.fetches)
}

func TestMigrateIgnoresShortIdsAndScalars(t *testing.T) {
	engine, _, _ := newTestEngine(&stubFetcher{}, &stubAssets{}, newStubBlobs(), &stubMeta{})

	stats := &Stats{}
	assert.Equal(t, "see /legacy-assets/ab.png", engine.Migrate(context.Background(), "see /legacy-assets/ab.png", stats))
	assert.Equal(t, float64(42), engine.Migrate(context.Background(), float64(42), stats))
	assert.Equal(t, true, engine.Migrate(context.Background(), true, stats))
	assert.Nil(t, engine.Migrate(context.Background(), nil, stats))
	assert.Equal(t, 0, stats.Report().Found)
}

func TestMigrateNestedPreservesShape(t *testing.T) {
	engine, _, _ := newTestEngine(&stubFetcher{}, &stubAssets{}, newStubBlobs(), &stubMeta{})

	stats := &Stats{}
	in := map[string]any{
		"title": "plain",
		"items": []any{
			"/legacy-assets/abcdef1234.png",
			float64(7),
			map[string]any{"src": "/legacy-assets/0123456789.jpg"},
		},
	}
	out := engine.Migrate(context.Background(), in, stats).(map[string]any)

	items := out["items"].([]any)
	require.Len(t, items, 3)
	assert.Equal(t, "https://cdn.coursevault.dev/assets/abcdef1234.png", items[0])
	assert.Equal(t, float64(7), items[1])
	assert.Equal(t, "https://cdn.coursevault.dev/assets/0123456789.jpg", items[2].(map[string]any)["src"])
	assert.Equal(t, "plain", out["title"])
	assert.Equal(t, 2, stats.Report().Migrated)
}

func TestMigrateIdempotent(t *testing.T) {
	engine, _, _ := newTestEngine(&stubFetcher{}, &stubAssets{}, newStubBlobs(), &stubMeta{})

	stats := &Stats{}
	first := engine.Migrate(context.Background(), "x /legacy-assets/abcdef1234.png y", stats).(string)
	require.Equal(t, 1, stats.Report().Migrated)

	stats2 := &Stats{}
	second := engine.Migrate(context.Background(), first, stats2).(string)
	assert.Equal(t, first, second)
	assert.Equal(t, 0, stats2.Report().Found)
	assert.Equal(t, 0, stats2.Report().Migrated)
}

func TestMigrateCourseReuploadsPatchedBlob(t *testing.T) {
	fetcher := &stubFetcher{}
	assets := &stubAssets{}
	blobs := newStubBlobs()
	courseID := uuid.New()

	blob := &models.Blob{
		V: models.BlobVersion,
		Lessons: map[string]models.LessonRecord{
			"L1": {Title: "Lesson", BlockKeys: []string{"B1"}},
		},
		Blocks: map[string]models.BlockRecord{
			"B1": {Kind: models.BlockKindImage, Text: "pic", MediaURL: "/legacy-assets/abcdef1234.png"},
		},
		Sections: []models.SectionIndex{{Title: "S", LessonKeys: []string{"L1"}}},
	}
	handle, hash, err := blobs.Upload(context.Background(), courseID, blob)
	require.NoError(t, err)

	meta := &stubMeta{docs: map[uuid.UUID]*models.CourseMetaRecord{
		courseID: {
			Meta:      models.CourseMeta{Title: "T"},
			Published: &models.PointerRecord{FileHandle: handle, Hash: hash, Version: 3},
			Status:    models.StatusPublished,
		},
	}}

	engine, pc, reg := newTestEngine(fetcher, assets, blobs, meta)
	report, err := engine.MigrateCourse(context.Background(), courseID)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Migrated)
	assert.Equal(t, 1, report.Uploads)
	assert.True(t, report.MetaOK)
	assert.Equal(t, 2, blobs.uploads)

	ptr := meta.docs[courseID].Published
	assert.NotEqual(t, handle, ptr.FileHandle)
	assert.Equal(t, 4, ptr.Version)
	assert.Equal(t, 1, pc.sets)
	assert.Equal(t, 1, reg.added)
	assert.Equal(t, 1, reg.synced)

	// Old handle stays resolvable: blobs are never mutated in place.
	_, err = blobs.Download(context.Background(), handle)
	assert.NoError(t, err)

	// Second pass finds nothing and uploads nothing.
	report2, err := engine.MigrateCourse(context.Background(), courseID)
	require.NoError(t, err)
	assert.Equal(t, 0, report2.Migrated)
	assert.Equal(t, 0, report2.Uploads)
	assert.Equal(t, 2, blobs.uploads)
}

func TestMigrateCourseDraftVariantSkipsRegistry(t *testing.T) {
	blobs := newStubBlobs()
	courseID := uuid.New()

	blob := &models.Blob{
		V: models.BlobVersion,
		Lessons: map[string]models.LessonRecord{
			"L1": {Title: "Lesson", BlockKeys: []string{"B1"}},
		},
		Blocks: map[string]models.BlockRecord{
			"B1": {Kind: models.BlockKindImage, Text: "pic", MediaURL: "/legacy-assets/abcdef1234.png"},
		},
		Sections: []models.SectionIndex{{Title: "S", LessonKeys: []string{"L1"}}},
	}
	handle, hash, err := blobs.Upload(context.Background(), courseID, blob)
	require.NoError(t, err)

	meta := &stubMeta{docs: map[uuid.UUID]*models.CourseMetaRecord{
		courseID: {
			Meta:          models.CourseMeta{Title: "T"},
			DraftSnapshot: &models.PointerRecord{FileHandle: handle, Hash: hash, Version: 1},
			Status:        models.StatusDraft,
		},
	}}

	engine, pc, reg := newTestEngine(&stubFetcher{}, &stubAssets{}, blobs, meta)
	report, err := engine.MigrateCourse(context.Background(), courseID)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Migrated)
	assert.Equal(t, 1, report.Uploads)
	assert.NotEqual(t, handle, meta.docs[courseID].DraftSnapshot.FileHandle)
	assert.Equal(t, 2, meta.docs[courseID].DraftSnapshot.Version)
	assert.Equal(t, 1, pc.sets)

	// A migrated draft pointer must never land in the published-track
	// mirror the sync queue replays from.
	assert.Equal(t, 0, reg.added)
	assert.Equal(t, 0, reg.synced)
}

package blobcodec

import (
	"CourseVault/internal/app_errors"
	"CourseVault/internal/models"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// markupRE matches any markup tag; only the tags are removed, inner text is
// retained. Stripping is one-way: a stored blob never carries markup.
var markupRE = regexp.MustCompile(`<[^>]*>`)

// Encode compacts a course into its blob form plus the browsing metadata and
// the compact section index for the metadata document. Synthetic keys are
// positional, so re-encoding an unchanged course yields a byte-identical blob.
func Encode(course *models.Course) (*models.Blob, models.CourseMeta, []models.SectionIndex, error) {
	if course == nil || strings.TrimSpace(course.Title) == "" {
		return nil, models.CourseMeta{}, nil, fmt.Errorf("encode: missing title: %w", app_errors.ErrValidation)
	}

	lessonsByID := make(map[string]models.Lesson, len(course.Lessons))
	for _, l := range course.Lessons {
		lessonsByID[l.ID] = l
	}

	blob := &models.Blob{
		V:       models.BlobVersion,
		Lessons: make(map[string]models.LessonRecord),
		Blocks:  make(map[string]models.BlockRecord),
	}

	lessonKeys := make(map[string]string, len(course.Lessons))
	seen := make(map[string]bool, len(course.Lessons))
	nextLesson := 0
	nextBlock := 0

	assign := func(lesson models.Lesson) string {
		nextLesson++
		key := "L" + strconv.Itoa(nextLesson)
		lessonKeys[lesson.ID] = key

		blockKeys := make([]string, 0, len(lesson.Blocks))
		for _, b := range lesson.Blocks {
			nextBlock++
			bk := "B" + strconv.Itoa(nextBlock)
			blob.Blocks[bk] = models.BlockRecord{
				Kind:     b.Kind,
				Text:     StripMarkup(b.Value),
				MediaURL: b.MediaURL,
			}
			blockKeys = append(blockKeys, bk)
		}
		blob.Lessons[key] = models.LessonRecord{
			Title:     lesson.Title,
			Duration:  lesson.Duration,
			BlockKeys: blockKeys,
		}
		return key
	}

	sections := make([]models.SectionIndex, 0, len(course.Sections))
	for _, sec := range course.Sections {
		idx := models.SectionIndex{Title: sec.Title}
		for _, lid := range sec.LessonIDs {
			lesson, ok := lessonsByID[lid]
			if !ok {
				return nil, models.CourseMeta{}, nil, fmt.Errorf("encode: section %q references unknown lesson %q: %w", sec.Title, lid, app_errors.ErrValidation)
			}
			if seen[lid] {
				// A lesson claimed by two sections is recoverable corruption:
				// the first occurrence wins, later ones are dropped.
				continue
			}
			seen[lid] = true
			idx.LessonKeys = append(idx.LessonKeys, assign(lesson))
		}
		sections = append(sections, idx)
	}

	// Lessons not referenced by any section keep their content but stay
	// outside the section index.
	for _, lesson := range course.Lessons {
		if !seen[lesson.ID] {
			seen[lesson.ID] = true
			assign(lesson)
		}
	}

	blob.Sections = sections
	meta := models.CourseMeta{
		Title:       course.Title,
		Description: course.Description,
		Thumbnail:   course.Thumbnail,
		Instructor:  course.Instructor,
		Category:    course.Category,
		Level:       course.Level,
		Duration:    course.Duration,
	}
	return blob, meta, sections, nil
}

// Decode is the inverse mapping. The result is a valid course structure with
// synthetic ids and markup-free block text; the original authoring ids are
// not recoverable beyond lesson/section membership.
func Decode(blob *models.Blob) (*models.Course, error) {
	if blob == nil {
		return nil, fmt.Errorf("decode: nil blob: %w", app_errors.ErrCorruptBlob)
	}
	if blob.V != models.BlobVersion {
		return nil, fmt.Errorf("decode: unsupported blob version %d: %w", blob.V, app_errors.ErrCorruptBlob)
	}
	for _, sec := range blob.Sections {
		for _, lk := range sec.LessonKeys {
			if _, ok := blob.Lessons[lk]; !ok {
				return nil, fmt.Errorf("decode: section %q references dangling lesson key %q: %w", sec.Title, lk, app_errors.ErrCorruptBlob)
			}
		}
	}
	for lk, rec := range blob.Lessons {
		for _, bk := range rec.BlockKeys {
			if _, ok := blob.Blocks[bk]; !ok {
				return nil, fmt.Errorf("decode: lesson %q references dangling block key %q: %w", lk, bk, app_errors.ErrCorruptBlob)
			}
		}
	}

	course := &models.Course{}
	buildLesson := func(key string) models.Lesson {
		rec := blob.Lessons[key]
		lesson := models.Lesson{ID: key, Title: rec.Title, Duration: rec.Duration}
		for _, bk := range rec.BlockKeys {
			b := blob.Blocks[bk]
			lesson.Blocks = append(lesson.Blocks, models.ContentBlock{
				Kind:     b.Kind,
				Value:    b.Text,
				MediaURL: b.MediaURL,
			})
		}
		return lesson
	}

	placed := make(map[string]bool, len(blob.Lessons))
	for i, sec := range blob.Sections {
		section := models.Section{ID: "S" + strconv.Itoa(i+1), Title: sec.Title}
		for _, lk := range sec.LessonKeys {
			if placed[lk] {
				continue
			}
			placed[lk] = true
			section.LessonIDs = append(section.LessonIDs, lk)
			course.Lessons = append(course.Lessons, buildLesson(lk))
		}
		course.Sections = append(course.Sections, section)
	}
	for _, lk := range sortedLessonKeys(blob.Lessons) {
		if !placed[lk] {
			course.Lessons = append(course.Lessons, buildLesson(lk))
		}
	}
	return course, nil
}

// Marshal produces the canonical serialization of a blob: encoding/json
// orders map keys, so equal blobs serialize to equal bytes. Uploads and
// hashing must both go through it.
func Marshal(blob *models.Blob) ([]byte, error) {
	data, err := json.Marshal(blob)
	if err != nil {
		return nil, fmt.Errorf("marshal blob: %w", err)
	}
	return data, nil
}

func Unmarshal(data []byte) (*models.Blob, error) {
	var blob models.Blob
	if err := json.Unmarshal(data, &blob); err != nil {
		return nil, fmt.Errorf("unmarshal blob: %w: %v", app_errors.ErrCorruptBlob, err)
	}
	return &blob, nil
}

// Hash returns the MD5 hex digest of the canonical serialization. It is a
// version fingerprint, not a security boundary.
func Hash(blob *models.Blob) (string, error) {
	data, err := Marshal(blob)
	if err != nil {
		return "", err
	}
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:]), nil
}

func Stats(blob *models.Blob) (models.BlobStats, error) {
	data, err := Marshal(blob)
	if err != nil {
		return models.BlobStats{}, err
	}
	return models.BlobStats{
		LessonCount: len(blob.Lessons),
		BlockCount:  len(blob.Blocks),
		SizeBytes:   len(data),
	}, nil
}

func StripMarkup(s string) string {
	return markupRE.ReplaceAllString(s, "")
}

func sortedLessonKeys(lessons map[string]models.LessonRecord) []string {
	keys := make([]string, 0, len(lessons))
	for k := range lessons {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ni, _ := strconv.Atoi(strings.TrimPrefix(keys[i], "L"))
		nj, _ := strconv.Atoi(strings.TrimPrefix(keys[j], "L"))
		return ni < nj
	})
	return keys
}

package controllers

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CourseVault/internal/app_errors"
	"CourseVault/internal/delivery/http/controllers/middleware"
	"CourseVault/internal/models"
	"CourseVault/pkg/logger"
)

type stubPublishService struct {
	lastCourse *models.Course
	lastActor  uuid.UUID
	err        error
}

func (s *stubPublishService) Publish(_ context.Context, course *models.Course, actorID uuid.UUID) (*models.PublishResult, error) {
	s.lastCourse = course
	s.lastActor = actorID
	if s.err != nil {
		return nil, s.err
	}
	return &models.PublishResult{Version: 1, MetaUpdated: true}, nil
}

func (s *stubPublishService) SaveDraft(ctx context.Context, course *models.Course, actorID uuid.UUID) (*models.PublishResult, error) {
	return s.Publish(ctx, course, actorID)
}

func newPublishRouter(svc PublishService, actor uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewPublishHandler(logger.NewDiscard(), svc)
	r := gin.New()
	r.POST("/v1/courses/:course_id/publish", func(c *gin.Context) {
		c.Set(middleware.ActorIDCtx, actor)
		h.Publish(c)
	})
	return r
}

func TestPublishPlainBody(t *testing.T) {
	svc := &stubPublishService{}
	actor := uuid.New()
	r := newPublishRouter(svc, actor)
	courseID := uuid.New()

	body, err := json.Marshal(models.Course{Title: "Go Basics"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/v1/courses/%s/publish", courseID), bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.lastCourse)
	assert.Equal(t, courseID, svc.lastCourse.ID)
	assert.Equal(t, "Go Basics", svc.lastCourse.Title)
	assert.Equal(t, actor, svc.lastActor)
}

func TestPublishGzipBody(t *testing.T) {
	svc := &stubPublishService{}
	r := newPublishRouter(svc, uuid.New())
	courseID := uuid.New()

	raw, err := json.Marshal(models.Course{Title: "Compressed Course"})
	require.NoError(t, err)
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err = gz.Write(raw)
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/v1/courses/%s/publish", courseID), &buf)
	req.Header.Set("Content-Encoding", "gzip")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.lastCourse)
	assert.Equal(t, "Compressed Course", svc.lastCourse.Title)
}

func TestPublishMalformedGzipIsClientError(t *testing.T) {
	svc := &stubPublishService{}
	r := newPublishRouter(svc, uuid.New())

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/v1/courses/%s/publish", uuid.New()), bytes.NewReader([]byte("not gzip at all")))
	req.Header.Set("Content-Encoding", "gzip")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, svc.lastCourse)
}

func TestPublishInvalidCourseID(t *testing.T) {
	svc := &stubPublishService{}
	r := newPublishRouter(svc, uuid.New())

	req := httptest.NewRequest(http.MethodPost, "/v1/courses/not-a-uuid/publish", bytes.NewReader([]byte("{}")))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPublishErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", app_errors.ErrValidation, http.StatusBadRequest},
		{"storage unavailable", app_errors.ErrStorageUnavailable, http.StatusServiceUnavailable},
		{"internal", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubPublishService{err: tc.err}
			r := newPublishRouter(svc, uuid.New())

			req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/v1/courses/%s/publish", uuid.New()), bytes.NewReader([]byte(`{"title":"x"}`)))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)
		})
	}
}

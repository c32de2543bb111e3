package service

import (
	"CourseVault/internal/service/auth"
	"CourseVault/internal/service/course/query"
	"CourseVault/internal/service/migration"
	"CourseVault/internal/service/publish"
	"CourseVault/internal/service/syncqueue"
	"CourseVault/internal/storage/minio_storage"
)

type Collection struct {
	Tokens    *auth.TokenManager
	Publisher *publish.Orchestrator
	Query     *query.QueryService
	SyncQueue *syncqueue.Service
	Migration *migration.Engine
	Registry  *minio_storage.FallbackRegistry
}

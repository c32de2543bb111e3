package app

import (
	"CourseVault/internal/app/server"
	"CourseVault/internal/cache"
	"CourseVault/internal/config"
	"CourseVault/internal/delivery/http"
	"CourseVault/internal/service"
	"CourseVault/internal/service/auth"
	"CourseVault/internal/service/course/query"
	"CourseVault/internal/service/migration"
	"CourseVault/internal/service/publish"
	"CourseVault/internal/service/syncqueue"
	"CourseVault/internal/storage/elastic"
	"CourseVault/internal/storage/minio_storage"
	"CourseVault/internal/storage/postgres"
	"CourseVault/pkg/logger"
	"context"
	"os"
	"os/signal"
	"syscall"
)

func Run(cfg *config.Config) {

	log := logger.New(cfg.Env)
	log.Info("Starting with Env: " + cfg.Env)

	ctx := context.Background()

	pg, err := postgres.NewPostgresPool(ctx, cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.DBName)
	if err != nil {
		log.FatalErr("error connecting to database", err)
	}
	defer pg.Close()

	minioClient, err := minio_storage.NewMinioStorage(
		cfg.Minio.Endpoint,
		cfg.Minio.AccessKey,
		cfg.Minio.SecretKey,
		cfg.Minio.UseSSL,
		[]string{cfg.Minio.BlobBucket, cfg.Minio.RegistryBucket, cfg.Minio.AssetBucket},
	)
	if err != nil {
		log.FatalErr("error connecting to object storage", err)
	}

	esClient, err := elastic.NewElasticClient(cfg.ES.Password, cfg.ES.Hosts)
	if err != nil {
		log.FatalErr("error connecting to elasticsearch", err)
	}

	blobStore := minio_storage.NewBlobStore(minioClient, cfg.Minio.BlobBucket, cfg.Minio.Enabled)
	registry := minio_storage.NewFallbackRegistry(minioClient, cfg.Minio.RegistryBucket)
	assetStore := minio_storage.NewAssetStore(minioClient, cfg.Minio.AssetBucket, cfg.Minio.PublicBaseURL)
	metaStore := postgres.NewCourseMetaPostgres(pg.Pool)

	searchRepo := elastic.NewCatalogSearchRepo(esClient, cfg.ES.Index)
	if err := searchRepo.CreateIndexIfNotExist(ctx); err != nil {
		log.FatalErr("error creating search index", err)
	}

	pointerCache := cache.NewPointerCache(cfg.Publish.CacheTTL, cfg.Publish.CacheSweep)

	tokens := auth.NewTokenManager(cfg.JWT.SecretKey, "course-vault")
	publisher := publish.NewOrchestrator(log, blobStore, metaStore, pointerCache, registry, searchRepo, cfg.Publish.MetaTimeout)
	queryService := query.NewQueryService(log, blobStore, metaStore, pointerCache, registry, searchRepo, cfg.Publish.MetaTimeout)
	syncService := syncqueue.New(log, registry, metaStore, cfg.Publish.MetaTimeout)

	fetcher := migration.NewHTTPLegacyFetcher(cfg.Assets.LegacyBaseURL, cfg.Assets.FetchTimeout)
	migrationEngine := migration.NewEngine(log, fetcher, assetStore, blobStore, metaStore, pointerCache, registry, cfg.Publish.MetaTimeout)

	u := service.Collection{
		Tokens:    tokens,
		Publisher: publisher,
		Query:     queryService,
		SyncQueue: syncService,
		Migration: migrationEngine,
		Registry:  registry,
	}

	r := http.InitRoutes(log, u)

	srv := server.New(cfg.HTTPServer.Address, cfg.HTTPServer.Timeout, cfg.HTTPServer.IdleTimeout, r)
	srv.Start()
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case s := <-interrupt:
		log.Info("app signal: " + s.String())
	case err := <-srv.Notify():
		log.ErrorErr("server stopped", err)
	}
	err = srv.Shutdown()
	if err != nil {
		log.ErrorErr("shutdown failed", err)
	}
}

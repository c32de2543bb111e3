package http

import (
	"CourseVault/internal/delivery/http/controllers"
	"CourseVault/internal/delivery/http/controllers/middleware"
	"CourseVault/internal/service"
	"CourseVault/pkg/logger"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func InitRoutes(l logger.Log, u service.Collection) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	config := cors.Config{
		AllowOrigins:     []string{"http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Encoding", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	r.Use(cors.New(config))

	editorAuth := middleware.NewEditorTokenProvider(l, u.Tokens)

	statusController := controllers.NewStatusHandler()
	publishController := controllers.NewPublishHandler(l, u.Publisher)
	courseController := controllers.NewCourseHandler(l, u.Query)
	adminController := controllers.NewAdminHandler(l, u.SyncQueue, u.Registry, u.Migration)

	v1 := r.Group("/v1", middleware.LoggingMiddleware(l))
	{
		v1.GET("/status", statusController.Status)

		courses := v1.Group("/courses")
		{
			courses.GET("/search", courseController.SearchCatalog)
			courses.GET("/:course_id", courseController.GetCourse)

			editor := courses.Group("", editorAuth.EditorMiddleware)
			{
				editor.POST("/:course_id/publish", publishController.Publish)
				editor.POST("/:course_id/draft", publishController.SaveDraft)
			}
		}

		admin := v1.Group("/admin", editorAuth.EditorMiddleware)
		{
			admin.GET("/sync/pending", adminController.PendingSync)
			admin.POST("/sync/run", adminController.RunSync)
			admin.GET("/registry/stats", adminController.RegistryStats)
			admin.POST("/courses/:course_id/migrate-assets", adminController.MigrateAssets)
		}
	}
	return r
}

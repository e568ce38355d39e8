package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter assembles the gin engine with CORS, the identity
// middleware, and every route.
func NewRouter(h *Handler, allowedOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-User-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	} else {
		corsConfig.AllowOrigins = allowedOrigins
	}
	router.Use(cors.New(corsConfig))
	router.Use(IdentityMiddleware(h.Auth))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "qualis"})
	})

	apiGroup := router.Group("/api")
	{
		authGroup := apiGroup.Group("/auth")
		{
			authGroup.POST("/login", h.Login)
			authGroup.GET("/me", h.Me)
		}

		processes := apiGroup.Group("/processes")
		{
			processes.GET("", h.ListProcesses)
			processes.POST("", h.CreateProcess)
			processes.GET("/events", h.ProcessEvents)
			processes.GET("/:id", h.GetProcess)
			processes.PUT("/:id", h.UpdateProcess)
			processes.POST("/:id/fields", h.AddField)
			processes.POST("/:id/steps", h.AddStep)
			processes.GET("/:id/records", h.ListRecords)
			processes.GET("/:id/pending-links", h.PendingLinks)
		}

		fields := apiGroup.Group("/fields")
		{
			fields.PUT("/:id", h.UpdateField)
			fields.DELETE("/:id", h.DeleteField)
		}

		steps := apiGroup.Group("/steps")
		{
			steps.PUT("/:id", h.UpdateStep)
			steps.DELETE("/:id", h.DeleteStep)
		}

		records := apiGroup.Group("/records")
		{
			records.POST("", h.CreateRecord)
			records.GET("/:id", h.GetRecord)
			records.PUT("/:id/values", h.SaveRecordValues)
			records.POST("/:id/actions", h.RecordAction)
			records.GET("/:id/history", h.RecordHistory)
			records.GET("/:id/links", h.RecordLinks)
			records.POST("/:id/links", h.CreateRecordLink)
			records.GET("/:id/tasks", h.RecordTasks)
			records.GET("/:id/audit", h.RecordAudit)
		}

		links := apiGroup.Group("/links")
		{
			links.POST("/:id/resolve", h.ResolveLink)
		}

		wizard := apiGroup.Group("/wizard")
		{
			wizard.POST("", h.StartWizard)
			wizard.GET("/:id", h.GetWizard)
			wizard.PUT("/:id", h.UpdateWizard)
			wizard.POST("/:id/next", h.WizardNext)
			wizard.POST("/:id/previous", h.WizardPrevious)
			wizard.POST("/:id/commit", h.CommitWizard)
			wizard.DELETE("/:id", h.CancelWizard)
		}

		apiGroup.POST("/suggest", h.SuggestProcess)
	}

	return router
}

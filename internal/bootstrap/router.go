package bootstrap

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	httpapi "github.com/astc-project/astc-backend/internal/api/http"
	"github.com/astc-project/astc-backend/internal/api/http/middleware"
	exechttp "github.com/astc-project/astc-backend/internal/execution/http"
	"github.com/astc-project/astc-backend/internal/monitoring"
)

type RouterDeps struct {
	ServiceName      string
	Version          string
	Environment      string
	ExecuteRateLimit float64
	ExecuteRateBurst int
	App              *App
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	if dep.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "X-Request-Id"},
	}))

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.App.Framework)
	healthHandler.RegisterRoutes(r)

	api := r.Group("/api")

	execHandler := exechttp.NewHandler(dep.App.Simulator)
	execHandler.Register(api, middleware.RateLimit(dep.ExecuteRateLimit, dep.ExecuteRateBurst))

	monHandler := monitoring.NewHandler(dep.App.Framework, dep.App.Hub)
	monHandler.Register(api)

	return r
}

package main

import (
	"net/http"
	"strings"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/timeout"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/richxcame/attendance-tracker/pkg/common"
	"github.com/richxcame/attendance-tracker/pkg/config"
	"github.com/richxcame/attendance-tracker/pkg/middleware"
)

type registrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

type liveRegistrar interface {
	registrar
	RegisterLiveRoutes(rg *gin.RouterGroup)
}

// routes collects the handlers mounted under /api/v1
type routes struct {
	attendance    registrar
	fraud         registrar
	workAreas     registrar
	notifications liveRegistrar
	readiness     map[string]func() error
}

func newRouter(cfg *config.Config, r routes) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Recovery())
	if cfg.Sentry.Enabled {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.Metrics(cfg.Server.ServiceName))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = splitOrigins(cfg.Server.CORSOrigins)
	if len(corsConfig.AllowOrigins) == 0 || corsConfig.AllowOrigins[0] == "*" {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.ExposeHeaders = []string{middleware.CorrelationIDHeader}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", middleware.CorrelationIDHeader}
	router.Use(cors.New(corsConfig))

	router.GET("/healthz", common.HealthCheck(serviceName, serviceVersion))
	router.GET("/readyz", common.HealthCheckWithDeps(serviceName, serviceVersion, r.readiness))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := middleware.AuthMiddleware(cfg.JWT.Secret)

	// websocket upgrades must not run under the request timeout
	live := router.Group("/api/v1", auth)
	r.notifications.RegisterLiveRoutes(live)

	api := router.Group("/api/v1", auth, requestTimeout(cfg.Server.RequestTimeout))
	r.attendance.RegisterRoutes(api)
	r.notifications.RegisterRoutes(api)

	managers := api.Group("", middleware.RequireManager())
	r.workAreas.RegisterRoutes(managers)
	r.fraud.RegisterRoutes(managers)

	return router
}

func requestTimeout(seconds int) gin.HandlerFunc {
	if seconds <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return timeout.New(
		timeout.WithTimeout(time.Duration(seconds)*time.Second),
		timeout.WithResponse(func(c *gin.Context) {
			common.ErrorResponse(c, http.StatusGatewayTimeout, "request timed out")
		}),
	)
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

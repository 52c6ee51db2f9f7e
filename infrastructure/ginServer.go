package infrastructure

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	apperrors "fingerprint.gateman.io/application/appErrors"
	"fingerprint.gateman.io/infrastructure/logger"
	middlewares "fingerprint.gateman.io/infrastructure/middleware"
	ratelimit "fingerprint.gateman.io/infrastructure/ratelimit"
	webRoutev1 "fingerprint.gateman.io/infrastructure/routes/ginRouter/web/v1"
	server_response "fingerprint.gateman.io/infrastructure/serverResponse"
	startup "fingerprint.gateman.io/infrastructure/startUp"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type ginServer struct{}

func (s *ginServer) Start(services *startup.Services) {
	server := gin.Default()
	origins := []string{}
	if os.Getenv("GIN_MODE") == "debug" {
		origins = append(origins, "http://localhost:5174")
	}
	if allowed := os.Getenv("CORS_ORIGINS"); allowed != "" {
		origins = append(origins, strings.Split(allowed, ",")...)
	}
	corsConfig := cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Device-Id"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	}
	server.Use(cors.New(corsConfig))
	server.Use(ratelimit.TokenBucketPerIP())
	server.MaxMultipartMemory = 15 << 20 // 15 MiB

	v1 := server.Group("/api")
	v1.Use(middlewares.DeviceHeaderMiddleware())

	routerV1 := v1.Group("/v1")
	{
		webRoutev1.FingerprintRouter(routerV1, services.Controller)
	}

	server.GET("/ping", func(ctx *gin.Context) {
		server_response.Responder.Respond(ctx, http.StatusOK, "pong!", map[string]any{
			"templatesPendingSync": services.Store.PendingCount(),
			"deletesPendingSync":   services.Store.PendingDeletes(),
		}, nil, nil, nil)
	})

	server.NoRoute(func(ctx *gin.Context) {
		apperrors.NotFoundError(ctx, fmt.Sprintf("%s %s does not exist", ctx.Request.Method, ctx.Request.URL), nil)
	})

	gin_mode := os.Getenv("GIN_MODE")
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if gin_mode == "debug" || gin_mode == "release" {
		logger.Info(fmt.Sprintf("Server starting on PORT %s", port))
		if err := server.Run(fmt.Sprintf(":%s", port)); err != nil {
			logger.Error("server stopped", logger.LoggerOptions{Key: "error", Data: err.Error()})
		}
	} else {
		panic(fmt.Sprintf("invalid gin mode used - %s", gin_mode))
	}
}

package main

import (
	"context"
	"strings"
	"time"

	"membership-app/config"
	"membership-app/database"
	"membership-app/internal/api/payments"
	routes "membership-app/internal/app/http"
	"membership-app/internal/infra/cache"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	// gin.SetMode(gin.ReleaseMode) uncomment only in production
	config.LoadEnv()
	database.InitDB()
	cache.Init()

	// pick up payments stranded between checkout and callback
	go payments.RecoverStalePending(context.Background(), 10*time.Minute)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOriginFunc:  allowOrigin(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r)

	r.Run(":" + config.PORT)
}

// allowOrigin matches the static allow-list plus, when configured, one
// suffix pattern for preview deployments (e.g. ".preview.example.app").
func allowOrigin() func(origin string) bool {
	allowed := map[string]bool{}
	for _, o := range strings.Split(config.CORS_ORIGINS, ",") {
		if o = strings.TrimSpace(o); o != "" {
			allowed[o] = true
		}
	}
	// Anchor the suffix at a subdomain boundary so a registered domain
	// merely ending in the suffix text cannot match.
	previewSuffix := config.CORS_PREVIEW_SUFFIX
	if previewSuffix != "" && !strings.HasPrefix(previewSuffix, ".") {
		previewSuffix = "." + previewSuffix
	}

	return func(origin string) bool {
		if allowed[origin] {
			return true
		}
		return previewSuffix != "" && strings.HasSuffix(origin, previewSuffix)
	}
}

package api

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"agentd/internal/auth"
	"agentd/internal/config"
	"agentd/internal/memory"
	"agentd/internal/orchestrator"
)

// Deps carries the collaborators the handlers need. Everything is injected
// so tests can build a router around fakes.
type Deps struct {
	Cfg          *config.Config
	Redis        *redis.Client
	Orch         *orchestrator.Orchestrator
	Memory       *memory.Service
	Consolidator *memory.Consolidator
}

func SetupRouter(d Deps) *gin.Engine {
	r := gin.Default()
	subpath := d.Cfg.Server.Subpath

	group := r.Group(subpath)
	{
		group.GET("/health", healthHandler)

		// Auth
		group.POST("/auth/login", LoginHandler(d.Cfg, d.Redis))
		group.POST("/auth/logout", auth.AuthMiddleware(d.Cfg, d.Redis), LogoutHandler(d.Redis))

		// Dispatch surface
		group.GET("/agents", auth.AuthMiddleware(d.Cfg, d.Redis), ListAgentsHandler(d.Orch))
		group.POST("/dispatch", auth.AuthMiddleware(d.Cfg, d.Redis), DispatchHandler(d.Orch))

		// Memory operator surface
		group.GET("/memory/recent", auth.AuthMiddleware(d.Cfg, d.Redis), RecentMemoryHandler(d.Memory))
		group.POST("/memory/query", auth.AuthMiddleware(d.Cfg, d.Redis), QueryMemoryHandler(d.Memory))
		group.DELETE("/memory/long/:id", auth.AuthMiddleware(d.Cfg, d.Redis), DeleteLongMemoryHandler(d.Memory))
		group.POST("/memory/consolidate", auth.AuthMiddleware(d.Cfg, d.Redis), ConsolidateHandler(d.Consolidator))

		// Dispatch lifecycle event stream
		group.GET("/ws/events", WSEventsHandler(d.Cfg, d.Redis, d.Orch))
	}
	return r
}

package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"agentd/internal/agent"
	"agentd/internal/auth"
	"agentd/internal/config"
	"agentd/internal/memory"
	"agentd/internal/orchestrator"
)

// GET /health
func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// POST /auth/login
func LoginHandler(cfg *config.Config, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Password string `json:"password"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "Invalid request body"}})
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(cfg.Server.OperatorPasswordHash), []byte(req.Password)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": "Invalid credentials"}})
			return
		}
		token, err := auth.GenerateJWT(cfg.Server.JWTSecret, auth.SessionTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"message": "Failed to issue token"}})
			return
		}
		if err := auth.SetSession(rdb, token, auth.SessionTTL); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"message": "Failed to store session"}})
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token})
	}
}

// POST /auth/logout
func LogoutHandler(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		_ = auth.DeleteSession(rdb)
		c.JSON(http.StatusOK, gin.H{"status": "logged out"})
	}
}

// GET /agents
func ListAgentsHandler(orch *orchestrator.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"agents": orch.Names()})
	}
}

// POST /dispatch
// The caller always receives the normalized Result; the HTTP status mirrors
// its tag so API clients can branch without parsing the body.
func DispatchHandler(orch *orchestrator.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var cmd agent.Command
		if err := c.ShouldBindJSON(&cmd); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "Invalid command body"}})
			return
		}
		if cmd.Name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "Command name is required"}})
			return
		}

		result := orch.Dispatch(c.Request.Context(), cmd)
		c.JSON(statusCodeFor(result), result)
	}
}

func statusCodeFor(res agent.Result) int {
	switch res.Status {
	case agent.StatusSuccess:
		return http.StatusOK
	case agent.StatusTimeout:
		return http.StatusGatewayTimeout
	default:
		switch res.Kind {
		case agent.KindUnknownCommand:
			return http.StatusNotFound
		case agent.KindQueueFull:
			return http.StatusTooManyRequests
		default:
			return http.StatusInternalServerError
		}
	}
}

// GET /memory/recent?session=<id>&n=<count>
func RecentMemoryHandler(svc *memory.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := c.DefaultQuery("session", "default")
		n := 20
		if v, ok := c.GetQuery("n"); ok {
			if parsed, err := parsePositiveInt(v); err == nil {
				n = parsed
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"session": session,
			"records": svc.Recent(session, n),
		})
	}
}

// POST /memory/query
func QueryMemoryHandler(svc *memory.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Query         string  `json:"query"`
			TopK          int     `json:"top_k"`
			MinConfidence float64 `json:"min_confidence"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.Query == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "Query text is required"}})
			return
		}
		results, err := svc.Query(c.Request.Context(), req.Query, req.TopK, req.MinConfidence)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"message": err.Error()}})
			return
		}
		c.JSON(http.StatusOK, gin.H{"results": results})
	}
}

// DELETE /memory/long/:id — the only way a long-term record disappears.
func DeleteLongMemoryHandler(svc *memory.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := svc.DeleteLong(c.Request.Context(), id); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"message": err.Error()}})
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": id})
	}
}

// POST /memory/consolidate — trigger a consolidation pass out of schedule.
func ConsolidateHandler(cons *memory.Consolidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		cons.RunCycle(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"status": "consolidation cycle complete"})
	}
}

func parsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid count %q", s)
	}
	return n, nil
}

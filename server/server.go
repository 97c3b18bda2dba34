package server

import (
	"net/http"

	"github.com/chaos-io/maskeraser/config"
	"github.com/gin-gonic/gin"
)

// BuildInfo 由 main 在编译时注入
type BuildInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
}

// NewRouter 注册所有路由
func NewRouter(cfg *config.Config, store *SessionStore, info BuildInfo) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(Logger())
	r.Use(CORS())
	r.Use(BodyLimit(cfg.Server.MaxBodySize))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"version":  info.Version,
			"sessions": store.Len(),
		})
	})
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, info)
	})

	h := NewHandler(cfg, store)

	api := r.Group("/api/v1")
	{
		api.POST("/sessions", h.CreateSession)
		api.GET("/sessions/:id", h.GetSession)
		api.DELETE("/sessions/:id", h.DeleteSession)
		api.POST("/sessions/:id/image", h.LoadImage)
		api.POST("/sessions/:id/strokes", h.Stroke)
		api.GET("/sessions/:id/mask", h.GetMask)
		api.DELETE("/sessions/:id/mask", h.ClearMask)
		api.GET("/sessions/:id/canvas", h.GetCanvas)
		api.POST("/sessions/:id/remove", h.Remove)
		api.GET("/sessions/:id/result", h.GetResult)
		api.GET("/sessions/:id/compare", h.Compare)
		api.POST("/sessions/:id/compare/slider", h.Slider)
		api.POST("/sessions/:id/reset", h.Reset)
	}

	return r
}

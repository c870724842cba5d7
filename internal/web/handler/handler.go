package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/andhikamw/lensdl/internal/common/config"
	"github.com/andhikamw/lensdl/internal/common/session"
	"github.com/andhikamw/lensdl/internal/engine"
	"github.com/andhikamw/lensdl/internal/task"
	"github.com/andhikamw/lensdl/internal/web/websocket"
	"github.com/andhikamw/lensdl/pkg/models"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Handler exposes the engine over the local HTTP API the front end
// talks to.
type Handler struct {
	dlCfg   *config.DownloaderConfig
	session *session.Client
	engine  *engine.Engine
	manager *task.Manager
	wsHub   *websocket.Hub
	log     *logrus.Logger
}

// NewHandler wires the API around an engine, its session and a task
// manager, and starts the websocket hub.
func NewHandler(dlCfg *config.DownloaderConfig, sess *session.Client, eng *engine.Engine, manager *task.Manager, hub *websocket.Hub, log *logrus.Logger) *Handler {
	go hub.Run()

	return &Handler{
		dlCfg:   dlCfg,
		session: sess,
		engine:  eng,
		manager: manager,
		wsHub:   hub,
		log:     log,
	}
}

// Hub returns the websocket hub so the task manager can broadcast into it.
func (h *Handler) Hub() *websocket.Hub {
	return h.wsHub
}

// RegisterRoutes registers all the routes for the API
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.Use(corsMiddleware())

	r.GET("/ws", websocket.Handler(h.wsHub, h.log))

	api := r.Group("/api")
	{
		api.GET("/health", h.HealthHandler())
		api.POST("/parse", h.ParseHandler())
		api.POST("/download", h.DownloadHandler())
		api.GET("/progress/:id", h.ProgressHandler())
		api.GET("/tasks", h.TasksHandler())
		api.POST("/cookies", h.SetCookiesHandler())
		api.GET("/cookies/check", h.CheckCookiesHandler())
	}
}

// corsMiddleware keeps the API reachable from the Electron front end.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// HealthHandler reports liveness and whether the session is logged in.
func (h *Handler) HealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":        "ok",
			"authenticated": h.session.HasAuthCookie(),
		})
	}
}

// ParseHandler resolves a URL or identifier and returns the available
// download options without starting a transfer.
func (h *Handler) ParseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			URL string `json:"url" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		info, courseTitle, err := h.engine.Parse(context.Background(), req.URL)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, models.ErrResolutionFailed) || errors.Is(err, models.ErrPlaylistUnavailable) {
				status = http.StatusBadRequest
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		options := make([]gin.H, 0, info.Playlist.Len())
		for _, entry := range info.Playlist.Entries() {
			if !entry.Usable() {
				continue
			}
			options = append(options, gin.H{
				"quality": entry.Quality,
				"width":   entry.Width,
				"height":  entry.Height,
				"format":  entry.Format,
			})
		}

		c.JSON(http.StatusOK, gin.H{
			"video_id":     info.ID,
			"title":        info.Title,
			"course_title": courseTitle,
			"duration":     info.DurationMillis,
			"options":      options,
		})
	}
}

// DownloadHandler starts a download task and returns its id.
func (h *Handler) DownloadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			URL        string `json:"url" binding:"required"`
			Quality    string `json:"quality"`
			OutputPath string `json:"output_path"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		if req.Quality == "" {
			req.Quality = h.dlCfg.Quality
		}
		if req.OutputPath == "" {
			req.OutputPath = h.dlCfg.OutputDir
		}

		id := h.manager.Start(req.URL, req.OutputPath, models.Quality(req.Quality))
		c.JSON(http.StatusOK, gin.H{"download_id": id})
	}
}

// ProgressHandler returns the state of one task.
func (h *Handler) ProgressHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		t, ok := h.manager.Get(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unknown download id"})
			return
		}
		c.JSON(http.StatusOK, t)
	}
}

// TasksHandler lists all tasks, newest first.
func (h *Handler) TasksHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"tasks": h.manager.List()})
	}
}

// SetCookiesHandler replaces the session cookies with the posted set.
func (h *Handler) SetCookiesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Cookies []session.Cookie `json:"cookies" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		count := h.session.SetCookies(req.Cookies)
		h.log.WithField("count", count).Info("Session cookies replaced via API")
		c.JSON(http.StatusOK, gin.H{"status": "ok", "count": count})
	}
}

// CheckCookiesHandler reports which cookies the session holds.
func (h *Handler) CheckCookiesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"authenticated": h.session.HasAuthCookie(),
			"cookies":       h.session.CookieNames(),
		})
	}
}

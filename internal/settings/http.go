package settings

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/abduss/pipelinedash/internal/logger"
	"github.com/abduss/pipelinedash/internal/session"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type connector interface {
	Connect(ctx context.Context, creds session.Credentials) error
	Connected() bool
}

type windowDefaults interface {
	DefaultWindow() (string, string)
}

// Handler serves the operator's saved preferences and connection form.
type Handler struct {
	store    *Store
	conn     connector
	defaults windowDefaults
	logger   *zap.Logger
}

func NewHandler(store *Store, conn connector, defaults windowDefaults, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{store: store, conn: conn, defaults: defaults, logger: log}
}

// RegisterRoutes mounts settings endpoints onto the router.
func RegisterRoutes(group *gin.RouterGroup, handler *Handler) {
	group.GET("/settings", handler.get)
	group.PUT("/settings/connection", handler.connect)
	group.PUT("/settings/window", handler.saveWindow)
}

type windowRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type settingsResponse struct {
	Preferences
	Connected bool `json:"connected"`
}

func (h *Handler) get(c *gin.Context) {
	prefs, err := h.store.LoadPreferences(c.Request.Context())
	if err != nil {
		logger.FromContext(c, h.logger).Error("load preferences", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load settings"})
		return
	}

	prefs.AccessKey = MaskKey(prefs.AccessKey)
	if (prefs.Start == "" || prefs.End == "") && h.defaults != nil {
		prefs.Start, prefs.End = h.defaults.DefaultWindow()
	}
	if prefs.Anonymous == "" {
		prefs.Anonymous = "all"
	}
	if prefs.India == "" {
		prefs.India = "all"
	}

	c.JSON(http.StatusOK, settingsResponse{Preferences: prefs, Connected: h.conn.Connected()})
}

func (h *Handler) connect(c *gin.Context) {
	var req session.Credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if !req.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "please enter both store URL and access key"})
		return
	}

	log := logger.FromContext(c, h.logger)
	if err := h.conn.Connect(c.Request.Context(), req); err != nil {
		if errors.Is(err, session.ErrMissingCredentials) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Warn("store connection failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not connect to store: " + err.Error()})
		return
	}

	if err := h.store.SaveConnection(c.Request.Context(), strings.TrimSpace(req.StoreURL), strings.TrimSpace(req.AccessKey)); err != nil {
		log.Warn("could not cache connection", zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"status": "connected"})
}

// saveWindow caches the date inputs as the operator edits them. Values are
// stored as typed and validated only when a filter runs.
func (h *Handler) saveWindow(c *gin.Context) {
	var req windowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.store.SaveWindow(c.Request.Context(), req.Start, req.End); err != nil {
		logger.FromContext(c, h.logger).Error("save window", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save window"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"start": req.Start, "end": req.End})
}

// MaskKey hides all but the last four characters of a secret.
func MaskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", 8) + key[len(key)-4:]
}

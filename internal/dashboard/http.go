package dashboard

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts dashboard endpoints onto the router.
func RegisterRoutes(group *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}
	group.POST("/dashboard/filter", handler.filter)
	group.POST("/dashboard/last-day", handler.lastDay)
}

type httpHandler struct {
	service *Service
}

func (h *httpHandler) filter(c *gin.Context) {
	var q Query
	if err := c.ShouldBindJSON(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	view, err := h.service.Filter(c.Request.Context(), q)
	if err != nil {
		var verr *ValidationError
		var ferr *FetchError
		switch {
		case errors.Is(err, ErrNoConnection):
			c.JSON(http.StatusConflict, gin.H{"error": "please configure the store connection first"})
		case errors.As(err, &verr):
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
		case errors.As(err, &ferr):
			c.JSON(http.StatusBadGateway, gin.H{"error": "error fetching data: " + ferr.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to filter records"})
		}
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *httpHandler) lastDay(c *gin.Context) {
	start, end := h.service.LastDay(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"start": start, "end": end})
}

package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"intentio/backend/internal/model"
	"intentio/backend/internal/service"
)

type SessionHandler struct {
	sessionService *service.SessionService
}

type summaryRequest struct {
	Summary string `json:"summary"`
}

func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

func (h *SessionHandler) List(c *gin.Context) {
	var filter model.SessionFilter
	if raw := c.Query("intentId"); raw != "" {
		intentID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeInvalidQuery(c, "intentId")
			return
		}
		filter.IntentID = &intentID
	}
	if raw := c.Query("since"); raw != "" {
		since, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeInvalidQuery(c, "since")
			return
		}
		filter.Since = &since
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			writeInvalidQuery(c, "limit")
			return
		}
		filter.Limit = limit
	}

	sessions, apiErr := h.sessionService.List(c.Request.Context(), filter)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (h *SessionHandler) Get(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	session, apiErr := h.sessionService.Get(c.Request.Context(), id)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

func (h *SessionHandler) UpdateSummary(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	var req summaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}

	session, apiErr := h.sessionService.UpdateSummary(c.Request.Context(), id, req.Summary)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

func sessionID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "invalid_session_id", "message": "session id must be an integer"},
		})
		return 0, false
	}
	return id, true
}

func writeInvalidQuery(c *gin.Context, param string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error": gin.H{"code": "invalid_query", "message": param + " must be an integer"},
	})
}

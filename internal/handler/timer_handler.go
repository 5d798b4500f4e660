package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"intentio/backend/internal/model"
	"intentio/backend/internal/service"
)

type TimerHandler struct {
	timerService *service.TimerService
}

type intentRequest struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}

func NewTimerHandler(timerService *service.TimerService) *TimerHandler {
	return &TimerHandler{timerService: timerService}
}

func (h *TimerHandler) GetSession(c *gin.Context) {
	session, apiErr := h.timerService.GetSession()
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

func (h *TimerHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.timerService.Status())
}

func (h *TimerHandler) SetIntent(c *gin.Context) {
	var req intentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}

	session, apiErr := h.timerService.SetIntent(model.Intent{ID: req.ID, Label: req.Label})
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

func (h *TimerHandler) Play(c *gin.Context) {
	session, apiErr := h.timerService.Play()
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

func (h *TimerHandler) Stop(c *gin.Context) {
	session, apiErr := h.timerService.Stop()
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

func (h *TimerHandler) Restart(c *gin.Context) {
	session, apiErr := h.timerService.Restart(c.Request.Context())
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

func (h *TimerHandler) Skip(c *gin.Context) {
	session, apiErr := h.timerService.Skip(c.Request.Context())
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"intentio/backend/internal/model"
	"intentio/backend/internal/service"
)

type SettingsHandler struct {
	settingsService *service.SettingsService
}

func NewSettingsHandler(settingsService *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService}
}

func (h *SettingsHandler) GetTimer(c *gin.Context) {
	policy, apiErr := h.settingsService.Get()
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"timer": policy})
}

func (h *SettingsHandler) UpdateTimer(c *gin.Context) {
	var req model.TimerPolicyUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}

	policy, apiErr := h.settingsService.Update(req)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"timer": policy})
}

func (h *SettingsHandler) ResetTimer(c *gin.Context) {
	policy, apiErr := h.settingsService.Reset()
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"timer": policy})
}

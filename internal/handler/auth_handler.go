package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"intentio/backend/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
}

type tokenRequest struct {
	Passphrase string `json:"passphrase"`
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Token(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}

	result, apiErr := h.authService.Exchange(req.Passphrase)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}

	c.JSON(http.StatusCreated, result)
}

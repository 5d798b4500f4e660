package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "intentio/backend/internal/errors"
	"intentio/backend/internal/model"
	"intentio/backend/internal/service"
)

type QueueHandler struct {
	timerService *service.TimerService
}

type queueEntryRequest struct {
	Intent     intentRequest `json:"intent"`
	Duration   int           `json:"duration"`
	Iterations int           `json:"iterations"`
}

type reorderRequest struct {
	Target *int `json:"target"`
}

type durationRequest struct {
	Minutes int `json:"minutes"`
}

func NewQueueHandler(timerService *service.TimerService) *QueueHandler {
	return &QueueHandler{timerService: timerService}
}

func (h *QueueHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"queue": h.timerService.Queue()})
}

func (h *QueueHandler) Add(c *gin.Context) {
	var req queueEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}

	iterations := req.Iterations
	if iterations == 0 {
		iterations = 1
	}
	queue, apiErr := h.timerService.AddToQueue(model.QueueEntry{
		Intent:          model.Intent{ID: req.Intent.ID, Label: req.Intent.Label},
		DurationMinutes: req.Duration,
		Iterations:      iterations,
	})
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"queue": queue})
}

func (h *QueueHandler) Clear(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"queue": h.timerService.ClearQueue()})
}

func (h *QueueHandler) Remove(c *gin.Context) {
	idx, ok := queueIndex(c)
	if !ok {
		return
	}
	queue, apiErr := h.timerService.RemoveFromQueue(idx)
	writeQueue(c, queue, apiErr)
}

func (h *QueueHandler) Reorder(c *gin.Context) {
	idx, ok := queueIndex(c)
	if !ok {
		return
	}
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Target == nil {
		writeInvalidJSON(c)
		return
	}
	queue, apiErr := h.timerService.ReorderQueue(idx, *req.Target)
	writeQueue(c, queue, apiErr)
}

func (h *QueueHandler) Increment(c *gin.Context) {
	idx, ok := queueIndex(c)
	if !ok {
		return
	}
	queue, apiErr := h.timerService.IncrementIterations(idx)
	writeQueue(c, queue, apiErr)
}

func (h *QueueHandler) Decrement(c *gin.Context) {
	idx, ok := queueIndex(c)
	if !ok {
		return
	}
	queue, apiErr := h.timerService.DecrementIterations(idx)
	writeQueue(c, queue, apiErr)
}

func (h *QueueHandler) UpdateDuration(c *gin.Context) {
	idx, ok := queueIndex(c)
	if !ok {
		return
	}
	var req durationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}
	queue, apiErr := h.timerService.UpdateQueueDuration(idx, req.Minutes)
	writeQueue(c, queue, apiErr)
}

func writeQueue(c *gin.Context, queue []model.QueueEntry, apiErr *apperrors.APIError) {
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"queue": queue})
}

func queueIndex(c *gin.Context) (int, bool) {
	idx, err := strconv.Atoi(c.Param("idx"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "invalid_index", "message": "queue index must be an integer"},
		})
		return 0, false
	}
	return idx, true
}

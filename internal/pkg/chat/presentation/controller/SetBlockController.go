package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/toji20/HomoChat/internal/pkg/chat/application/usecase"
)

// SetBlockController handles the block/unblock endpoint only (one
// controller per endpoint).
type SetBlockController struct {
	UC *usecase.SetBlockUseCase
}

func NewSetBlockController(uc *usecase.SetBlockUseCase) *SetBlockController {
	return &SetBlockController{UC: uc}
}

type setBlockRequest struct {
	OwnerID  string `json:"owner_id" binding:"required"`
	TargetID string `json:"target_id" binding:"required"`
	Blocked  *bool  `json:"blocked" binding:"required"`
}

func (h *SetBlockController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req setBlockRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		err := h.UC.Execute(ctx, usecase.SetBlockInput{
			OwnerID:  req.OwnerID,
			TargetID: req.TargetID,
			Blocked:  *req.Blocked,
		})
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, usecase.ErrPersistence) {
				status = http.StatusInternalServerError
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"blocked": *req.Blocked})
	}
}

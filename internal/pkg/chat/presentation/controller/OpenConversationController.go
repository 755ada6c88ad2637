package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	chat "github.com/toji20/HomoChat/internal/pkg/chat/application/domain"
	"github.com/toji20/HomoChat/internal/pkg/chat/application/usecase"
)

// OpenConversationController handles the create-or-get conversation
// endpoint (one controller per endpoint).
type OpenConversationController struct {
	UC *usecase.OpenConversationUseCase
}

func NewOpenConversationController(uc *usecase.OpenConversationUseCase) *OpenConversationController {
	return &OpenConversationController{UC: uc}
}

// openConversationRequest accepts the peer either by id or by username
// (the add-user search flow resolves usernames server-side).
type openConversationRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	PeerID   string `json:"peer_id"`
	Username string `json:"username"`
}

func (h *OpenConversationController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req openConversationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		res, err := h.UC.Execute(ctx, usecase.OpenConversationInput{
			UserID:   req.UserID,
			PeerID:   req.PeerID,
			Username: req.Username,
		})
		if err != nil {
			status := http.StatusBadRequest
			switch {
			case errors.Is(err, chat.ErrNotFound):
				status = http.StatusNotFound
			case errors.Is(err, usecase.ErrPersistence):
				status = http.StatusInternalServerError
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		status := http.StatusOK
		if res.Created {
			status = http.StatusCreated
		}
		conv := res.Conversation
		c.JSON(status, gin.H{
			"id":             conv.ID,
			"participant_a":  conv.ParticipantA,
			"participant_b":  conv.ParticipantB,
			"created_at":     conv.CreatedAt,
			"created":        res.Created,
			"counterpart_id": conv.Counterpart(req.UserID),
		})
	}
}

package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	chat "github.com/toji20/HomoChat/internal/pkg/chat/application/domain"
	"github.com/toji20/HomoChat/internal/pkg/chat/application/usecase"
)

// SendMessageController handles the send-message endpoint only (one
// controller per endpoint). Sends run synchronously through the engine:
// the response carries the server-assigned sequence number, and a failed
// call means the caller must resend explicitly.
type SendMessageController struct {
	UC  *usecase.SendMessageUseCase
	Log *zap.Logger
}

func NewSendMessageController(uc *usecase.SendMessageUseCase, log *zap.Logger) *SendMessageController {
	if log == nil {
		log = zap.NewNop()
	}
	return &SendMessageController{UC: uc, Log: log}
}

// sendMessageRequest is the DTO for the HTTP request body
type sendMessageRequest struct {
	SenderID      string  `json:"sender_id" binding:"required"`
	Body          *string `json:"body"`
	AttachmentURL *string `json:"attachment_url"`
}

func (h *SendMessageController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		chatID := c.Param("chatId")
		if chatID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "chatId is required"})
			return
		}

		var req sendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		msg, err := h.UC.Execute(ctx, usecase.SendMessageInput{
			ConversationID: chatID,
			SenderID:       req.SenderID,
			Body:           req.Body,
			AttachmentURL:  req.AttachmentURL,
		})
		if err != nil && msg == nil {
			status := http.StatusBadRequest
			switch {
			case errors.Is(err, chat.ErrNotFound):
				status = http.StatusNotFound
			case errors.Is(err, chat.ErrNotParticipant), errors.Is(err, chat.ErrBlocked):
				status = http.StatusForbidden
			case errors.Is(err, usecase.ErrPersistence):
				status = http.StatusInternalServerError
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		resp := gin.H{
			"id":              msg.ID,
			"conversation_id": msg.ConversationID,
			"sender_id":       msg.SenderID,
			"seq":             msg.Seq,
			"body":            msg.Body,
			"attachment_url":  msg.AttachmentURL,
			"created_at":      msg.CreatedAt,
		}
		// A non-nil message with an error means the append committed but
		// the index update failed and could not be queued for repair; the
		// send itself succeeded, and the caller learns the list may lag.
		if err != nil {
			h.Log.Warn("chat index update deferred",
				zap.String("conversation_id", chatID),
				zap.String("sender_id", req.SenderID),
				zap.Error(err))
			resp["index_pending"] = true
		}
		c.JSON(http.StatusCreated, resp)
	}
}

package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/toji20/HomoChat/internal/pkg/chat/application/usecase"
)

// ListChatsController handles the chat-list endpoint only (one
// controller per endpoint).
type ListChatsController struct {
	UC *usecase.ListChatsUseCase
}

func NewListChatsController(uc *usecase.ListChatsUseCase) *ListChatsController {
	return &ListChatsController{UC: uc}
}

func (h *ListChatsController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Query("user_id")
		if userID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		items, err := h.UC.Execute(ctx, usecase.ListChatsInput{UserID: userID})
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, usecase.ErrPersistence) {
				status = http.StatusInternalServerError
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		out := make([]gin.H, 0, len(items))
		for _, it := range items {
			row := gin.H{
				"conversation_id": it.Entry.ConversationID,
				"counterpart_id":  it.Entry.CounterpartID,
				"last_message":    it.Entry.LastMessage,
				"is_seen":         it.Entry.IsSeen,
				"updated_at":      it.Entry.UpdatedAt,
			}
			if it.Counterpart != nil {
				row["username"] = it.Counterpart.Username
				row["avatar_url"] = it.Counterpart.AvatarURL
			}
			out = append(out, row)
		}

		c.JSON(http.StatusOK, gin.H{"chats": out, "count": len(out)})
	}
}

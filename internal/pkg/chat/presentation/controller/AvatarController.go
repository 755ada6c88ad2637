package controller

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	chat "github.com/toji20/HomoChat/internal/pkg/chat/application/domain"
	"github.com/toji20/HomoChat/internal/pkg/chat/application/usecase"
	"github.com/toji20/HomoChat/internal/pkg/media"
)

// maxAvatarBytes caps the multipart image read.
const maxAvatarBytes = 8 << 20

// AvatarController handles the avatar upload endpoint only (one
// controller per endpoint). The image arrives as multipart form data
// under the "avatar" field.
type AvatarController struct {
	UC *usecase.UpdateAvatarUseCase
}

func NewAvatarController(uc *usecase.UpdateAvatarUseCase) *AvatarController {
	return &AvatarController{UC: uc}
}

func (h *AvatarController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("userId")
		if userID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
			return
		}

		fh, err := c.FormFile("avatar")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "avatar file is required"})
			return
		}
		if fh.Size > maxAvatarBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "avatar too large"})
			return
		}
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, maxAvatarBytes))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		url, err := h.UC.Execute(ctx, usecase.UpdateAvatarInput{
			UserID:   userID,
			Filename: fh.Filename,
			Data:     data,
		})
		if err != nil {
			status := http.StatusBadRequest
			switch {
			case errors.Is(err, chat.ErrNotFound):
				status = http.StatusNotFound
			case errors.Is(err, media.ErrUploadFailed):
				status = http.StatusBadGateway
			case errors.Is(err, usecase.ErrPersistence):
				status = http.StatusInternalServerError
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"avatar_url": url})
	}
}

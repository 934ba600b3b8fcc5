package dto

import (
	"time"

	"github.com/google/uuid"
)

type SendChatRequest struct {
	Message string `json:"message" validate:"required"`
}

type ChatMessageResponse struct {
	Id        uuid.UUID `json:"id"`
	Role      string    `json:"role"`
	Chat      string    `json:"chat"`
	CreatedAt time.Time `json:"created_at"`
}

package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateJournalRequest struct {
	Title          string   `json:"title" validate:"max=255"`
	Content        string   `json:"content" validate:"required"`
	ImageSummaries []string `json:"image_summaries"`
}

type JournalResponse struct {
	Id             uuid.UUID `json:"id"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	MemoryPoint    *string   `json:"memory_point"`
	MemoryAccepted bool      `json:"memory_accepted"` // whether async extraction was enqueued
	CreatedAt      time.Time `json:"created_at"`
}

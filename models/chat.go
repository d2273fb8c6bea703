package models

import "time"

// Chat channels. Every conversation id belongs to exactly one channel;
// the pdf channel additionally binds a single uploaded file.
const (
	ChannelService = "service"
	ChannelPDF     = "pdf"
)

// Chat turn roles, matching what the model API expects.
const (
	RoleUser      = "user"
	RoleAssistant = "model"
)

// ChatRequest is the per-call input to the chat orchestrator. It is never
// persisted; FileNameFilter is set only on the pdf channel.
type ChatRequest struct {
	Prompt         string
	ChatID         string
	FileNameFilter string
}

// ChatTurn is a single prior exchange half stored in conversation memory.
type ChatTurn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

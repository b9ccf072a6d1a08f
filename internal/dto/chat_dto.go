package dto

import "github.com/useyours/yours-backend/internal/models"

type StreamRequest struct {
	Message models.Turn `json:"message"`
}

type ChatStateResponse struct {
	Narrative    []models.Turn `json:"narrative"`
	UniverseDay  int           `json:"universe_day"`
	UniverseTime string        `json:"universe_time"`
	Textarea     string        `json:"textarea"`
}

type TextareaRequest struct {
	Textarea string `json:"textarea"`
}

type UniverseTimeResponse struct {
	UniverseTime string `json:"universe_time"`
}

type IntegrateResponse struct {
	Status       string `json:"status"`
	UniverseTime string `json:"universe_time"`
}

// SubscriptionRequiredResponse is the 402 body pointing at the subscribe
// surface.
type SubscriptionRequiredResponse struct {
	Error        bool   `json:"error"`
	Message      string `json:"message"`
	SubscribeURL string `json:"subscribe_url"`
}

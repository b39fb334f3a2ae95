package workflow

import "github.com/fieldtrack/fieldtrack/internal/history"

type transitionRequest struct {
	To   string `json:"to" validate:"required,oneof=created submitted review rework done"`
	Note string `json:"note" validate:"omitempty,max=2000"`
}

type transitionResponse struct {
	Event history.TransitionEvent `json:"event"`
}

type historyResponse struct {
	SessionID string                    `json:"session_id"`
	Events    []history.TransitionEvent `json:"events"`
}

type allowedResponse struct {
	SessionID string   `json:"session_id"`
	Current   Status   `json:"current_status"`
	Allowed   []Status `json:"allowed"`
}

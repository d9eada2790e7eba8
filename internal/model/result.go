package model

import "time"

// CategorizationResult is the structured outcome of categorizing one email,
// produced either by a heuristic rule or by parsing the model response.
// It is never partially constructed: parsing yields a complete, validated
// result or nothing.
type CategorizationResult struct {
	ID          string `json:"ID"`
	Subject     string `json:"subject"`
	Category    string `json:"category"`
	SubCategory string `json:"subCategory,omitempty"`
	Analysis    string `json:"analysis"`
	SenderGoal  string `json:"senderGoal"`
}

// ProcessingResult is the per-email unit returned to the CLI and web layer.
// Terminal: never mutated after construction.
type ProcessingResult struct {
	EmailID          string    `json:"email_id"`
	Subject          string    `json:"subject"`
	Sender           string    `json:"sender"`
	ReceivedDateTime time.Time `json:"received_date_time"`
	Category         string    `json:"category"`
	SubCategory      string    `json:"sub_category,omitempty"`
	SenderGoal       string    `json:"sender_goal,omitempty"`
	FolderID         string    `json:"folder_id,omitempty"`
	Success          bool      `json:"success"`
	Error            string    `json:"error,omitempty"`
}

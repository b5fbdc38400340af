package models

// EmailEvent is the inbound email-shaped payload produced upstream by mail
// ingestion. The engine matches it against email-trigger rules; parsing
// heuristics that extract structured facts from raw text happen before this
// point.
type EmailEvent struct {
	OwnerID string `json:"owner_id" validate:"required"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	From    string `json:"from"`
}

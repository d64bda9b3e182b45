package model

import "time"

// HistoryRecord is one stored identification owned by exactly one identity
type HistoryRecord struct {
	ID        string       `json:"id"`
	OwnerID   string       `json:"ownerId"`
	Lines     []string     `json:"lines"`
	DrugInfo  DrugMetadata `json:"drugInfo"`
	CreatedAt time.Time    `json:"createdAt"`
}

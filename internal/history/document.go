package history

import (
	"encoding/json"
	"time"

	"github.com/ppiankov/snapmed/internal/model"
)

// Document is the stored shape of one history record.
// The medication payload is kept as JSON text, so a single row can be unreadable
// without affecting the others.
type Document struct {
	ID             string    `gorm:"primaryKey;size:36"`
	OwnerID        string    `gorm:"size:128;not null;index:idx_owner_created,priority:1"`
	MedicationData string    `gorm:"type:text;not null"`
	CreatedAt      time.Time `gorm:"not null;index:idx_owner_created,priority:2"`
}

// TableName sets the table name
func (Document) TableName() string {
	return "medication_histories"
}

// medicationData is the JSON payload of a Document
type medicationData struct {
	Lines    []string            `json:"lines"`
	DrugInfo *model.DrugMetadata `json:"drugInfo"`
}

func encodeMedicationData(lines []string, drugInfo model.DrugMetadata) (string, error) {
	data, err := json.Marshal(medicationData{Lines: lines, DrugInfo: &drugInfo})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeMedicationData(raw string) (medicationData, error) {
	var md medicationData
	err := json.Unmarshal([]byte(raw), &md)
	return md, err
}

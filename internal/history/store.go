// Package history persists identifications and reads them back per owner.
package history

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/ppiankov/snapmed/internal/apperr"
	"github.com/ppiankov/snapmed/internal/logging"
	"github.com/ppiankov/snapmed/internal/metrics"
	"github.com/ppiankov/snapmed/internal/model"
	"github.com/ppiankov/snapmed/internal/normalize"
)

// MaxResults caps ListByOwner
const MaxResults = 100

// Store appends history records and lists them per owner. Records are never
// updated or deleted here.
type Store struct {
	db      *gorm.DB
	query   OwnerQuery
	now     func() time.Time
	newID   func() string
	logger  *logrus.Logger
	metrics *metrics.Metrics
}

// Option configures a Store
type Option func(*Store)

// WithQuery replaces the default ScanQuery
func WithQuery(q OwnerQuery) Option {
	return func(s *Store) { s.query = q }
}

// WithClock sets the timestamp source
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator sets the record id source
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// WithLogger sets the logger
func WithLogger(l *logrus.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithMetrics records reads and writes
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// NewStore creates a store on an open database
func NewStore(db *gorm.DB, opts ...Option) *Store {
	s := &Store{
		db:    db,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.query == nil {
		s.query = NewScanQuery(db)
	}
	s.logger = logging.OrDefault(s.logger)
	return s
}

// Append stores one record and returns its id.
// A nil drugInfo is stored as the all-sentinel record; missing fields become sentinels.
func (s *Store) Append(ctx context.Context, ownerID string, lines []string, drugInfo *model.DrugMetadata) (string, error) {
	if strings.TrimSpace(ownerID) == "" {
		return "", apperr.InvalidInput("owner identity is required")
	}
	if len(lines) == 0 {
		return "", apperr.InvalidInput("Invalid medication data: lines array is required")
	}

	payload, err := encodeMedicationData(lines, normalize.Complete(drugInfo))
	if err != nil {
		return "", apperr.Unexpected("Failed to save medication history", err)
	}

	doc := Document{
		ID:             s.newID(),
		OwnerID:        ownerID,
		MedicationData: payload,
		CreatedAt:      s.now().UTC(),
	}

	if err := s.db.WithContext(ctx).Create(&doc).Error; err != nil {
		s.metrics.RecordHistoryWrite(false)
		s.logger.WithError(err).WithField("owner", ownerID).Error("history append failed")
		return "", apperr.PersistenceUnavailable("Failed to save medication history", err)
	}

	s.metrics.RecordHistoryWrite(true)
	s.logger.WithFields(logrus.Fields{"owner": ownerID, "id": doc.ID}).Debug("history appended")
	return doc.ID, nil
}

// ListByOwner returns the owner's newest records first, at most MaxResults.
// Read faults are logged and reported as an empty list. A record whose payload
// cannot be decoded is returned with empty lines and sentinel drug info.
func (s *Store) ListByOwner(ctx context.Context, ownerID string) []model.HistoryRecord {
	records := []model.HistoryRecord{}
	if strings.TrimSpace(ownerID) == "" {
		return records
	}

	docs, err := s.query.ListByOwner(ctx, ownerID, MaxResults)
	if err != nil {
		s.metrics.RecordHistoryRead(false)
		s.logger.WithError(err).WithField("owner", ownerID).Error("history read failed")
		return records
	}
	s.metrics.RecordHistoryRead(true)

	for _, doc := range docs {
		records = append(records, s.toRecord(doc))
	}
	return records
}

func (s *Store) toRecord(doc Document) model.HistoryRecord {
	record := model.HistoryRecord{
		ID:        doc.ID,
		OwnerID:   doc.OwnerID,
		Lines:     []string{},
		DrugInfo:  normalize.Default(),
		CreatedAt: doc.CreatedAt,
	}

	data, err := decodeMedicationData(doc.MedicationData)
	if err != nil {
		s.logger.WithError(err).WithField("id", doc.ID).Warn("unreadable history payload")
		return record
	}

	if data.Lines != nil {
		record.Lines = data.Lines
	}
	record.DrugInfo = normalize.Complete(data.DrugInfo)
	return record
}

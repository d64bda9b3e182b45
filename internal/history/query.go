package history

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"
)

// OwnerQuery is the owner-scoped, newest-first, bounded read behind ListByOwner.
// Ties on CreatedAt are ordered by ID ascending.
type OwnerQuery interface {
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]Document, error)
}

// ScanQuery reads every document and filters, sorts and truncates in process.
// It assumes nothing about indexes on the backing store.
type ScanQuery struct {
	db *gorm.DB
}

// NewScanQuery creates a ScanQuery
func NewScanQuery(db *gorm.DB) *ScanQuery {
	return &ScanQuery{db: db}
}

// ListByOwner implements OwnerQuery
func (q *ScanQuery) ListByOwner(ctx context.Context, ownerID string, limit int) ([]Document, error) {
	var all []Document
	if err := q.db.WithContext(ctx).Find(&all).Error; err != nil {
		return nil, fmt.Errorf("scan history: %w", err)
	}

	owned := make([]Document, 0, len(all))
	for _, doc := range all {
		if doc.OwnerID == ownerID {
			owned = append(owned, doc)
		}
	}

	sort.SliceStable(owned, func(i, j int) bool {
		if !owned[i].CreatedAt.Equal(owned[j].CreatedAt) {
			return owned[i].CreatedAt.After(owned[j].CreatedAt)
		}
		return owned[i].ID < owned[j].ID
	})

	if limit > 0 && len(owned) > limit {
		owned = owned[:limit]
	}
	return owned, nil
}

// IndexedQuery pushes the filter, order and limit down to the database
// using the (owner_id, created_at) index.
type IndexedQuery struct {
	db *gorm.DB
}

// NewIndexedQuery creates an IndexedQuery
func NewIndexedQuery(db *gorm.DB) *IndexedQuery {
	return &IndexedQuery{db: db}
}

// ListByOwner implements OwnerQuery
func (q *IndexedQuery) ListByOwner(ctx context.Context, ownerID string, limit int) ([]Document, error) {
	var docs []Document
	tx := q.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Order("id ASC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if err := tx.Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	return docs, nil
}

// NewOwnerQuery selects a query strategy by name: "scan" (default) or "indexed"
func NewOwnerQuery(name string, db *gorm.DB) (OwnerQuery, error) {
	switch strings.ToLower(name) {
	case "scan", "":
		return NewScanQuery(db), nil
	case "indexed":
		return NewIndexedQuery(db), nil
	default:
		return nil, fmt.Errorf("unknown history query: %s (supported: scan, indexed)", name)
	}
}

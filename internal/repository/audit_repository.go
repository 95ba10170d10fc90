package repository

import (
	"context"

	"github.com/andresuchdata/r2bridge/internal/domain"
)

type AuditRepository interface {
	Record(ctx context.Context, entry *domain.AuditEntry) error
	Recent(ctx context.Context, limit int) ([]*domain.AuditEntry, error)
}

type noopAuditRepository struct{}

// NewNoopAuditRepository discards every entry.
func NewNoopAuditRepository() AuditRepository {
	return noopAuditRepository{}
}

func (noopAuditRepository) Record(ctx context.Context, entry *domain.AuditEntry) error {
	return nil
}

func (noopAuditRepository) Recent(ctx context.Context, limit int) ([]*domain.AuditEntry, error) {
	return []*domain.AuditEntry{}, nil
}

package repository

import (
	"context"
	"time"

	"frutapack/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AnalisisRepository interface {
	// Upsert creates the row for a lot code or overwrites its state.
	Upsert(ctx context.Context, a *model.AnalisisLote) error
	FindByCodigo(ctx context.Context, codigo string) (*model.AnalisisLote, error)
	Update(ctx context.Context, a *model.AnalisisLote) error
	// ListPendingRetries returns failed analyses whose next_retry_at is due.
	ListPendingRetries(ctx context.Context, now time.Time, limit int) ([]model.AnalisisLote, error)
}

type analisisRepo struct{ db *gorm.DB }

func NewAnalisisRepository(db *gorm.DB) AnalisisRepository {
	return &analisisRepo{db: db}
}

func (r *analisisRepo) Upsert(ctx context.Context, a *model.AnalisisLote) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "lote_codigo"}},
		DoUpdates: clause.AssignmentColumns([]string{"productor", "estado", "texto", "retry_count", "next_retry_at", "last_error", "updated_at"}),
	}).Create(a).Error
}

func (r *analisisRepo) FindByCodigo(ctx context.Context, codigo string) (*model.AnalisisLote, error) {
	var a model.AnalisisLote
	err := r.db.WithContext(ctx).Where("lote_codigo = ?", codigo).First(&a).Error
	return &a, err
}

func (r *analisisRepo) Update(ctx context.Context, a *model.AnalisisLote) error {
	return r.db.WithContext(ctx).Save(a).Error
}

func (r *analisisRepo) ListPendingRetries(ctx context.Context, now time.Time, limit int) ([]model.AnalisisLote, error) {
	var out []model.AnalisisLote
	err := r.db.WithContext(ctx).
		Where("estado = ? AND next_retry_at IS NOT NULL AND next_retry_at <= ?", model.EstadoAnalisisError, now).
		Order("next_retry_at ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

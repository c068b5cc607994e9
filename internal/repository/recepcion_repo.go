package repository

import (
	"context"

	"frutapack/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RecepcionRepository is the inventory side of the plant: receptions and
// their pallet breakdown. Intake itself happens elsewhere; this service only
// edits pallets and flags them used.
type RecepcionRepository interface {
	Create(ctx context.Context, r *model.Recepcion) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Recepcion, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Recepcion, error)
	ListDisponibles(ctx context.Context) ([]model.Recepcion, error)
	ListAll(ctx context.Context) ([]model.Recepcion, error)

	// Used inside transactions: callers must pass the tx instance
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Recepcion, error)
	UpdatePalletTx(tx *gorm.DB, p *model.DetallePallet) error
	CreatePalletTx(tx *gorm.DB, p *model.DetallePallet) error
	MarcarUsadosTx(tx *gorm.DB, recepcionID uuid.UUID, folios []string) error
	LiberarTx(tx *gorm.DB, recepcionID uuid.UUID, folios []string) error
	UpdateEstadoTx(tx *gorm.DB, id uuid.UUID, estado string) error

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type recepcionRepo struct{ db *gorm.DB }

func NewRecepcionRepository(db *gorm.DB) RecepcionRepository { return &recepcionRepo{db: db} }

func (r *recepcionRepo) DB() *gorm.DB { return r.db }

func preloadPallets(db *gorm.DB) *gorm.DB {
	return db.Order("detalle_pallets.posicion ASC, detalle_pallets.folio ASC")
}

func (r *recepcionRepo) Create(ctx context.Context, rec *model.Recepcion) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *recepcionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Recepcion, error) {
	return r.FindByIDTx(r.db.WithContext(ctx), id)
}

func (r *recepcionRepo) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Recepcion, error) {
	var rec model.Recepcion
	err := tx.Preload("Pallets", preloadPallets).First(&rec, "id = ?", id).Error
	return &rec, err
}

func (r *recepcionRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Recepcion, error) {
	var recs []model.Recepcion
	if len(ids) == 0 {
		return recs, nil
	}
	err := r.db.WithContext(ctx).
		Preload("Pallets", preloadPallets).
		Where("id IN ?", ids).
		Order("fecha ASC").
		Find(&recs).Error
	return recs, err
}

// ListDisponibles returns receptions still holding unconsumed stock.
func (r *recepcionRepo) ListDisponibles(ctx context.Context) ([]model.Recepcion, error) {
	var recs []model.Recepcion
	err := r.db.WithContext(ctx).
		Preload("Pallets", preloadPallets).
		Where("estado = ?", model.EstadoRecepcionDisponible).
		Order("fecha ASC, numero_guia ASC").
		Find(&recs).Error
	return recs, err
}

func (r *recepcionRepo) ListAll(ctx context.Context) ([]model.Recepcion, error) {
	var recs []model.Recepcion
	err := r.db.WithContext(ctx).
		Preload("Pallets", preloadPallets).
		Order("fecha ASC").
		Find(&recs).Error
	return recs, err
}

// UpdatePalletTx writes the editable fields of a pallet in place.
func (r *recepcionRepo) UpdatePalletTx(tx *gorm.DB, p *model.DetallePallet) error {
	return tx.Model(&model.DetallePallet{}).
		Where("id = ?", p.ID).
		Updates(map[string]interface{}{
			"peso_bruto":    p.PesoBruto,
			"bandejas":      p.Bandejas,
			"clasificacion": p.Clasificacion,
			"folio_padre":   p.FolioPadre,
		}).Error
}

func (r *recepcionRepo) CreatePalletTx(tx *gorm.DB, p *model.DetallePallet) error {
	return tx.Create(p).Error
}

func (r *recepcionRepo) MarcarUsadosTx(tx *gorm.DB, recepcionID uuid.UUID, folios []string) error {
	if len(folios) == 0 {
		return nil
	}
	return tx.Model(&model.DetallePallet{}).
		Where("recepcion_id = ? AND folio IN ?", recepcionID, folios).
		Update("usado", true).Error
}

// LiberarTx returns pallets a lot no longer consumes to stock.
func (r *recepcionRepo) LiberarTx(tx *gorm.DB, recepcionID uuid.UUID, folios []string) error {
	if len(folios) == 0 {
		return nil
	}
	return tx.Model(&model.DetallePallet{}).
		Where("recepcion_id = ? AND folio IN ?", recepcionID, folios).
		Update("usado", false).Error
}

func (r *recepcionRepo) UpdateEstadoTx(tx *gorm.DB, id uuid.UUID, estado string) error {
	return tx.Model(&model.Recepcion{}).Where("id = ?", id).Update("estado", estado).Error
}

package repository

import (
	"context"
	"time"

	"frutapack/internal/model"

	"gorm.io/gorm"
)

// LoteFilter defines filters for listing production lots.
type LoteFilter struct {
	Productor string
	Desde     *time.Time
	Hasta     *time.Time
	Page      int
	Limit     int
}

// LoteRepository persists committed lots. Updates replace the lot wholesale.
type LoteRepository interface {
	FindByCodigo(ctx context.Context, codigo string) (*model.LoteProduccion, error)
	FindByCodigoTx(tx *gorm.DB, codigo string) (*model.LoteProduccion, error)
	List(ctx context.Context, filter LoteFilter) ([]model.LoteProduccion, int64, error)
	// ListAll returns every lot with its lines; folio sequencing reads the full history.
	ListAll(ctx context.Context) ([]model.LoteProduccion, error)

	CreateTx(tx *gorm.DB, l *model.LoteProduccion) error
	ReplaceTx(tx *gorm.DB, l *model.LoteProduccion) error

	DB() *gorm.DB
}

type loteRepo struct{ db *gorm.DB }

func NewLoteRepository(db *gorm.DB) LoteRepository { return &loteRepo{db: db} }

func (r *loteRepo) DB() *gorm.DB { return r.db }

func preloadDetalles(db *gorm.DB) *gorm.DB {
	return db.Order("detalles_produccion.posicion ASC")
}

func (r *loteRepo) FindByCodigo(ctx context.Context, codigo string) (*model.LoteProduccion, error) {
	return r.FindByCodigoTx(r.db.WithContext(ctx), codigo)
}

func (r *loteRepo) FindByCodigoTx(tx *gorm.DB, codigo string) (*model.LoteProduccion, error) {
	var l model.LoteProduccion
	err := tx.
		Preload("Detalles", preloadDetalles).
		Where("codigo = ?", codigo).
		First(&l).Error
	return &l, err
}

func (r *loteRepo) List(ctx context.Context, filter LoteFilter) ([]model.LoteProduccion, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.LoteProduccion{})
	if filter.Productor != "" {
		q = q.Where("productor ILIKE ?", "%"+filter.Productor+"%")
	}
	if filter.Desde != nil {
		q = q.Where("fecha >= ?", *filter.Desde)
	}
	if filter.Hasta != nil {
		q = q.Where("fecha < ?", *filter.Hasta)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	limit := filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	var lotes []model.LoteProduccion
	err := q.Preload("Detalles", preloadDetalles).
		Order("fecha DESC, codigo DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&lotes).Error
	return lotes, total, err
}

func (r *loteRepo) ListAll(ctx context.Context) ([]model.LoteProduccion, error) {
	var lotes []model.LoteProduccion
	err := r.db.WithContext(ctx).
		Preload("Detalles", preloadDetalles).
		Order("fecha ASC, codigo ASC").
		Find(&lotes).Error
	return lotes, err
}

func (r *loteRepo) CreateTx(tx *gorm.DB, l *model.LoteProduccion) error {
	return tx.Create(l).Error
}

// ReplaceTx overwrites the lot row and swaps its lines for l.Detalles.
func (r *loteRepo) ReplaceTx(tx *gorm.DB, l *model.LoteProduccion) error {
	if err := tx.Model(l).Select("*").Omit("ID", "CreatedAt", "Detalles").Updates(l).Error; err != nil {
		return err
	}
	if err := tx.Where("lote_id = ?", l.ID).Delete(&model.DetalleProduccion{}).Error; err != nil {
		return err
	}
	if len(l.Detalles) == 0 {
		return nil
	}
	for i := range l.Detalles {
		l.Detalles[i].LoteID = l.ID
	}
	return tx.Create(&l.Detalles).Error
}

package repository

import (
	"context"

	"frutapack/internal/model"

	"gorm.io/gorm"
)

type DespachoRepository interface {
	Create(ctx context.Context, d *model.Despacho) error
	ListAll(ctx context.Context) ([]model.Despacho, error)
}

type despachoRepo struct{ db *gorm.DB }

func NewDespachoRepository(db *gorm.DB) DespachoRepository {
	return &despachoRepo{db: db}
}

func (r *despachoRepo) Create(ctx context.Context, d *model.Despacho) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *despachoRepo) ListAll(ctx context.Context) ([]model.Despacho, error) {
	var ds []model.Despacho
	err := r.db.WithContext(ctx).Order("fecha ASC").Find(&ds).Error
	return ds, err
}

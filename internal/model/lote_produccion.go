package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// LoteProduccion is one committed production run. It is replaced wholesale
// on update and never deleted.
// KilosIQF / KilosMerma / KilosDesecho hold manual entry + direct-classified input.
type LoteProduccion struct {
	ID                    uuid.UUID                                     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Codigo                string                                        `gorm:"type:varchar(30);uniqueIndex;not null"` // PROC-YYYYMMDD-NNN
	CentroTrabajo         string                                        `gorm:"not null"`
	RecepcionIDs          datatypes.JSONSlice[string]                   `gorm:"type:jsonb;not null"`
	FoliosUsados          datatypes.JSONSlice[string]                   `gorm:"type:jsonb;not null"`
	PalletsUsados         datatypes.JSONSlice[string]                   `gorm:"type:jsonb;not null;default:'[]'"` // recepcionID/folio
	PesoEntradaTotal      decimal.Decimal                               `gorm:"type:decimal(12,2);not null"`
	Fecha                 time.Time                                     `gorm:"index;not null"`
	Productor             string                                        `gorm:"index"`
	Variedad              string
	KilosIQF              decimal.Decimal                               `gorm:"type:decimal(12,2);not null;default:0;column:kilos_iqf"`
	KilosMerma            decimal.Decimal                               `gorm:"type:decimal(12,2);not null;default:0"`
	KilosDesecho          decimal.Decimal                               `gorm:"type:decimal(12,2);not null;default:0"`
	DescartesAdicionales  datatypes.JSONType[map[string]decimal.Decimal] `gorm:"type:jsonb"`
	PorcentajeRendimiento decimal.Decimal                               `gorm:"type:decimal(6,2);not null;default:0"`
	CreatedAt             time.Time
	UpdatedAt             time.Time

	Detalles []DetalleProduccion `gorm:"foreignKey:LoteID"`
}

func (LoteProduccion) TableName() string { return "lotes_produccion" }

// KilosProducidos sums the output lines.
func (l *LoteProduccion) KilosProducidos() decimal.Decimal {
	total := decimal.Zero
	for _, d := range l.Detalles {
		total = total.Add(d.KilosTotales)
	}
	return total
}

// TotalDescartesAdicionales sums the free-text discard entries.
func (l *LoteProduccion) TotalDescartesAdicionales() decimal.Decimal {
	total := decimal.Zero
	for _, kg := range l.DescartesAdicionales.Data() {
		total = total.Add(kg)
	}
	return total
}

// DetalleProduccion is one packed output line of a lot.
// Folio identifies the finished pallet; several lines may share it.
type DetalleProduccion struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	LoteID          uuid.UUID       `gorm:"type:uuid;index;not null"`
	Posicion        int             `gorm:"not null;default:0"`
	Formato         string          `gorm:"not null"`
	PesoUnitario    decimal.Decimal `gorm:"type:decimal(10,3);not null"`
	Unidades        int             `gorm:"not null;default:0"`
	Pallets         int             `gorm:"not null;default:0"`
	PalletCompleto  bool            `gorm:"not null;default:false"`
	Folio           string          `gorm:"type:varchar(40);index"`
	KilosTotales    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	LineaProduccion string
	CreatedAt       time.Time
}

func (DetalleProduccion) TableName() string { return "detalles_produccion" }

// RecalcularTotal keeps KilosTotales = Unidades × PesoUnitario.
func (d *DetalleProduccion) RecalcularTotal() {
	d.KilosTotales = d.PesoUnitario.Mul(decimal.NewFromInt(int64(d.Unidades)))
}

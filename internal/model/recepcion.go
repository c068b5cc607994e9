package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Recepcion is one raw-fruit delivery.
// Estado: "disponible" | "consumida"
// When Pallets is non-empty the per-pallet weights are authoritative and
// PesoBruto/PesoNeto are informational only.
type Recepcion struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Productor     string    `gorm:"index;not null"`
	Variedad      string    `gorm:"not null"`
	NumeroGuia    string    `gorm:"index"`
	NumeroLote    string
	Fecha         time.Time       `gorm:"index;not null"`
	TotalBandejas int             `gorm:"not null;default:0"`
	TotalPallets  int             `gorm:"not null;default:0"`
	PesoBruto     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PesoNeto      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Estado        string          `gorm:"type:varchar(20);not null;default:'disponible'"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Pallets []DetallePallet `gorm:"foreignKey:RecepcionID"`
}

func (Recepcion) TableName() string { return "recepciones" }

const (
	EstadoRecepcionDisponible = "disponible"
	EstadoRecepcionConsumida  = "consumida"
)

// DetallePallet is one physical pallet within a Recepcion.
// Net weight is never stored; it is derived from PesoBruto and Bandejas.
type DetallePallet struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RecepcionID   uuid.UUID       `gorm:"type:uuid;index;not null"`
	Posicion      int             `gorm:"not null;default:0"`
	Folio         string          `gorm:"type:varchar(40);index;not null"`
	PesoBruto     decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Bandejas      int             `gorm:"not null;default:0"`
	Usado         bool            `gorm:"not null;default:false"`
	Clasificacion Clasificacion   `gorm:"type:varchar(20);not null;default:'PROCESO'"`
	// FolioPadre is set on both halves of a split and names the original folio.
	FolioPadre *string `gorm:"type:varchar(40)"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (DetallePallet) TableName() string { return "detalle_pallets" }

// EsParteDivision reports whether the pallet came out of a split.
func (p DetallePallet) EsParteDivision() bool { return p.FolioPadre != nil }

package model

import (
	"time"

	"github.com/google/uuid"
)

// AnalisisLote tracks the narrative commentary requested for a lot.
// Estado: "pendiente" | "listo" | "error" | "no_disponible"
type AnalisisLote struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	LoteCodigo string    `gorm:"type:varchar(30);uniqueIndex;not null"`
	Productor  string
	Estado     string  `gorm:"type:varchar(20);not null;default:'pendiente'"`
	Texto      *string `gorm:"type:text"`
	// Retry fields: used by retry_cron to re-attempt failed narrative calls
	RetryCount  int        `gorm:"not null;default:0"`
	NextRetryAt *time.Time `gorm:"column:next_retry_at"`
	LastError   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (AnalisisLote) TableName() string { return "analisis_lotes" }

const (
	EstadoAnalisisPendiente    = "pendiente"
	EstadoAnalisisListo        = "listo"
	EstadoAnalisisError        = "error"
	EstadoAnalisisNoDisponible = "no_disponible"
)

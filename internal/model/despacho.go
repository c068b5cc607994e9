package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Despacho is an outbound shipment. A finished folio listed in
// FoliosConsumidos is no longer open for appending boxes.
type Despacho struct {
	ID               uuid.UUID                   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Numero           string                      `gorm:"type:varchar(30);uniqueIndex;not null"`
	Cliente          string                      `gorm:"not null"`
	Fecha            time.Time                   `gorm:"index;not null"`
	FoliosConsumidos datatypes.JSONSlice[string] `gorm:"type:jsonb;not null"`
	CreatedAt        time.Time
}

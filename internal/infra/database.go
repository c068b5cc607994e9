package infra

import (
	"fmt"

	"frutapack/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate
// for every model, then applies the idempotent SQL patches AutoMigrate cannot
// express (partial indexes).
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations creates / updates all tables and applies schema patches.
// Integration tests call it directly against their container.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Recepcion{},
		&model.DetallePallet{},
		&model.LoteProduccion{},
		&model.DetalleProduccion{},
		&model.Despacho{},
		&model.AnalisisLote{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if err := applySchemaPatches(db); err != nil {
		return fmt.Errorf("schema patches: %w", err)
	}
	return nil
}

// applySchemaPatches runs idempotent DDL statements. Each statement uses
// IF NOT EXISTS semantics so re-running on an already-patched DB is safe.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		// partial index for the analysis retry cron query
		`CREATE INDEX IF NOT EXISTS idx_analisis_lotes_pending_retry
		    ON analisis_lotes (next_retry_at)
		    WHERE estado = 'error' AND next_retry_at IS NOT NULL`,
		// stock query only ever reads pallets not yet consumed
		`CREATE INDEX IF NOT EXISTS idx_detalle_pallets_disponibles
		    ON detalle_pallets (recepcion_id, posicion)
		    WHERE usado = false`,
		// open-folio lookups scan finished lines that are not full
		`CREATE INDEX IF NOT EXISTS idx_detalles_produccion_folios_abiertos
		    ON detalles_produccion (folio)
		    WHERE pallet_completo = false`,
	}

	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql[:min(len(sql), 60)], err)
		}
	}
	return nil
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, 6, cfg.FolioAncho)
	assert.Equal(t, "PLANTA", cfg.CentroTrabajo)
	bandeja, pallet := cfg.Tara()
	assert.Equal(t, "0.32", bandeja.String())
	assert.Equal(t, "20", pallet.String())
	assert.Equal(t, "0.5", cfg.Tolerancia().String())
	assert.Equal(t, 4*time.Hour, cfg.SesionTTL())
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("TARA_PALLET", "18.5")
	t.Setenv("FOLIO_INICIO", "5000")
	t.Setenv("APP_ENV", "production")

	cfg, err := Load()
	require.NoError(t, err)

	_, pallet := cfg.Tara()
	assert.Equal(t, "18.5", pallet.String())
	assert.Equal(t, 5000, cfg.FolioInicio)
	assert.True(t, cfg.IsProduction())
}

func TestTara_ValorInvalido(t *testing.T) {
	cfg := &Config{TaraBandeja: "abc", TaraPallet: "-3"}

	bandeja, pallet := cfg.Tara()
	assert.Equal(t, "0.32", bandeja.String())
	assert.Equal(t, "20", pallet.String())
}

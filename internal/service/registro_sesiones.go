package service

import (
	"sync"
	"time"

	"frutapack/internal/conciliacion"
	"frutapack/internal/model"

	"github.com/google/uuid"
)

// sesionActiva is one composition addressable over HTTP. mu serializes every
// operation on the session; the engine itself is single-owner.
type sesionActiva struct {
	mu        sync.Mutex
	sesion    *conciliacion.Sesion
	original  *model.LoteProduccion // set in update mode
	ultimoUso time.Time
}

// registroSesiones keeps live compositions and evicts the idle ones.
type registroSesiones struct {
	mu       sync.Mutex
	ttl      time.Duration
	ahora    func() time.Time
	sesiones map[uuid.UUID]*sesionActiva
}

func newRegistroSesiones(ttl time.Duration) *registroSesiones {
	return &registroSesiones{
		ttl:      ttl,
		ahora:    time.Now,
		sesiones: make(map[uuid.UUID]*sesionActiva),
	}
}

func (r *registroSesiones) crear(s *conciliacion.Sesion, original *model.LoteProduccion) uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.purgarLocked()
	id := uuid.New()
	r.sesiones[id] = &sesionActiva{sesion: s, original: original, ultimoUso: r.ahora()}
	return id
}

func (r *registroSesiones) obtener(id uuid.UUID) (*sesionActiva, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.purgarLocked()
	e, ok := r.sesiones[id]
	if !ok {
		return nil, ErrComposicionNoEncontrada
	}
	e.ultimoUso = r.ahora()
	return e, nil
}

func (r *registroSesiones) quitar(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sesiones, id)
}

// enEdicion reports whether some live session is updating the given lot.
func (r *registroSesiones) enEdicion(codigo string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.purgarLocked()
	for _, e := range r.sesiones {
		if e.original != nil && e.original.Codigo == codigo {
			return true
		}
	}
	return false
}

func (r *registroSesiones) purgarLocked() {
	if r.ttl <= 0 {
		return
	}
	limite := r.ahora().Add(-r.ttl)
	for id, e := range r.sesiones {
		if e.ultimoUso.Before(limite) {
			delete(r.sesiones, id)
		}
	}
}

package infra

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ── Circuit Breaker ───────────────────────────────────────────────────────────
// Guards the yield-analysis backend. The analysis worker and its retry cron
// check it before calling out; composition and commit never depend on it.

// CBState is the breaker position reported by /health.
type CBState int

const (
	CBClosed CBState = iota
	CBOpen
	CBHalfOpen // a single trial call decides
)

func (s CBState) String() string {
	switch s {
	case CBClosed:
		return "closed"
	case CBOpen:
		return "open"
	case CBHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen means the analysis call was skipped; the job stays queued
// for the retry cron.
var ErrCircuitOpen = errors.New("analisis: circuit breaker is open")

type CircuitBreakerConfig struct {
	Nombre           string
	FailureThreshold int // consecutive failed analyses before opening
	SuccessThreshold int // successful trial calls needed to close again
	OpenTimeout      time.Duration
}

// DefaultCBConfig matches the retry cron cadence: an open breaker is
// retried on the next cron tick after one minute.
func DefaultCBConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Nombre:           "analisis",
		FailureThreshold: 5,
		SuccessThreshold: 2,
		OpenTimeout:      time.Minute,
	}
}

type CircuitBreaker struct {
	cfg   CircuitBreakerConfig
	ahora func() time.Time

	mu        sync.Mutex
	state     CBState
	fallos    int
	exitos    int
	ultimoErr time.Time
}

func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	def := DefaultCBConfig()
	if cfg.Nombre == "" {
		cfg.Nombre = def.Nombre
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = def.SuccessThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}
	return &CircuitBreaker{cfg: cfg, ahora: time.Now}
}

// State moves an expired open breaker to half-open before reporting.
func (cb *CircuitBreaker) State() CBState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.estadoActual()
}

func (cb *CircuitBreaker) estadoActual() CBState {
	if cb.state == CBOpen && cb.ahora().Sub(cb.ultimoErr) >= cb.cfg.OpenTimeout {
		cb.pasarA(CBHalfOpen)
	}
	return cb.state
}

// Execute runs fn unless the breaker is open.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if cb.State() == CBOpen {
		return ErrCircuitOpen
	}

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		cb.registrarFallo()
		return err
	}
	cb.registrarExito()
	return nil
}

// Estado is what /health shows for the analysis backend.
type Estado struct {
	State       string     `json:"state"`
	Failures    int        `json:"failures"`
	UltimoFallo *time.Time `json:"ultimo_fallo,omitempty"`
}

func (cb *CircuitBreaker) Snapshot() Estado {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	e := Estado{State: cb.estadoActual().String(), Failures: cb.fallos}
	if !cb.ultimoErr.IsZero() {
		t := cb.ultimoErr
		e.UltimoFallo = &t
	}
	return e
}

// registrarFallo and registrarExito run under cb.mu.
func (cb *CircuitBreaker) registrarFallo() {
	cb.fallos++
	cb.ultimoErr = cb.ahora()

	switch cb.state {
	case CBClosed:
		if cb.fallos >= cb.cfg.FailureThreshold {
			cb.pasarA(CBOpen)
		}
	case CBHalfOpen:
		cb.pasarA(CBOpen)
		cb.fallos = 0
	}
}

func (cb *CircuitBreaker) registrarExito() {
	switch cb.state {
	case CBClosed:
		cb.fallos = 0
	case CBHalfOpen:
		cb.exitos++
		if cb.exitos >= cb.cfg.SuccessThreshold {
			cb.pasarA(CBClosed)
			cb.fallos = 0
		}
	}
}

func (cb *CircuitBreaker) pasarA(nuevo CBState) {
	if cb.state == nuevo {
		return
	}
	log.Warn().
		Str("breaker", cb.cfg.Nombre).
		Str("de", cb.state.String()).
		Str("a", nuevo.String()).
		Int("fallos", cb.fallos).
		Msg("circuit breaker: cambio de estado")
	cb.state = nuevo
	cb.exitos = 0
}

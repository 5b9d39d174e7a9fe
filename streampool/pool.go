package streampool

import (
	"errors"
	"net/http"
	"sync"

	"github.com/google/uuid"
)

var ErrNoFreeSlot = errors.New("stream pool exhausted")

// Slot is one reusable stream handle. A slot is claimed by at most one
// in-flight transaction at a time; only the pool's lock guards the claim
// itself, everything else in the slot is touched only by the claiming
// goroutine.
type Slot struct {
	id          int
	correlation string

	inUse bool
	// open reports whether the slot's transport is believed to hold a
	// live persistent connection, so acquire can prefer it.
	open bool

	transport *http.Transport
	configGen uint64

	resp *http.Response
	// connClose records that the server answered with Connection: close;
	// whoever finishes with the stream must close it instead of reusing.
	connClose bool
}

func (s *Slot) ID() int { return s.id }

// Correlation is a per-slot unique value attached to log lines so
// transactions can be matched to connections in diagnostics.
func (s *Slot) Correlation() string { return s.correlation }

func (s *Slot) Transport() *http.Transport { return s.transport }

// SetTransport installs a transport built against the configuration
// generation gen, closing any previous transport's connections.
func (s *Slot) SetTransport(t *http.Transport, gen uint64) {
	if s.transport != nil {
		s.transport.CloseIdleConnections()
	}
	s.transport = t
	s.configGen = gen
	s.open = false
}

func (s *Slot) ConfigGen() uint64 { return s.configGen }

// InstallStream replaces the slot's current response stream. Any previous
// stream is closed first.
func (s *Slot) InstallStream(resp *http.Response) {
	if s.resp != nil {
		_ = s.resp.Body.Close()
	}
	s.resp = resp
	s.open = true
}

func (s *Slot) Stream() *http.Response { return s.resp }

func (s *Slot) SetConnClose(v bool) { s.connClose = v }
func (s *Slot) ConnClose() bool     { return s.connClose }

// CloseStream closes the in-flight response body, returning the
// connection to the transport for reuse.
func (s *Slot) CloseStream() {
	if s.resp != nil {
		_ = s.resp.Body.Close()
		s.resp = nil
	}
}

// CloseConnection drops the stream and the underlying connection. Used
// after a server-requested close or a stream error.
func (s *Slot) CloseConnection() {
	s.CloseStream()
	if s.transport != nil {
		s.transport.CloseIdleConnections()
	}
	s.open = false
}

// Pool is the fixed-capacity slot table: one slot per request worker
// plus one for the pulse thread. All claim state is guarded by one mutex.
type Pool struct {
	mu    sync.Mutex
	slots []*Slot
}

// New creates a pool with workers+1 slots, all without streams.
func New(workers int) *Pool {
	p := &Pool{slots: make([]*Slot, workers+1)}
	for i := range p.slots {
		p.slots[i] = &Slot{id: i, correlation: uuid.NewString()}
	}
	return p
}

func (p *Pool) Capacity() int { return len(p.slots) }

// Acquire claims a free slot, preferring one whose connection is already
// open so transactions reuse connections whenever possible. Fails with
// ErrNoFreeSlot when every slot is claimed; the pool is dimensioned to
// the caller's concurrency so that is a caller bug, not a retry case.
func (p *Pool) Acquire() (*Slot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var fallback *Slot
	for _, s := range p.slots {
		if s.inUse {
			continue
		}
		if s.open {
			s.inUse = true
			return s, nil
		}
		if fallback == nil {
			fallback = s
		}
	}
	if fallback == nil {
		return nil, ErrNoFreeSlot
	}
	fallback.inUse = true
	return fallback, nil
}

// Release returns the slot to the pool. The stream is left as-is: a
// persistent connection survives for the next transaction, and a slot
// whose stream was closed comes back empty.
func (p *Pool) Release(s *Slot) {
	p.mu.Lock()
	s.inUse = false
	p.mu.Unlock()
}

// Shutdown closes every connection. Only called at process teardown.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.slots {
		s.CloseStream()
		if s.transport != nil {
			s.transport.CloseIdleConnections()
			s.transport = nil
		}
		s.open = false
	}
}

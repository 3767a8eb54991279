package embed

import (
	"context"
	"sync/atomic"
)

// Gate tracks whether vector search may use the embedder. The flag starts
// at the embedder's reported availability, turns on after every successful
// Embed and off after every failure. Failures caused by the caller's
// context leave it unchanged. A nil embedder keeps the gate closed.
type Gate struct {
	embedder Embedder
	open     atomic.Bool
}

// NewGate creates a gate for e, which may be nil.
func NewGate(ctx context.Context, e Embedder) *Gate {
	g := &Gate{embedder: e}
	if e != nil {
		g.open.Store(e.Available(ctx))
	}
	return g
}

// Available reports whether vector search should be attempted.
func (g *Gate) Available() bool {
	return g != nil && g.embedder != nil && g.open.Load()
}

// Embed calls the embedder and updates the gate with the outcome.
func (g *Gate) Embed(ctx context.Context, text string) ([]float32, error) {
	if g == nil || g.embedder == nil {
		return nil, ErrClosed
	}
	vec, err := g.embedder.Embed(ctx, text)
	if err != nil && ctx.Err() != nil {
		return nil, err
	}
	g.open.Store(err == nil)
	return vec, err
}

// Prober is implemented by embedders that can check their backing service.
type Prober interface {
	Probe(ctx context.Context) error
}

// Refresh probes the embedder when it supports probing and re-reads its
// availability. Health checks use it to reopen a gate after the service
// recovers.
func (g *Gate) Refresh(ctx context.Context) bool {
	if g == nil || g.embedder == nil {
		return false
	}
	if p, ok := unwrap(g.embedder).(Prober); ok {
		_ = p.Probe(ctx)
	}
	ok := g.embedder.Available(ctx)
	g.open.Store(ok)
	return ok
}

// Embedder returns the gated embedder, possibly nil.
func (g *Gate) Embedder() Embedder {
	if g == nil {
		return nil
	}
	return g.embedder
}

func unwrap(e Embedder) Embedder {
	for {
		w, ok := e.(interface{ Inner() Embedder })
		if !ok {
			return e
		}
		e = w.Inner()
	}
}

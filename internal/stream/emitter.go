// Package stream implements the two response-emission modes: synthetic
// chunking of a precomputed answer, and relay of provider partial
// output. The two are deliberately separate — synthetic emission is a
// cosmetic simulation of streaming, relay is the real thing — and the
// caller chooses one explicitly.
package stream

import (
	"context"
	"io"
	"time"
)

// Config controls synthetic emission.
type Config struct {
	// ChunkSize is the number of runes per chunk. Default 1.
	ChunkSize int

	// Delay is the pause between chunks. Zero means no pause.
	Delay time.Duration
}

// DefaultConfig is per-character pacing at a readable typing speed.
func DefaultConfig() Config {
	return Config{ChunkSize: 1, Delay: 15 * time.Millisecond}
}

// Synthetic writes text to w in fixed-size rune chunks with a fixed
// inter-chunk delay, calling flush after each chunk so the transport
// sees them immediately. It stops early when ctx is canceled (client
// disconnect) and returns the context's error in that case.
func Synthetic(ctx context.Context, w io.Writer, flush func(), text string, cfg Config) error {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1
	}

	runes := []rune(text)
	for start := 0; start < len(runes); start += cfg.ChunkSize {
		end := start + cfg.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}

		if _, err := io.WriteString(w, string(runes[start:end])); err != nil {
			return err
		}
		if flush != nil {
			flush()
		}

		if cfg.Delay > 0 && end < len(runes) {
			timer := time.NewTimer(cfg.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	return nil
}

// Relay forwards provider partial-output tokens to a writer as they
// arrive. It tracks whether anything was actually relayed so callers
// can fall back to synthetic emission when the provider produced no
// partial events.
type Relay struct {
	w     io.Writer
	flush func()
	n     int
	err   error
}

// NewRelay creates a relay targeting w. flush may be nil.
func NewRelay(w io.Writer, flush func()) *Relay {
	return &Relay{w: w, flush: flush}
}

// Token writes one partial-output token through to the transport.
// Write errors (client disconnect) are remembered and later tokens
// dropped; the provider call is aborted by its context, not by us.
func (r *Relay) Token(token string) {
	if r.err != nil {
		return
	}
	if _, err := io.WriteString(r.w, token); err != nil {
		r.err = err
		return
	}
	r.n++
	if r.flush != nil {
		r.flush()
	}
}

// Streamed reports whether at least one token reached the transport.
func (r *Relay) Streamed() bool { return r.n > 0 }

// Err returns the first write error encountered, if any.
func (r *Relay) Err() error { return r.err }

// Package ident produces diagram identifier suffixes for one scan pass.
// A Generator is constructed fresh per pass so deterministic sequences
// restart at zero for every run.
package ident

import (
	"strconv"

	"github.com/google/uuid"

	"github.com/rendis/diagrun/pkg/schema"
)

// Generator yields identifier suffixes, either seed-prefixed sequential
// integers (deterministic mode) or random tokens. Not safe for concurrent
// use; each scan pass owns its own instance.
type Generator struct {
	deterministic bool
	seed          string
	next          int
}

// New creates a Generator. In deterministic mode every call to Next returns
// seed + counter, with the counter starting at 0.
func New(deterministic bool, seed string) *Generator {
	return &Generator{deterministic: deterministic, seed: seed}
}

// FromConfig builds a Generator from the deterministic-ID settings of cfg.
func FromConfig(cfg schema.SiteConfig) *Generator {
	return New(cfg.DeterministicIDs, cfg.DeterministicIDSeed)
}

// Next returns the next identifier suffix. Deterministic generators never
// return the same value twice; random generators are unique with
// overwhelming probability.
func (g *Generator) Next() string {
	if g.deterministic {
		id := g.seed + strconv.Itoa(g.next)
		g.next++
		return id
	}
	return uuid.NewString()
}

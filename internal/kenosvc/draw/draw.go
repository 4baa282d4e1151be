// Package draw picks the winning numbers of a keno game.
package draw

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

var ErrDrawExceedsUniverse = errors.New("draw size exceeds number universe")

// Source is the randomness a Generator consumes. *rand.Rand satisfies it.
type Source interface {
	IntN(n int) int
}

type Generator struct {
	src Source
}

// NewGenerator returns a generator backed by a ChaCha8 stream seeded from
// the operating system.
func NewGenerator() *Generator {
	var seed [32]byte
	for i := range seed {
		seed[i] = byte(rand.Uint32())
	}
	return &Generator{src: rand.New(rand.NewChaCha8(seed))}
}

func NewGeneratorWithSource(src Source) *Generator {
	return &Generator{src: src}
}

func Validate(count, universe int) error {
	if count < 0 || universe < 1 {
		return fmt.Errorf("invalid draw %d of %d", count, universe)
	}
	if count > universe {
		return fmt.Errorf("%w: %d > %d", ErrDrawExceedsUniverse, count, universe)
	}
	return nil
}

// Draw returns count distinct numbers from 1..universe in reveal order.
// Only the first count positions are shuffled.
func (g *Generator) Draw(count, universe int) ([]int, error) {
	if err := Validate(count, universe); err != nil {
		return nil, err
	}

	pool := make([]int, universe)
	for i := range pool {
		pool[i] = i + 1
	}

	for i := 0; i < count; i++ {
		j := i + g.src.IntN(universe-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:count:count], nil
}

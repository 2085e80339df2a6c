package domain

import (
	"math/rand/v2"
	"strconv"
	"time"
)

// OrderNumberGenerator builds human-readable order numbers of the form
// prefix + unix millis + random 1000..9999. Numbers generated in the same
// millisecond can collide; the store's unique index is the real guarantee.
type OrderNumberGenerator struct {
	Prefix string
	Now    func() time.Time
	Rand   func(n int) int
}

func NewOrderNumberGenerator(prefix string) *OrderNumberGenerator {
	return &OrderNumberGenerator{Prefix: prefix, Now: time.Now, Rand: rand.IntN}
}

func (g *OrderNumberGenerator) Next() string {
	now, rnd := time.Now, rand.IntN
	if g.Now != nil {
		now = g.Now
	}
	if g.Rand != nil {
		rnd = g.Rand
	}
	suffix := 1000 + rnd(9000)
	return g.Prefix + strconv.FormatInt(now().UnixMilli(), 10) + strconv.Itoa(suffix)
}

package compose

import (
	"math/rand"
	"sync"
	"time"
)

// Rand is a goroutine-safe source for cosmetic choices. Seed it in tests.
type Rand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func NewRand(seed int64) *Rand {
	return &Rand{r: rand.New(rand.NewSource(seed))}
}

func newTimeSeededRand() *Rand {
	return NewRand(time.Now().UnixNano())
}

// Intn returns a value in [0, n). n must be positive.
func (r *Rand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.r.Intn(n)
}

// Perm returns a random permutation of [0, n).
func (r *Rand) Perm(n int) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.r.Perm(n)
}

func pick[T any](r *Rand, options []T) T {
	return options[r.Intn(len(options))]
}

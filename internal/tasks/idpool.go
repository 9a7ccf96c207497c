package tasks

import (
	"sync"

	"github.com/google/uuid"
)

// DefaultPoolSize and DefaultLowWatermark bound the pre-generated ID pool: Submit never blocks
// on ID generation in the common case, and a background refill kicks in once the pool drops
// below the watermark.
const (
	DefaultPoolSize     = 64
	DefaultLowWatermark = 16
)

// idPool hands out pre-generated task IDs and refills itself asynchronously once its buffer
// runs low, so Submit's hot path never pays UUID-generation latency.
type idPool struct {
	mu           sync.Mutex
	ids          chan string
	size         int
	lowWatermark int
	refilling    bool
}

func newIDPool(size, lowWatermark int) *idPool {
	if size <= 0 {
		size = DefaultPoolSize
	}
	if lowWatermark <= 0 || lowWatermark >= size {
		lowWatermark = DefaultLowWatermark
	}
	p := &idPool{ids: make(chan string, size), size: size, lowWatermark: lowWatermark}
	p.fill(size)
	return p
}

func (p *idPool) fill(n int) {
	for i := 0; i < n; i++ {
		select {
		case p.ids <- uuid.New().String():
		default:
			return
		}
	}
}

// Take returns the next pre-generated ID, triggering a background refill once the pool's
// remaining count drops to lowWatermark. If the pool is ever empty (unexpected under normal
// load), Take falls back to generating one synchronously rather than blocking the caller.
func (p *idPool) Take() string {
	var id string
	select {
	case id = <-p.ids:
	default:
		id = uuid.New().String()
	}

	if len(p.ids) <= p.lowWatermark {
		p.maybeRefill()
	}
	return id
}

func (p *idPool) maybeRefill() {
	p.mu.Lock()
	if p.refilling {
		p.mu.Unlock()
		return
	}
	p.refilling = true
	p.mu.Unlock()

	go func() {
		defer func() {
			p.mu.Lock()
			p.refilling = false
			p.mu.Unlock()
		}()
		p.fill(p.size - len(p.ids))
	}()
}

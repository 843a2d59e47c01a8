package spritesheet

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Params are the sheet parameters applied by a Recomposer.
type Params struct {
	Columns int
	Scale   float64
}

// Recomposer applies a stream of parameter changes to a Session, such as
// those produced while dragging a slider. Only the most recent change is
// kept while waiting; anything older is dropped rather than queued.
type Recomposer struct {
	s       *Session
	limiter *rate.Limiter
	wake    chan struct{}

	mu         sync.Mutex
	pending    *Params
	superseded int
}

// NewRecomposer returns a Recomposer that rebuilds the sheet of s at most
// limit times per second with the given burst.
func NewRecomposer(s *Session, limit rate.Limit, burst int) *Recomposer {
	return &Recomposer{
		s:       s,
		limiter: rate.NewLimiter(limit, burst),
		wake:    make(chan struct{}, 1),
	}
}

// Submit records p as the parameters to apply next, replacing any that
// haven't been applied yet. It never blocks.
func (r *Recomposer) Submit(p Params) {
	r.mu.Lock()
	if r.pending != nil {
		r.superseded++
	}
	r.pending = &p
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Superseded returns how many submitted changes were dropped in favour of a
// later one.
func (r *Recomposer) Superseded() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.superseded
}

func (r *Recomposer) next() (Params, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pending == nil {
		return Params{}, false
	}
	p := *r.pending
	r.pending = nil
	return p, true
}

// Run applies submitted parameters until ctx is done. Invalid parameters are
// logged and skipped.
func (r *Recomposer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.wake:
		}

		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}

		p, ok := r.next()
		if !ok {
			continue
		}
		if err := r.s.Configure(p.Columns, p.Scale); err != nil {
			r.s.logger.Printf("Ignoring %+v: %v\n", p, err)
		}
	}
}

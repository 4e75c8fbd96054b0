// Package publishing hands finished snapshots to consumers.
package publishing

import (
	"errors"
	"sync"
	"sync/atomic"

	"SystemMonitor/pkg/logging"
	"SystemMonitor/pkg/metrics"
	"SystemMonitor/pkg/telemetry"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrClosed      = errors.New("publisher closed")
	ErrNilCallback = errors.New("nil callback")
)

// Callback receives each new snapshot. It runs on a goroutine owned by its
// subscription and must treat the snapshot as read-only.
type Callback func(*metrics.Snapshot)

type pair struct {
	current  *metrics.Snapshot
	previous *metrics.Snapshot
}

// Publisher keeps the latest snapshot and the one before it. Publish swaps
// both in a single atomic store so readers never see a mixed pair. The swap
// happens under mu, so a new subscriber sees each snapshot exactly once. Each
// subscriber has a one-slot mailbox: when it falls behind, the pending
// snapshot is replaced by the newer one and Publish never blocks.
type Publisher struct {
	state atomic.Pointer[pair]

	mu     sync.Mutex
	subs   map[uuid.UUID]*subscriber
	closed bool

	metrics *telemetry.Metrics
	log     zerolog.Logger
}

func New(m *telemetry.Metrics) *Publisher {
	if m == nil {
		m = telemetry.New(nil)
	}
	p := &Publisher{
		subs:    make(map[uuid.UUID]*subscriber),
		metrics: m,
		log:     logging.WithComponent("publisher"),
	}
	p.state.Store(&pair{})
	return p
}

// Publish makes snap the current snapshot and notifies subscribers. It is
// the only mutator.
func (p *Publisher) Publish(snap *metrics.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	old := p.state.Load()
	p.state.Store(&pair{current: snap, previous: old.current})

	for _, s := range p.subs {
		if s.offer(snap) {
			p.metrics.SubscriberDrops.Inc()
		}
	}
}

// Current returns the latest snapshot or nil before the first publication.
func (p *Publisher) Current() *metrics.Snapshot { return p.state.Load().current }

// Previous returns the snapshot published before Current, or nil.
func (p *Publisher) Previous() *metrics.Snapshot { return p.state.Load().previous }

// Pair returns current and previous from the same publication.
func (p *Publisher) Pair() (current, previous *metrics.Snapshot) {
	st := p.state.Load()
	return st.current, st.previous
}

// Subscribe registers cb. If a snapshot has already been published it is
// delivered right away.
func (p *Publisher) Subscribe(cb Callback) (uuid.UUID, error) {
	if cb == nil {
		return uuid.Nil, ErrNilCallback
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return uuid.Nil, ErrClosed
	}

	s := &subscriber{
		id:      uuid.New(),
		cb:      cb,
		mailbox: make(chan *metrics.Snapshot, 1),
		done:    make(chan struct{}),
		log:     p.log,
	}
	p.subs[s.id] = s
	p.metrics.Subscribers.Set(float64(len(p.subs)))
	go s.run()

	if cur := p.Current(); cur != nil {
		s.offer(cur)
	}
	p.log.Debug().Str("subscription", s.id.String()).Msg("subscriber added")
	return s.id, nil
}

// Unsubscribe stops delivery to id. A callback already running is not
// interrupted. It reports whether id was registered.
func (p *Publisher) Unsubscribe(id uuid.UUID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.subs[id]
	if !ok {
		return false
	}
	delete(p.subs, id)
	close(s.done)
	p.metrics.Subscribers.Set(float64(len(p.subs)))
	return true
}

func (p *Publisher) Subscribers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}

// Close ends every subscription. Current and Previous stay readable.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	for id, s := range p.subs {
		close(s.done)
		delete(p.subs, id)
	}
	p.metrics.Subscribers.Set(0)
}

type subscriber struct {
	id      uuid.UUID
	cb      Callback
	mailbox chan *metrics.Snapshot
	done    chan struct{}
	log     zerolog.Logger
}

// offer places snap in the mailbox, replacing an undelivered one. Only the
// publisher sends, under its lock, so the loop ends after at most one drain.
func (s *subscriber) offer(snap *metrics.Snapshot) (dropped bool) {
	for {
		select {
		case s.mailbox <- snap:
			return dropped
		default:
		}
		select {
		case <-s.mailbox:
			dropped = true
		default:
		}
	}
}

func (s *subscriber) run() {
	for {
		select {
		case <-s.done:
			return
		case snap := <-s.mailbox:
			select {
			case <-s.done:
				return
			default:
			}
			s.deliver(snap)
		}
	}
}

func (s *subscriber) deliver(snap *metrics.Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Str("subscription", s.id.String()).Msg("subscriber callback panicked")
		}
	}()
	s.cb(snap)
}

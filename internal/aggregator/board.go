package aggregator

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"pickup-dispatch/dispatch/internal/logging"
	"pickup-dispatch/dispatch/internal/metrics"
	"pickup-dispatch/dispatch/internal/models/entities"
	"pickup-dispatch/dispatch/internal/providers"
)

// Phase is where a board is in its load cycle.
type Phase string

const (
	PhaseIdle               Phase = "idle"
	PhaseRequestListLoading Phase = "request_list_loading"
	PhaseDetailsLoading     Phase = "details_loading"
	PhaseReady              Phase = "ready"
)

// Source is the part of the dispatch API a board reads from.
type Source interface {
	ListActiveRequests(ctx context.Context) ([]entities.PickupRequest, error)
	GetPickupPoint(ctx context.Context, id string) (*entities.PickupPoint, error)
	ListResponses(ctx context.Context, requestID string) ([]entities.ResponseRecord, error)
}

// Snapshot is a copy of a board's state at one instant.
// A missing key in PickupPoints or Responses is an absent value.
type Snapshot struct {
	Generation         uint64
	Phase              Phase
	Requests           []entities.PickupRequest
	PickupPoints       map[string]*entities.PickupPoint
	Responses          map[string][]entities.ResponseRecord
	PickupPointsLoaded bool
	ResponsesLoaded    bool
	ListErr            error
	StartedAt          time.Time
	ReadyAt            time.Time
}

// FullyLoaded is true once every per-item fetch of the cycle has settled.
func (s Snapshot) FullyLoaded() bool {
	return s.PickupPointsLoaded && s.ResponsesLoaded
}

func (s Snapshot) clone() Snapshot {
	out := s
	out.Requests = append([]entities.PickupRequest(nil), s.Requests...)
	out.PickupPoints = make(map[string]*entities.PickupPoint, len(s.PickupPoints))
	for k, v := range s.PickupPoints {
		out.PickupPoints[k] = v
	}
	out.Responses = make(map[string][]entities.ResponseRecord, len(s.Responses))
	for k, v := range s.Responses {
		out.Responses[k] = v
	}
	return out
}

type Options struct {
	// Concurrency bounds in-flight detail fetches per cycle. 0 means unbounded.
	Concurrency int
	Metrics     *metrics.MetricsRegistry
}

// Board loads the active request list and resolves its pickup points and
// responses. Each Reload starts a new generation; results from older
// generations are discarded.
type Board struct {
	src  Source
	opts Options

	parent context.Context

	mu      sync.Mutex
	gen     uint64
	state   Snapshot
	cancel  context.CancelFunc
	changed chan struct{}
	closed  bool

	// settle counters of the current generation, guarded by mu
	pickupSettled, pickupTotal int
	respSettled, respTotal     int
}

// NewBoard creates an idle board. Cycles run on contexts derived from parent.
func NewBoard(parent context.Context, src Source, opts Options) *Board {
	return &Board{
		src:     src,
		opts:    opts,
		parent:  parent,
		state:   Snapshot{Phase: PhaseIdle},
		changed: make(chan struct{}),
	}
}

// Reload discards the current state and starts a new load cycle in the
// background. It returns the new generation.
func (b *Board) Reload(trigger string) uint64 {
	b.mu.Lock()
	if b.closed {
		gen := b.gen
		b.mu.Unlock()
		return gen
	}
	if b.cancel != nil {
		b.cancel()
	}
	b.gen++
	gen := b.gen
	ctx, cancel := context.WithCancel(b.parent)
	b.cancel = cancel
	b.state = Snapshot{
		Generation:   gen,
		Phase:        PhaseRequestListLoading,
		PickupPoints: map[string]*entities.PickupPoint{},
		Responses:    map[string][]entities.ResponseRecord{},
		StartedAt:    time.Now(),
	}
	b.pickupSettled, b.pickupTotal = 0, 0
	b.respSettled, b.respTotal = 0, 0
	b.broadcastLocked()
	b.mu.Unlock()

	b.opts.Metrics.ObserveReload(trigger)
	logging.Debug("Board reload started", "generation", gen, "trigger", trigger)

	go b.run(ctx, cancel, gen)
	return gen
}

// EnsureLoaded starts a cycle if the board has never been loaded.
func (b *Board) EnsureLoaded() uint64 {
	b.mu.Lock()
	idle := b.state.Phase == PhaseIdle
	gen := b.gen
	b.mu.Unlock()
	if idle {
		return b.Reload("mount")
	}
	return gen
}

// Snapshot returns a copy of the current state.
func (b *Board) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.clone()
}

// Generation returns the current generation.
func (b *Board) Generation() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gen
}

// WaitReady blocks until a cycle of generation >= gen is ready.
func (b *Board) WaitReady(ctx context.Context, gen uint64) (Snapshot, error) {
	for {
		b.mu.Lock()
		if b.state.Phase == PhaseReady && b.state.Generation >= gen {
			snap := b.state.clone()
			b.mu.Unlock()
			return snap, nil
		}
		ch := b.changed
		b.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return Snapshot{}, ctx.Err()
		}
	}
}

// ReloadAndWait starts a cycle and waits for it to be ready.
func (b *Board) ReloadAndWait(ctx context.Context, trigger string) (Snapshot, error) {
	return b.WaitReady(ctx, b.Reload(trigger))
}

// Close cancels any running cycle. Later reloads are ignored.
func (b *Board) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	if b.cancel != nil {
		b.cancel()
	}
}

func (b *Board) run(ctx context.Context, cancel context.CancelFunc, gen uint64) {
	defer cancel()

	reqs, err := b.src.ListActiveRequests(ctx)
	if err != nil {
		logging.Warn("Failed to load pickup requests",
			"generation", gen,
			"kind", providers.KindOf(err),
			"error", err.Error(),
		)
		b.apply(gen, func(s *Snapshot) {
			s.ListErr = err
			s.Requests = []entities.PickupRequest{}
			s.PickupPointsLoaded = true
			s.ResponsesLoaded = true
			b.markReadyLocked(s)
		})
		return
	}

	pickupIDs := distinctPickupIDs(reqs)

	ok := b.apply(gen, func(s *Snapshot) {
		s.Requests = reqs
		s.Phase = PhaseDetailsLoading
		b.pickupTotal = len(pickupIDs)
		b.respTotal = len(reqs)
		// nothing will ever settle for an empty list
		s.PickupPointsLoaded = b.pickupTotal == 0
		s.ResponsesLoaded = b.respTotal == 0
		b.markReadyLocked(s)
	})
	if !ok || len(reqs) == 0 {
		return
	}

	g := new(errgroup.Group)
	if b.opts.Concurrency > 0 {
		g.SetLimit(b.opts.Concurrency)
	}

	for _, id := range pickupIDs {
		id := id
		g.Go(func() error {
			pt, err := b.src.GetPickupPoint(ctx, id)
			b.apply(gen, func(s *Snapshot) {
				if err == nil && pt != nil {
					s.PickupPoints[id] = pt
				} else {
					b.absent("pickup_point", id, err)
				}
				b.pickupSettled++
				if b.pickupSettled == b.pickupTotal {
					s.PickupPointsLoaded = true
				}
				b.markReadyLocked(s)
			})
			return nil
		})
	}

	for _, req := range reqs {
		reqID := req.ID
		g.Go(func() error {
			rs, err := b.src.ListResponses(ctx, reqID)
			b.apply(gen, func(s *Snapshot) {
				if err == nil && rs != nil {
					s.Responses[reqID] = rs
				} else {
					b.absent("responses", reqID, err)
				}
				b.respSettled++
				if b.respSettled == b.respTotal {
					s.ResponsesLoaded = true
				}
				b.markReadyLocked(s)
			})
			return nil
		})
	}

	_ = g.Wait()
}

// apply runs fn against the state only if gen is still current.
func (b *Board) apply(gen uint64, fn func(s *Snapshot)) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.gen {
		b.opts.Metrics.ObserveStaleDiscard()
		return false
	}
	fn(&b.state)
	b.broadcastLocked()
	return true
}

func (b *Board) markReadyLocked(s *Snapshot) {
	if s.Phase == PhaseReady || !s.FullyLoaded() {
		return
	}
	s.Phase = PhaseReady
	s.ReadyAt = time.Now()
	b.opts.Metrics.ObserveCycle(s.ReadyAt.Sub(s.StartedAt))
}

func (b *Board) broadcastLocked() {
	close(b.changed)
	b.changed = make(chan struct{})
}

func (b *Board) absent(mapping, id string, err error) {
	kind := string(providers.KindOf(err))
	if kind == "" {
		kind = "empty"
	}
	b.opts.Metrics.ObserveAbsent(mapping, kind)
	logging.Debug("Board entry left absent", "mapping", mapping, "id", id, "kind", kind)
}

// distinctPickupIDs keeps first-seen order.
func distinctPickupIDs(reqs []entities.PickupRequest) []string {
	seen := make(map[string]struct{}, len(reqs))
	ids := make([]string, 0, len(reqs))
	for _, r := range reqs {
		if _, ok := seen[r.PickupPointID]; ok {
			continue
		}
		seen[r.PickupPointID] = struct{}{}
		ids = append(ids, r.PickupPointID)
	}
	return ids
}

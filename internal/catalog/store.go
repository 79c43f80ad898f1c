// Package catalog holds the process-wide, fetch-once cache of the tour catalog.
package catalog

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"ebike_tours/internal/adapters/observability"
	"ebike_tours/internal/domain"
)

const (
	flightKey      = "catalog"
	defaultTimeout = 20 * time.Second
	recordTimeout  = 3 * time.Second
)

// Store owns the single authoritative snapshot of the tour catalog.
//
// The catalog is read from the source at most once per process unless a
// caller asks for Refresh explicitly. There is no TTL and no background
// revalidation.
type Store struct {
	src      domain.CatalogSource
	fetchLog domain.FetchLog
	timeout  time.Duration
	now      func() time.Time
	trigger  string

	cur atomic.Pointer[Snapshot]
	sf  singleflight.Group

	mu      sync.Mutex // serialises transitions and guards subs
	subs    map[int]chan Snapshot
	nextSub int
}

type Option func(*Store)

// WithFetchTimeout bounds one read of the source. Callers never cancel a
// started read; this is the only limit on it.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithFetchLog records every completed read attempt.
func WithFetchLog(l domain.FetchLog) Option { return func(s *Store) { s.fetchLog = l } }

// WithTrigger labels every recorded attempt with t instead of the operation
// that started it.
func WithTrigger(t string) Option { return func(s *Store) { s.trigger = t } }

func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

func New(src domain.CatalogSource, opts ...Option) *Store {
	s := &Store{
		src:     src,
		timeout: defaultTimeout,
		now:     time.Now,
		subs:    map[int]chan Snapshot{},
	}
	for _, o := range opts {
		o(s)
	}
	s.cur.Store(&Snapshot{State: Empty})
	return s
}

// Snapshot returns the latest completed transition. It never blocks.
func (s *Store) Snapshot() Snapshot { return *s.cur.Load() }

func (s *Store) Tours() []domain.Tour { return slices.Clone(s.cur.Load().Tours) }

func (s *Store) Featured() []domain.Tour { return slices.Clone(s.cur.Load().Featured) }

func (s *Store) Status() Status {
	snap := s.cur.Load()
	st := Status{State: snap.State}
	if snap.State == Failed {
		st.Err = snap.Err
	}
	return st
}

// Lookup returns the first tour with the given id. Duplicate ids are kept in
// the snapshot, so later records with the same id are only reachable by
// iterating Tours.
func (s *Store) Lookup(id string) (domain.Tour, bool) {
	for _, t := range s.cur.Load().Tours {
		if t.ID == id {
			return t, true
		}
	}
	return domain.Tour{}, false
}

// EnsureLoaded populates the snapshot if nothing has been loaded yet.
//
// It is a no-op once the store is Ready or holds at least one record. While
// a read is in flight every caller joins it instead of starting another one.
// ctx only bounds how long this caller waits: when it expires the current
// (still loading) snapshot is returned and the read carries on.
func (s *Store) EnsureLoaded(ctx context.Context) Snapshot {
	if snap := s.Snapshot(); snap.populated() {
		observability.ObserveCache("catalog", "hit")
		return snap
	}
	return s.fetch(ctx, "ensure", false)
}

// Refresh reads the catalog again even when it is already loaded. The
// previous snapshot stays visible until the new read succeeds and is kept
// if it fails.
func (s *Store) Refresh(ctx context.Context) Snapshot {
	return s.fetch(ctx, "refresh", true)
}

// Subscribe delivers every subsequent snapshot. The channel holds only the
// most recent undelivered snapshot, so slow readers skip intermediate states
// but always see the latest. cancel closes the channel.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

func (s *Store) fetch(ctx context.Context, trigger string, force bool) Snapshot {
	if s.trigger != "" {
		trigger = s.trigger
	}
	ch := s.sf.DoChan(flightKey, func() (any, error) {
		return s.run(trigger, force), nil
	})
	select {
	case res := <-ch:
		if res.Shared {
			observability.ObserveCache("catalog", "shared")
		}
		return res.Val.(Snapshot)
	case <-ctx.Done():
		return s.Snapshot()
	}
}

// run performs at most one read of the source. It executes inside the
// singleflight group, so no two runs overlap.
func (s *Store) run(trigger string, force bool) Snapshot {
	// A previous flight may have finished between the caller's check and
	// joining the group.
	if cur := s.Snapshot(); !force && cur.populated() {
		observability.ObserveCache("catalog", "hit")
		return cur
	}

	s.transition(func(prev Snapshot) Snapshot {
		prev.State = Loading
		prev.Err = ""
		return prev
	})
	observability.ObserveCache("catalog", "fetch")

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := s.now()
	tours, err := s.src.FetchTours(ctx)
	attempt := domain.FetchAttempt{StartedAt: start, Duration: s.now().Sub(start), Trigger: trigger}

	var next Snapshot
	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = "Failed to fetch tours"
		}
		next = s.transition(func(prev Snapshot) Snapshot {
			prev.State = Failed
			prev.Err = msg
			return prev
		})
		attempt.Error = &msg
		observability.ObserveCache("catalog", "fail")
		log.Error().Err(err).Str("trigger", trigger).Msg("fetch tours failed")
	} else {
		owned := slices.Clone(tours)
		next = s.transition(func(prev Snapshot) Snapshot {
			return Snapshot{
				State:        Ready,
				Tours:        owned,
				Featured:     domain.FilterFeatured(owned),
				DuplicateIDs: duplicateIDs(owned),
				FetchedAt:    start,
				Generation:   prev.Generation + 1,
			}
		})
		attempt.OK = true
		attempt.Tours = len(next.Tours)
		attempt.Featured = len(next.Featured)
		attempt.Duplicates = len(next.DuplicateIDs)
		observability.ObserveCache("catalog", "ok")
		if len(next.DuplicateIDs) > 0 {
			log.Warn().Strs("ids", next.DuplicateIDs).Msg("catalog contains duplicate tour ids")
		}
		log.Info().
			Int("tours", len(next.Tours)).
			Int("popular", len(next.Featured)).
			Str("trigger", trigger).
			Msg("tours cached")
	}

	s.record(attempt)
	return next
}

// transition installs f(current) as the new snapshot and publishes it.
func (s *Store) transition(f func(Snapshot) Snapshot) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := f(*s.cur.Load())
	s.cur.Store(&next)
	observability.ObserveCatalog(next.State.String(), len(next.Tours), len(next.Featured))

	for _, ch := range s.subs {
		select {
		case ch <- next:
		default:
			// drop the stale pending value; we are the only sender
			select {
			case <-ch:
			default:
			}
			ch <- next
		}
	}
	return next
}

func (s *Store) record(a domain.FetchAttempt) {
	if s.fetchLog == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := s.fetchLog.RecordFetch(ctx, a); err != nil {
		log.Warn().Err(err).Msg("record fetch attempt failed")
	}
}

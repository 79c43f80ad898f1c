package catalog

import (
	"fmt"
	"time"

	"ebike_tours/internal/domain"
)

// State is the lifecycle tag of the catalog cache.
//
//	Empty --EnsureLoaded--> Loading --ok--> Ready
//	                           |
//	                           +--err--> Failed --EnsureLoaded--> Loading
//
// Ready is terminal for EnsureLoaded; only Refresh leaves it.
type State int

const (
	Empty State = iota
	Loading
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	for _, st := range []State{Empty, Loading, Ready, Failed} {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown catalog state %q", b)
}

// Snapshot is an immutable view of the store after one transition. Its slices
// are shared between readers and must not be modified.
type Snapshot struct {
	State        State
	Tours        []domain.Tour
	Featured     []domain.Tour
	Err          string
	DuplicateIDs []string
	FetchedAt    time.Time // zero until the first successful fetch
	Generation   uint64    // bumped on every successful replacement of Tours
}

func (s Snapshot) Loading() bool { return s.State == Loading }

// populated reports whether EnsureLoaded has nothing left to do.
func (s Snapshot) populated() bool { return s.State == Ready || len(s.Tours) > 0 }

type Status struct {
	State State
	Err   string // set only when State is Failed
}

// duplicateIDs lists ids that occur more than once, in order of first repeat.
func duplicateIDs(ts []domain.Tour) []string {
	seen := make(map[string]int, len(ts))
	var out []string
	for _, t := range ts {
		seen[t.ID]++
		if seen[t.ID] == 2 {
			out = append(out, t.ID)
		}
	}
	return out
}

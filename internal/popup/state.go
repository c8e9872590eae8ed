package popup

import (
	"sort"

	"github.com/idilsaglam/issuestash/internal/messenger"
	"github.com/idilsaglam/issuestash/internal/model"
)

// State is everything the presentation layer renders.
// Transitions are pure: each returns a new State and never does I/O.
type State struct {
	LoadState  model.LoadState
	Hidden     []model.Item
	Instance   messenger.InstanceID
	OwnerLabel string
	Page       *model.PageContext
	PageItems  int

	// generation identifies the cycle allowed to write into this state.
	generation uint64
}

// Generation is the id of the most recently started load cycle.
func (s State) Generation() uint64 { return s.generation }

// begin claims a load cycle. Only a Pending state can start one.
func (s State) begin() (State, uint64, bool) {
	if s.LoadState != model.Pending {
		return s, 0, false
	}
	s.generation++
	s.LoadState = model.Loading
	return s, s.generation, true
}

// stale reports whether gen belongs to a superseded cycle.
func (s State) stale(gen uint64) bool {
	return gen != s.generation || s.LoadState != model.Loading
}

// noInstance ends a cycle that found no page to talk to.
func (s State) noInstance(gen uint64) State {
	if s.stale(gen) {
		return s
	}
	s.Instance = ""
	s.Hidden = []model.Item{}
	s.Page = nil
	s.PageItems = 0
	s.OwnerLabel = ""
	s.LoadState = model.Loaded
	return s
}

func (s State) withInstance(gen uint64, id messenger.InstanceID) State {
	if s.stale(gen) {
		return s
	}
	s.Instance = id
	return s
}

func (s State) withHidden(gen uint64, hidden []model.Item, rendered int) State {
	if s.stale(gen) {
		return s
	}
	s.Hidden = hidden
	s.PageItems = rendered
	return s
}

func (s State) withPage(gen uint64, pc model.PageContext) State {
	if s.stale(gen) {
		return s
	}
	s.Page = &pc
	s.OwnerLabel = pc.Owner.String()
	return s
}

func (s State) finish(gen uint64) State {
	if s.stale(gen) {
		return s
	}
	s.LoadState = model.Loaded
	return s
}

// refresh re-enters Pending from any state. Whatever cycle was running
// becomes stale once the next one begins.
func (s State) refresh() State {
	s.LoadState = model.Pending
	return s
}

// without drops id from the hidden list. Absent ids are a no-op.
func (s State) without(id string) State {
	out := make([]model.Item, 0, len(s.Hidden))
	for _, it := range s.Hidden {
		if it.ID != id {
			out = append(out, it)
		}
	}
	s.Hidden = out
	return s
}

// HiddenAmong returns the records for ids that are stored as hidden, sorted
// ascending by issue number. Ties keep page order; repeated ids count once;
// ids without a record are skipped.
func HiddenAmong(ids []string, records map[string]model.Item) []model.Item {
	seen := make(map[string]bool, len(ids))
	out := make([]model.Item, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		rec, ok := records[id]
		if !ok || rec.IsVisible {
			continue
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Ref.Number < out[j].Ref.Number })
	return out
}

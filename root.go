package slicebox

import (
	"errors"
	"fmt"
	"maps"
	"sync"
)

type (
	// SliceName identifies the portion of State owned by one Reducer
	SliceName string

	// State is the application state tree, keyed by slice
	State map[SliceName]any

	// Root composes registered slice reducers into a single reduction
	Root struct {
		mu       sync.RWMutex
		slices   map[SliceName]*slice
		order    []SliceName
		decoders Decoders
	}

	slice struct {
		init   func() any
		reduce func(any, Action) any
	}
)

var (
	// ErrSliceExists is returned when a slice name is registered twice
	ErrSliceExists = errors.New("slice already registered")

	// ErrSliceName is returned when a slice is registered without a name
	ErrSliceName = errors.New("slice name is required")
)

// NewRoot creates an empty Root
func NewRoot() *Root {
	return &Root{
		slices:   map[SliceName]*slice{},
		decoders: Decoders{},
	}
}

// Register adds a slice to the Root. init supplies the slice's value when it
// is absent from the State being reduced
func Register[S any](
	r *Root, name SliceName, init func() S, reducer Reducer[S],
) error {
	if name == "" {
		return ErrSliceName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.slices[name]; ok {
		return fmt.Errorf("%w: %s", ErrSliceExists, name)
	}

	r.slices[name] = &slice{
		init: func() any { return init() },
		reduce: func(val any, action Action) any {
			s, ok := val.(S)
			if !ok {
				s = init()
			}
			return reducer(s, action)
		},
	}
	r.order = append(r.order, name)
	return nil
}

// RegisterAction records the Decoder used to rebuild actions of typ
func (r *Root) RegisterAction(typ ActionType, dec Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoders[typ] = dec
}

// Decoders returns a copy of the registered action decoders
func (r *Root) Decoders() Decoders {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.decoders)
}

// Slices returns the registered slice names in registration order
func (r *Root) Slices() []SliceName {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]SliceName(nil), r.order...)
}

// Initial builds a State holding every slice's initial value
func (r *Root) Initial() State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := make(State, len(r.slices))
	for name, s := range r.slices {
		res[name] = s.init()
	}
	return res
}

// Reduce runs every registered slice reducer once against the action and
// returns the resulting State. Keys the Root does not own are carried over
// unchanged, and the input State is never modified
func (r *Root) Reduce(state State, action Action) State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := make(State, max(len(state), len(r.slices)))
	maps.Copy(res, state)
	for _, name := range r.order {
		s := r.slices[name]
		cur, ok := state[name]
		if !ok {
			cur = s.init()
		}
		res[name] = s.reduce(cur, action)
	}
	return res
}

// Select returns the named slice of state as an S
func Select[S any](state State, name SliceName) (S, bool) {
	val, ok := state[name].(S)
	return val, ok
}

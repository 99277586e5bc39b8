package slicebox

import (
	"context"
	"errors"
	"maps"
	"sync"

	"go.uber.org/zap"
)

type (
	// Store holds the application State and applies dispatched actions to it
	// through a Root, one at a time and in dispatch order
	Store struct {
		root       *Root
		decoders   Decoders
		journal    Journal
		logger     *zap.Logger
		state      State
		listeners  map[int]Listener
		order      []int
		nextID     int
		nextSeq    int64
		maxRetries int
		closed     bool
		mu         sync.Mutex
	}

	// Listener is called with the committed State after each dispatch. It
	// runs while the Store is locked and must not call back into the Store
	Listener func(State, Action)
)

var (
	// ErrMaxRetriesExceeded is returned when journal conflicts keep a
	// dispatch from committing
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")

	// ErrStoreClosed is returned when dispatching to a closed Store
	ErrStoreClosed = errors.New("store is closed")
)

// Open creates a Store for root, opening the configured journal and
// replaying it into the initial State
func Open(ctx context.Context, root *Root, cfg Config) (*Store, error) {
	journal, err := OpenJournal(ctx, cfg.Journal)
	if err != nil {
		return nil, err
	}

	s := NewStore(root, journal, cfg)
	if err := s.Restore(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// NewStore creates a Store over an already opened Journal, which may be nil.
// The Store takes ownership of the Journal
func NewStore(root *Root, journal Journal, cfg Config) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Store{
		root:       root,
		decoders:   root.Decoders(),
		journal:    journal,
		logger:     logger,
		state:      root.Initial(),
		listeners:  map[int]Listener{},
		maxRetries: maxRetries,
	}
}

// State returns a copy of the current State. Slice values are shared with
// the Store and must be treated as read-only
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.state)
}

// Sequence returns the journal sequence the next dispatch will be written at
func (s *Store) Sequence() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextSeq
}

// Dispatch reduces action into the current State, journals it if a Journal is
// configured, and notifies listeners. A RawAction whose type has a registered
// decoder is decoded first, exactly as it would be on replay. The State is
// left untouched if decoding or the journal write fails
func (s *Store) Dispatch(ctx context.Context, action Action) (State, error) {
	if action == nil {
		return nil, ErrNilAction
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	action, err := s.decoders.Resolve(action)
	if err != nil {
		return nil, err
	}

	next, err := s.commit(ctx, action)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Action dispatched",
		zap.String("type", string(action.Type())),
		zap.Int64("sequence", s.nextSeq-1),
	)

	for _, id := range s.order {
		s.listeners[id](maps.Clone(next), action)
	}
	return maps.Clone(next), nil
}

func (s *Store) commit(ctx context.Context, action Action) (State, error) {
	if s.journal == nil {
		s.state = s.root.Reduce(s.state, action)
		s.nextSeq++
		return s.state, nil
	}

	for range s.maxRetries {
		next := s.root.Reduce(s.state, action)
		rec, err := NewRecord(action, s.nextSeq)
		if err != nil {
			return nil, err
		}

		err = s.journal.Append(ctx, s.nextSeq, []*Record{rec})
		if err == nil {
			s.state = next
			s.nextSeq++
			return next, nil
		}

		if !s.handleVersionConflict(err) {
			s.logger.Error("Failed to journal action",
				zap.String("type", string(action.Type())),
				zap.Int64("sequence", s.nextSeq),
				zap.Error(err),
			)
			return nil, err
		}
	}
	return nil, ErrMaxRetriesExceeded
}

func (s *Store) handleVersionConflict(err error) bool {
	var conflict *VersionConflictError
	if !errors.As(err, &conflict) {
		return false
	}

	s.logger.Warn("Journal version conflict",
		zap.Int64("expected", conflict.ExpectedSequence),
		zap.Int64("actual", conflict.ActualSequence),
		zap.Int("new_records", len(conflict.NewRecords)),
	)

	if err := s.apply(conflict.NewRecords); err != nil {
		s.logger.Error("Failed to apply conflicting records", zap.Error(err))
		return false
	}
	return true
}

// Restore replays journal records past the current sequence into the State
func (s *Store) Restore(ctx context.Context) error {
	if s.journal == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.journal.Load(ctx, s.nextSeq)
	if err != nil {
		return err
	}
	if err := s.apply(recs); err != nil {
		return err
	}

	s.logger.Info("Journal replayed",
		zap.Int("records", len(recs)),
		zap.Int64("sequence", s.nextSeq),
	)
	return nil
}

func (s *Store) apply(recs []*Record) error {
	for _, rec := range recs {
		if rec.Sequence != s.nextSeq {
			continue
		}
		action, err := rec.Action(s.decoders)
		if err != nil {
			return err
		}
		s.state = s.root.Reduce(s.state, action)
		s.nextSeq++
	}
	return nil
}

// Subscribe registers a Listener and returns a function that removes it
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.order = append(s.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.listeners, id)
			for i, o := range s.order {
				if o == id {
					s.order = append(s.order[:i:i], s.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Close releases the Journal. Later dispatches return ErrStoreClosed
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.journal != nil {
		return s.journal.Close()
	}
	return nil
}

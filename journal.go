package slicebox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type (
	// Journal is an append-only log of dispatched actions. Append must be
	// atomic and fail with a VersionConflictError when atSeq is not the
	// current length of the log
	Journal interface {
		Append(ctx context.Context, atSeq int64, recs []*Record) error
		Load(ctx context.Context, fromSeq int64) ([]*Record, error)
		Close() error
	}

	// Record is a journaled action
	Record struct {
		Timestamp time.Time       `json:"timestamp"`
		ID        uuid.UUID       `json:"id"`
		Type      ActionType      `json:"type"`
		Data      json.RawMessage `json:"data"`
		Sequence  int64           `json:"sequence"`
	}

	VersionConflictError struct {
		NewRecords       []*Record
		ExpectedSequence int64
		ActualSequence   int64
	}
)

// ErrUnknownBackend is returned by OpenJournal for an unrecognized backend
var ErrUnknownBackend = errors.New("unknown journal backend")

// OpenJournal opens the journal selected by cfg.Backend. The memory backend
// returns a nil Journal
func OpenJournal(ctx context.Context, cfg JournalConfig) (Journal, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return nil, nil
	case BackendRedis:
		return asJournal(NewRedisJournal(ctx, cfg))
	case BackendBolt:
		return asJournal(NewBoltJournal(cfg))
	case BackendPostgres:
		return asJournal(NewPostgresJournal(ctx, cfg))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.Backend)
	}
}

func asJournal[J Journal](j J, err error) (Journal, error) {
	if err != nil {
		return nil, err
	}
	return j, nil
}

// NewRecord encodes action into a Record at the given sequence
func NewRecord(action Action, seq int64) (*Record, error) {
	data, err := Encode(action)
	if err != nil {
		return nil, err
	}
	return &Record{
		Timestamp: time.Now(),
		ID:        uuid.New(),
		Type:      action.Type(),
		Data:      data,
		Sequence:  seq,
	}, nil
}

// Action rebuilds the journaled action using the provided decoders
func (r *Record) Action(d Decoders) (Action, error) {
	return d.Decode(r.Type, r.Data)
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf(
		"version conflict: expected sequence %d, but at %d (%d new records)",
		e.ExpectedSequence, e.ActualSequence, len(e.NewRecords),
	)
}

package slicebox_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/slicebox"
)

func TestVersionConflictError(t *testing.T) {
	err := &slicebox.VersionConflictError{
		ExpectedSequence: 0,
		ActualSequence:   5,
		NewRecords:       []*slicebox.Record{{}, {}},
	}

	assert.Contains(t, err.Error(), "version conflict")
	assert.Contains(t, err.Error(), "expected sequence 0")
	assert.Contains(t, err.Error(), "but at 5")
	assert.Contains(t, err.Error(), "2 new records")
}

func TestOpenJournal(t *testing.T) {
	ctx := context.Background()

	j, err := slicebox.OpenJournal(ctx, slicebox.DefaultJournalConfig())
	assert.NoError(t, err)
	assert.Nil(t, j)

	cfg := slicebox.DefaultJournalConfig()
	cfg.Backend = "tape"
	j, err = slicebox.OpenJournal(ctx, cfg)
	assert.ErrorIs(t, err, slicebox.ErrUnknownBackend)
	assert.Nil(t, j)

	cfg.Backend = slicebox.BackendPostgres
	cfg.DSN = ""
	j, err = slicebox.OpenJournal(ctx, cfg)
	assert.Error(t, err)
	assert.Nil(t, j)
}

func TestNewRecord(t *testing.T) {
	rec, err := slicebox.NewRecord(&slicebox.ReceiveArticle{
		Article: &slicebox.Article{ID: 1},
	}, 3)
	require.NoError(t, err)
	assert.Equal(t, slicebox.ActionReceiveArticle, rec.Type)
	assert.Equal(t, int64(3), rec.Sequence)
	assert.NotZero(t, rec.ID)
	assert.False(t, rec.Timestamp.IsZero())

	action, err := rec.Action(newTestRoot(t).Decoders())
	require.NoError(t, err)
	assert.Equal(t, &slicebox.ReceiveArticle{
		Article: &slicebox.Article{ID: 1},
	}, action)
}

func newRecords(t *testing.T, atSeq int64, actions ...slicebox.Action) []*slicebox.Record {
	t.Helper()
	res := make([]*slicebox.Record, 0, len(actions))
	for i, a := range actions {
		rec, err := slicebox.NewRecord(a, atSeq+int64(i))
		require.NoError(t, err)
		res = append(res, rec)
	}
	return res
}

// testJournal exercises the behavior every Journal backend must share
func testJournal(t *testing.T, j slicebox.Journal) {
	t.Helper()
	ctx := context.Background()

	recs, err := j.Load(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, recs)

	first := newRecords(t, 0,
		&slicebox.ReceiveArticle{Article: &slicebox.Article{ID: 1}},
		&slicebox.RawAction{Kind: ActionOther, Payload: json.RawMessage(`{}`)},
	)
	require.NoError(t, j.Append(ctx, 0, first))
	require.NoError(t, j.Append(ctx, 2, nil))

	recs, err = j.Load(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, slicebox.ActionReceiveArticle, recs[0].Type)
	assert.Equal(t, int64(0), recs[0].Sequence)
	assert.Equal(t, first[0].ID, recs[0].ID)
	assert.JSONEq(t, `{"article":{"id":1}}`, string(recs[0].Data))
	assert.Equal(t, ActionOther, recs[1].Type)
	assert.Equal(t, int64(1), recs[1].Sequence)

	recs, err = j.Load(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, int64(1), recs[0].Sequence)

	t.Run("stale sequence conflicts", func(t *testing.T) {
		stale := newRecords(t, 1, &Incremented{By: 1})
		err := j.Append(ctx, 1, stale)

		var conflict *slicebox.VersionConflictError
		require.True(t, errors.As(err, &conflict))
		assert.Equal(t, int64(1), conflict.ExpectedSequence)
		assert.Equal(t, int64(2), conflict.ActualSequence)
		require.Len(t, conflict.NewRecords, 1)
		assert.Equal(t, ActionOther, conflict.NewRecords[0].Type)
		assert.Equal(t, int64(1), conflict.NewRecords[0].Sequence)
	})

	t.Run("future sequence conflicts", func(t *testing.T) {
		ahead := newRecords(t, 5, &Incremented{By: 1})
		err := j.Append(ctx, 5, ahead)

		var conflict *slicebox.VersionConflictError
		require.True(t, errors.As(err, &conflict))
		assert.Equal(t, int64(2), conflict.ActualSequence)
		assert.Empty(t, conflict.NewRecords)
	})

	recs, err = j.Load(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

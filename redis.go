package slicebox

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisJournal keeps the action log in a Redis list
type RedisJournal struct {
	client    *redis.Client
	key       string
	appendLua *redis.Script
	loadLua   *redis.Script
}

const recordsSuffix = ":records"

// ErrUnexpectedLuaResult is returned when a journal script replies with an
// unexpected shape
var ErrUnexpectedLuaResult = errors.New("unexpected result from Lua script")

// NewRedisJournal connects to Redis and verifies the connection
func NewRedisJournal(ctx context.Context, cfg JournalConfig) (*RedisJournal, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, openTimeout(cfg))
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &RedisJournal{
		client:    client,
		key:       cfg.Prefix + recordsSuffix,
		appendLua: redis.NewScript(luaAppendRecords),
		loadLua:   redis.NewScript(luaLoadRecords),
	}, nil
}

func (j *RedisJournal) Append(
	ctx context.Context, atSeq int64, recs []*Record,
) error {
	if len(recs) == 0 {
		return nil
	}

	args := []any{atSeq}
	for _, rec := range recs {
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		args = append(args, string(data))
	}

	result, err := j.appendLua.Run(ctx, j.client, []string{j.key}, args...).Result()
	if err != nil {
		return err
	}

	res, ok := result.([]any)
	if !ok || len(res) < 2 {
		return ErrUnexpectedLuaResult
	}
	success, _ := res[0].(int64)
	seq, _ := res[1].(int64)
	if success == 1 {
		return nil
	}

	var raw []any
	if len(res) > 2 {
		raw, _ = res[2].([]any)
	}
	newRecs, err := unmarshalRecords(atSeq, raw)
	if err != nil {
		return err
	}
	return &VersionConflictError{
		ExpectedSequence: atSeq,
		ActualSequence:   seq,
		NewRecords:       newRecs,
	}
}

func (j *RedisJournal) Load(
	ctx context.Context, fromSeq int64,
) ([]*Record, error) {
	result, err := j.loadLua.Run(
		ctx, j.client, []string{j.key}, fromSeq,
	).Result()
	if err != nil {
		return nil, err
	}

	raw, ok := result.([]any)
	if !ok {
		return nil, ErrUnexpectedLuaResult
	}
	return unmarshalRecords(fromSeq, raw)
}

func (j *RedisJournal) Close() error {
	return j.client.Close()
}

func unmarshalRecords(startSeq int64, data []any) ([]*Record, error) {
	recs := make([]*Record, 0, len(data))
	for i, item := range data {
		str, ok := item.(string)
		if !ok {
			return nil, ErrUnexpectedLuaResult
		}
		rec := &Record{}
		if err := json.Unmarshal([]byte(str), rec); err != nil {
			return nil, err
		}
		rec.Sequence = startSeq + int64(i)
		recs = append(recs, rec)
	}
	return recs, nil
}

package slicebox

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresJournal keeps the action log in a Postgres table, one row per
// record, keyed by (prefix, seq)
type PostgresJournal struct {
	pool   *pgxpool.Pool
	prefix string
}

const (
	pgCreateTable = `
		CREATE TABLE IF NOT EXISTS slicebox_records (
			prefix     TEXT        NOT NULL,
			seq        BIGINT      NOT NULL,
			id         UUID        NOT NULL,
			type       TEXT        NOT NULL,
			data       JSONB,
			created_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (prefix, seq)
		)`

	pgLockPrefix = `SELECT pg_advisory_xact_lock(hashtext($1))`

	pgCurrentLength = `
		SELECT COALESCE(MAX(seq) + 1, 0) FROM slicebox_records
		WHERE prefix = $1`

	pgInsertRecord = `
		INSERT INTO slicebox_records (prefix, seq, id, type, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	pgSelectRecords = `
		SELECT seq, id, type, data, created_at FROM slicebox_records
		WHERE prefix = $1 AND seq >= $2
		ORDER BY seq`
)

// NewPostgresJournal connects to cfg.DSN and ensures the records table exists
func NewPostgresJournal(
	ctx context.Context, cfg JournalConfig,
) (*PostgresJournal, error) {
	if cfg.DSN == "" {
		return nil, errors.New("postgres journal requires a DSN")
	}

	openCtx, cancel := context.WithTimeout(ctx, openTimeout(cfg))
	defer cancel()

	pool, err := pgxpool.New(openCtx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if _, err := pool.Exec(openCtx, pgCreateTable); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresJournal{pool: pool, prefix: cfg.Prefix}, nil
}

func (j *PostgresJournal) Append(
	ctx context.Context, atSeq int64, recs []*Record,
) error {
	if len(recs) == 0 {
		return nil
	}

	return pgx.BeginFunc(ctx, j.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, pgLockPrefix, j.prefix); err != nil {
			return err
		}

		var length int64
		err := tx.QueryRow(ctx, pgCurrentLength, j.prefix).Scan(&length)
		if err != nil {
			return err
		}
		if length != atSeq {
			newRecs, err := j.query(ctx, tx, atSeq)
			if err != nil {
				return err
			}
			return &VersionConflictError{
				ExpectedSequence: atSeq,
				ActualSequence:   length,
				NewRecords:       newRecs,
			}
		}

		batch := &pgx.Batch{}
		for i, rec := range recs {
			batch.Queue(pgInsertRecord,
				j.prefix, atSeq+int64(i), rec.ID.String(), string(rec.Type),
				[]byte(rec.Data), rec.Timestamp,
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

func (j *PostgresJournal) Load(
	ctx context.Context, fromSeq int64,
) ([]*Record, error) {
	return j.query(ctx, j.pool, fromSeq)
}

func (j *PostgresJournal) Close() error {
	j.pool.Close()
	return nil
}

type pgQuerier interface {
	Query(context.Context, string, ...any) (pgx.Rows, error)
}

func (j *PostgresJournal) query(
	ctx context.Context, q pgQuerier, fromSeq int64,
) ([]*Record, error) {
	rows, err := q.Query(ctx, pgSelectRecords, j.prefix, max(fromSeq, 0))
	if err != nil {
		return nil, err
	}

	res := []*Record{}
	for rows.Next() {
		var (
			rec  Record
			id   string
			typ  string
			data []byte
		)
		err := rows.Scan(&rec.Sequence, &id, &typ, &data, &rec.Timestamp)
		if err == nil {
			rec.ID, err = uuid.Parse(id)
		}
		if err != nil {
			rows.Close()
			return nil, err
		}
		rec.Type = ActionType(typ)
		rec.Data = data
		res = append(res, &rec)
	}
	return res, rows.Err()
}

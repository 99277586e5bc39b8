package slicebox

import (
	"context"
	"encoding/binary"
	"encoding/json"

	bolt "go.etcd.io/bbolt"
)

// BoltJournal keeps the action log in a bbolt bucket, keyed by big-endian
// sequence
type BoltJournal struct {
	db     *bolt.DB
	bucket []byte
}

// NewBoltJournal opens (or creates) the bbolt file at cfg.Path
func NewBoltJournal(cfg JournalConfig) (*BoltJournal, error) {
	db, err := bolt.Open(cfg.Path, 0o600, &bolt.Options{
		Timeout: openTimeout(cfg),
	})
	if err != nil {
		return nil, err
	}

	bucket := []byte(cfg.Prefix)
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &BoltJournal{db: db, bucket: bucket}, nil
}

func (j *BoltJournal) Append(
	ctx context.Context, atSeq int64, recs []*Record,
) error {
	if len(recs) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return j.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(j.bucket)
		length := bucketLength(b)
		if length != atSeq {
			newRecs, err := readRecords(b, atSeq)
			if err != nil {
				return err
			}
			return &VersionConflictError{
				ExpectedSequence: atSeq,
				ActualSequence:   length,
				NewRecords:       newRecs,
			}
		}

		for i, rec := range recs {
			data, err := json.Marshal(rec)
			if err != nil {
				return err
			}
			if err := b.Put(seqKey(atSeq+int64(i)), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (j *BoltJournal) Load(
	ctx context.Context, fromSeq int64,
) ([]*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var res []*Record
	err := j.db.View(func(tx *bolt.Tx) error {
		var err error
		res, err = readRecords(tx.Bucket(j.bucket), fromSeq)
		return err
	})
	return res, err
}

func (j *BoltJournal) Close() error {
	return j.db.Close()
}

func bucketLength(b *bolt.Bucket) int64 {
	k, _ := b.Cursor().Last()
	if k == nil {
		return 0
	}
	return int64(binary.BigEndian.Uint64(k)) + 1
}

func readRecords(b *bolt.Bucket, fromSeq int64) ([]*Record, error) {
	res := []*Record{}
	if fromSeq < 0 {
		fromSeq = 0
	}
	c := b.Cursor()
	for k, v := c.Seek(seqKey(fromSeq)); k != nil; k, v = c.Next() {
		rec := &Record{}
		if err := json.Unmarshal(v, rec); err != nil {
			return nil, err
		}
		rec.Sequence = int64(binary.BigEndian.Uint64(k))
		res = append(res, rec)
	}
	return res, nil
}

func seqKey(seq int64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(seq))
	return k
}

package wallet

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// SubmissionRecord is the logged outcome of one candidate's submission,
// persisted for operator audit/history only — never read back into the hot
// mining path. Attempt is the number of submitNonce calls made for it.
type SubmissionRecord struct {
	Height    uint64
	Nonce     uint64
	Deadline  uint64
	Attempt   int
	Outcome   string // "accepted" | "exhausted" | "cancelled"
	Timestamp time.Time
}

// Ledger is the interface the submitter writes outcomes to.
type Ledger interface {
	RecordSubmission(rec SubmissionRecord) error
}

// BadgerLedger persists submission records to a BadgerDB directory, adapted
// directly from the teacher's core/badgerstore.go key scheme: block:<height>
// / chain:tip become submission:<height>:<nonce>:<attempt> /
// ledger:lastHeight.
type BadgerLedger struct {
	db *badger.DB
}

// OpenBadgerLedger opens (creating if necessary) the ledger database under
// dataDir, mirroring OpenBadgerStore's badger.DefaultOptions(...).
// WithLogger(nil) construction.
func OpenBadgerLedger(dataDir string) (*BadgerLedger, error) {
	db, err := badger.Open(badger.DefaultOptions(dataDir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("wallet: open ledger at %s: %w", dataDir, err)
	}
	return &BadgerLedger{db: db}, nil
}

func submissionKey(rec SubmissionRecord) []byte {
	return []byte(fmt.Sprintf("submission:%s:%s:%d",
		strconv.FormatUint(rec.Height, 10), strconv.FormatUint(rec.Nonce, 10), rec.Attempt))
}

// RecordSubmission writes rec and advances the ledger:lastHeight marker in a
// single transaction, exactly mirroring BadgerStore.PutBlock's shape of
// "write the record, then update the tip marker" inside one db.Update call.
func (l *BadgerLedger) RecordSubmission(rec SubmissionRecord) error {
	val, err := encodeSubmissionRecord(rec)
	if err != nil {
		return err
	}
	return l.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(submissionKey(rec), val); err != nil {
			return err
		}
		return txn.Set([]byte("ledger:lastHeight"), []byte(strconv.FormatUint(rec.Height, 10)))
	})
}

// ListRecent returns up to n most recently written submission records, for
// operator tooling. Not used on the hot mining path.
func (l *BadgerLedger) ListRecent(n int) ([]SubmissionRecord, error) {
	var recs []SubmissionRecord
	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("submission:")
		opts.Reverse = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				rec, err := decodeSubmissionRecord(val)
				if err != nil {
					return err
				}
				recs = append(recs, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Timestamp.Before(recs[j].Timestamp) })
	if len(recs) > n {
		recs = recs[len(recs)-n:]
	}
	return recs, nil
}

func (l *BadgerLedger) Close() error {
	return l.db.Close()
}

func encodeSubmissionRecord(rec SubmissionRecord) ([]byte, error) {
	return []byte(strings.Join([]string{
		strconv.FormatUint(rec.Height, 10),
		strconv.FormatUint(rec.Nonce, 10),
		strconv.FormatUint(rec.Deadline, 10),
		strconv.Itoa(rec.Attempt),
		rec.Outcome,
		rec.Timestamp.Format(time.RFC3339Nano),
	}, "|")), nil
}

func decodeSubmissionRecord(val []byte) (SubmissionRecord, error) {
	var rec SubmissionRecord
	fields := strings.Split(string(val), "|")
	if len(fields) != 6 {
		return rec, fmt.Errorf("wallet: malformed submission record %q", val)
	}
	var err error
	if rec.Height, err = strconv.ParseUint(fields[0], 10, 64); err != nil {
		return rec, fmt.Errorf("wallet: decode submission height: %w", err)
	}
	if rec.Nonce, err = strconv.ParseUint(fields[1], 10, 64); err != nil {
		return rec, fmt.Errorf("wallet: decode submission nonce: %w", err)
	}
	if rec.Deadline, err = strconv.ParseUint(fields[2], 10, 64); err != nil {
		return rec, fmt.Errorf("wallet: decode submission deadline: %w", err)
	}
	if rec.Attempt, err = strconv.Atoi(fields[3]); err != nil {
		return rec, fmt.Errorf("wallet: decode submission attempt: %w", err)
	}
	rec.Outcome = fields[4]
	if rec.Timestamp, err = time.Parse(time.RFC3339Nano, fields[5]); err != nil {
		return rec, fmt.Errorf("wallet: decode submission timestamp: %w", err)
	}
	return rec, nil
}

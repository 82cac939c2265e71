// Package checkpoint caches finished partition results in a local pebble
// database so an interrupted run can resume. Entries are keyed by partition
// and only reused while the partition's input files are unchanged.
package checkpoint

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/pebble"

	"github.com/BartekS5/lakecheck/pkg/models"
)

const keyPrefix = "partition/"

// keyUpper is the first key after every keyPrefix key ('0' follows '/').
var keyUpper = []byte("partition0")

type entry struct {
	Fingerprint uint64                  `json:"fingerprint"`
	Options     string                  `json:"options"`
	Result      *models.PartitionResult `json:"result"`
}

// PebbleStore implements etl.Checkpointer.
type PebbleStore struct {
	db *pebble.DB
}

func Open(dir string) (*PebbleStore, error) {
	db, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("pebble open: %w", err)
	}
	return &PebbleStore{db: db}, nil
}

func (s *PebbleStore) Close() error { return s.db.Close() }

func key(p models.Partition) []byte {
	return []byte(keyPrefix + p.Key())
}

// Fingerprint hashes the name, size and modification time of the
// partition's three dataset files. Absent files hash as absent.
func Fingerprint(p models.Partition) uint64 {
	h := xxhash.New()
	var buf [8]byte
	for _, path := range []string{p.ProductsPath, p.CustomersPath, p.TransactionsPath} {
		_, _ = h.WriteString(filepath.Base(path))
		info, err := os.Stat(path)
		if err != nil {
			_, _ = h.Write([]byte{0})
			continue
		}
		_, _ = h.Write([]byte{1})
		binary.LittleEndian.PutUint64(buf[:], uint64(info.Size()))
		_, _ = h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], uint64(info.ModTime().UnixNano()))
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}

// Load returns the cached result for p when one exists, the partition's
// files still match the fingerprint taken when it was saved, and it was
// computed under the same validation options.
func (s *PebbleStore) Load(p models.Partition, options string) (*models.PartitionResult, bool, error) {
	v, closer, err := s.db.Get(key(p))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer closer.Close()

	var e entry
	if err := json.Unmarshal(v, &e); err != nil {
		return nil, false, fmt.Errorf("decoding checkpoint %s: %w", p.Key(), err)
	}
	if e.Result == nil || e.Fingerprint != Fingerprint(p) || e.Options != options {
		return nil, false, nil
	}
	e.Result.Partition = p
	e.Result.Resumed = true
	return e.Result, true, nil
}

func (s *PebbleStore) Save(result *models.PartitionResult, options string) error {
	data, err := json.Marshal(entry{
		Fingerprint: Fingerprint(result.Partition),
		Options:     options,
		Result:      result,
	})
	if err != nil {
		return err
	}
	return s.db.Set(key(result.Partition), data, pebble.Sync)
}

// Clear removes every cached partition.
func (s *PebbleStore) Clear() error {
	return s.db.DeleteRange([]byte(keyPrefix), keyUpper, pebble.Sync)
}

// Len counts cached partitions.
func (s *PebbleStore) Len() (int, error) {
	it, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: keyUpper,
	})
	if err != nil {
		return 0, err
	}
	defer it.Close()

	n := 0
	for it.First(); it.Valid(); it.Next() {
		n++
	}
	return n, nil
}

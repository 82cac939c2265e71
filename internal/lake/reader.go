// Package lake reads the on-disk layout of the data lake: date=/hour=
// partition directories holding gzip-compressed NDJSON files.
package lake

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"

	"github.com/BartekS5/lakecheck/pkg/models"
)

// ErrParse marks a line that is not a JSON object or a stream that cannot be
// decompressed.
var ErrParse = errors.New("parse failure")

const maxLineSize = 16 * 1024 * 1024

// Reader streams JSON objects from a gzip-compressed NDJSON file.
type Reader struct {
	file    *os.File
	gz      *gzip.Reader
	scanner *bufio.Scanner
	line    int
	path    string
}

// Open opens path for streaming. An empty (zero byte) file yields a reader
// that is immediately exhausted.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	r := &Reader{file: f, path: path}
	gz, err := gzip.NewReader(f)
	switch {
	case errors.Is(err, io.EOF):
		return r, nil
	case err != nil:
		f.Close()
		return nil, fmt.Errorf("%w: %s: gzip header: %v", ErrParse, path, err)
	}

	r.gz = gz
	r.scanner = bufio.NewScanner(gz)
	r.scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return r, nil
}

// Next returns the next record. Blank lines are skipped. io.EOF is returned
// once the stream is exhausted.
func (r *Reader) Next() (models.Record, error) {
	if r.scanner == nil {
		return nil, io.EOF
	}

	for r.scanner.Scan() {
		r.line++
		line := bytes.TrimSpace(r.scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var rec models.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %v", ErrParse, r.path, r.line, err)
		}
		if rec == nil {
			return nil, fmt.Errorf("%w: %s line %d: not a JSON object", ErrParse, r.path, r.line)
		}
		return rec, nil
	}

	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s line %d: %v", ErrParse, r.path, r.line+1, err)
	}
	return nil, io.EOF
}

func (r *Reader) Close() error {
	var err error
	if r.gz != nil {
		err = r.gz.Close()
	}
	if cerr := r.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// Each streams every record in path to fn, stopping at the first error from
// either the stream or fn.
func Each(path string, fn func(rec models.Record) error) error {
	r, err := Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}

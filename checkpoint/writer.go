package checkpoint

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/datagen-jp/instructgen/generate"
)

// Writer buffers committed entries into fixed-size chunks and persists each
// full chunk as an immutable checkpoint file. Finalize flushes the last
// (possibly partial) chunk and rewrites the aggregate dataset file.
//
// Writer is not safe for concurrent use: the dispatcher serializes commits
// under its own lock and is the only caller during a run.
type Writer struct {
	dir       string
	prefix    string
	chunkSize int

	seq       int
	chunk     []generate.Entry
	dataset   []generate.Entry
	files     []string
	finalized bool
}

// NewWriter creates the output directory if needed and returns a writer that
// names chunk files <prefix>.tmp.NNNN.json and the aggregate <prefix>.json.
func NewWriter(dir, prefix string, chunkSize int) (*Writer, error) {
	if chunkSize < 1 {
		return nil, errors.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "creating output directory %s", dir)
	}
	return &Writer{
		dir:       dir,
		prefix:    prefix,
		chunkSize: chunkSize,
	}, nil
}

// Commit appends a fully populated entry to the current chunk and the
// dataset, flushing the chunk when it reaches the chunk size. Entries with a
// missing instruction or output are rejected so that no partial record is
// ever persisted.
func (w *Writer) Commit(e generate.Entry) error {
	if w.finalized {
		return errors.Errorf("commit after finalize")
	}
	if e.Instruction == "" || e.Output == "" {
		return errors.Errorf("refusing to commit incomplete entry (instruction %d bytes, output %d bytes)",
			len(e.Instruction), len(e.Output))
	}

	w.chunk = append(w.chunk, e)
	w.dataset = append(w.dataset, e)

	if len(w.chunk) >= w.chunkSize {
		return w.flush()
	}
	return nil
}

// flush writes the current chunk as the next checkpoint file and clears it.
// This is the durability point: entries in a flushed chunk survive the
// process dying immediately afterwards.
func (w *Writer) flush() error {
	w.seq++
	path := filepath.Join(w.dir, fmt.Sprintf("%s.tmp.%04d.json", w.prefix, w.seq))
	size, err := WriteEntries(path, w.chunk)
	if err != nil {
		w.seq--
		return err
	}

	log.Printf("[INFO] wrote checkpoint %s (%d entries, %s)", path, len(w.chunk), humanize.Bytes(uint64(size)))
	w.files = append(w.files, path)
	w.chunk = nil
	return nil
}

// Finalize flushes a non-empty partial chunk and rewrites the aggregate
// file. It runs at most once; later calls are no-ops so the normal-exit and
// interrupt paths can both invoke it safely.
func (w *Writer) Finalize() error {
	if w.finalized {
		return nil
	}
	w.finalized = true

	if len(w.chunk) > 0 {
		if err := w.flush(); err != nil {
			return err
		}
	}

	path := filepath.Join(w.dir, w.prefix+".json")
	size, err := WriteEntries(path, w.dataset)
	if err != nil {
		return err
	}
	log.Printf("[INFO] wrote dataset %s (%d entries, %s)", path, len(w.dataset), humanize.Bytes(uint64(size)))
	return nil
}

// Dataset returns every entry committed so far, in commit order.
func (w *Writer) Dataset() []generate.Entry {
	return w.dataset
}

// Files returns the checkpoint files written so far, in flush order.
func (w *Writer) Files() []string {
	return w.files
}

// WriteEntries serializes entries as an indented JSON array to path,
// writing a temp file and renaming so the snapshot appears atomically.
// It returns the number of bytes written.
func WriteEntries(path string, entries []generate.Entry) (int, error) {
	if entries == nil {
		entries = []generate.Entry{}
	}
	buf, err := json.MarshalIndent(entries, "", "    ")
	if err != nil {
		return 0, errors.Wrapf(err, "marshaling %d entries for %s", len(entries), path)
	}

	tmp := path + ".partial"
	if err := ioutil.WriteFile(tmp, buf, 0644); err != nil {
		return 0, errors.Wrapf(err, "writing %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		return 0, errors.Wrapf(err, "renaming %s -> %s", tmp, path)
	}
	return len(buf), nil
}

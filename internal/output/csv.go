package output

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gofrs/flock"
)

// CSVSink writes batch output as CSV, flushing after every line so partial
// results survive an aborted batch.
type CSVSink struct {
	w *csv.Writer
}

// NewCSVSink wraps w.
func NewCSVSink(w io.Writer) *CSVSink {
	return &CSVSink{w: csv.NewWriter(w)}
}

// WriteHeader writes the header line.
func (s *CSVSink) WriteHeader(fields []string) error {
	return s.write(fields)
}

// WriteRow writes one data line.
func (s *CSVSink) WriteRow(values []string) error {
	return s.write(values)
}

func (s *CSVSink) write(record []string) error {
	if err := s.w.Write(record); err != nil {
		return err
	}
	s.w.Flush()
	return s.w.Error()
}

// CSVFile is a CSV sink backed by an exclusively locked file.
type CSVFile struct {
	*CSVSink
	file *os.File
	lock *flock.Flock
}

// CreateCSVFile truncates or creates path for writing. An advisory lock on
// path+".lock" is held until Close so two batches cannot write the same file
// at once.
func CreateCSVFile(path string) (*CSVFile, error) {
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock output file: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("output file %s is in use by another process", path)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("create output file: %w", err)
	}

	return &CSVFile{
		CSVSink: NewCSVSink(file),
		file:    file,
		lock:    lock,
	}, nil
}

// Path returns the file path.
func (f *CSVFile) Path() string {
	return f.file.Name()
}

// Close flushes and closes the file, then releases and removes the lock.
func (f *CSVFile) Close() error {
	f.w.Flush()
	err := errors.Join(f.w.Error(), f.file.Close(), f.lock.Unlock())
	if rmErr := os.Remove(f.lock.Path()); rmErr != nil && !os.IsNotExist(rmErr) {
		err = errors.Join(err, rmErr)
	}
	return err
}

package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"realclear-polls/models"
)

// CSVWriter exports datasets as CSV for the charting tools.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	writer *csv.Writer
	header bool
}

// NewCSVWriter creates (or truncates) the CSV file at the given path.
// Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	return &CSVWriter{path: path, file: f, writer: csv.NewWriter(f)}, nil
}

// Write appends the rows of ds. The header is written once, from the first
// dataset; later datasets must have the same columns.
func (c *CSVWriter) Write(ds *models.Dataset) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := ds.Names()
	if !c.header {
		if err := c.writer.Write(names); err != nil {
			return fmt.Errorf("csv: write header: %w", err)
		}
		c.header = true
	}

	for i := 0; i < ds.Len(); i++ {
		if err := c.writer.Write(ds.Row(i)); err != nil {
			return fmt.Errorf("csv: write row %d: %w", i, err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}

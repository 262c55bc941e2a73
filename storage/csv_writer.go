package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"lianjia-rentals/models"
)

// CSVWriter mirrors scraped rows into a CSV file using the rentals column
// layout. Missing values are written as empty cells. It is safe for
// concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(Columns); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// WriteRecords appends one row per record and flushes.
func (c *CSVWriter) WriteRecords(records []models.ListingRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, r := range records {
		row := []string{
			r.Title,
			models.Deref(r.LeaseType),
			models.Deref(r.Location),
			models.Deref(r.Name),
			models.Deref(r.Area),
			models.Deref(r.Price),
			models.Deref(r.Style),
			models.Deref(r.Orientation),
			models.Deref(r.Floor),
			models.Deref(r.Decoration),
			models.Deref(r.Transportation),
			models.Deref(r.PayType),
			models.Deref(r.FirstRent),
			models.Deref(r.Brand),
			r.Link,
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
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

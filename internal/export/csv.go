// Package export serializes extracted snapshot rows to CSV files.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/PRL-PRG/what-constitutes-software-query/internal/domain"
)

// Header is the fixed column header of every output file.
var Header = []string{"pid", "path", "hash_id"}

// WriteCSV writes rows to dir/name, creating dir as needed and replacing any
// existing file. An I/O failure here is the one fatal error class of the
// pipeline; everything upstream degrades per project instead.
func WriteCSV(dir, name string, rows []domain.Row) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		return fmt.Errorf("failed to write header to %s: %w", path, err)
	}
	for _, row := range rows {
		record := []string{
			strconv.FormatUint(uint64(row.Project), 10),
			row.Path,
			string(row.Snapshot),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write row to %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

// Package dataset reads the column names of an uploaded tabular file.
// Only the header row is read; the rows themselves are handed to the
// engine untouched.
package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	dqerrors "github.com/DataVisuals/expectations/internal/errors"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadColumns returns the header row of CSV data. name labels errors.
func ReadColumns(r io.Reader, name string) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, dqerrors.DatasetReadFailure(name, fmt.Errorf("no header row"))
	}
	if err != nil {
		return nil, dqerrors.DatasetReadFailure(name, err)
	}

	columns := make([]string, 0, len(header))
	seen := make(map[string]bool, len(header))
	for i, col := range header {
		if i == 0 {
			col = string(bytes.TrimPrefix([]byte(col), utf8BOM))
		}
		col = strings.TrimSpace(col)
		if col == "" {
			return nil, dqerrors.DatasetReadFailure(name, fmt.Errorf("column %d has no name", i+1))
		}
		if seen[col] {
			return nil, dqerrors.DatasetReadFailure(name, fmt.Errorf("duplicate column %q", col))
		}
		seen[col] = true
		columns = append(columns, col)
	}
	return columns, nil
}

// ReadFile opens path and reads its header
func ReadFile(path string) ([]string, error) {
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".csv" && ext != "" {
		return nil, dqerrors.DatasetReadFailure(path, fmt.Errorf("unsupported file type %s", ext))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, dqerrors.DatasetReadFailure(path, err)
	}
	defer f.Close()

	return ReadColumns(f, path)
}

// ModelName derives a model name from a dataset file name
func ModelName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

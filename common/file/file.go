package file

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	dirPermissions  = 0o755
	filePermissions = 0o644
)

var (
	errNoRows        = errors.New("no rows to write")
	errMisalignedRow = errors.New("row length does not match header length")
)

// Write writes data to path, creating any missing parent directories
func Write(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return err
	}
	return os.WriteFile(path, data, filePermissions)
}

// Writer creates or truncates path for writing, creating any missing parent
// directories. The caller must close the file
func Writer(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermissions)
}

// Exists returns whether anything exists at path
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// WriteAsCSV writes rows to a csv file. The first row is the header and
// every other row must be the same length
func WriteAsCSV(path string, rows [][]string) error {
	if len(rows) == 0 {
		return errNoRows
	}
	for i := 1; i < len(rows); i++ {
		if len(rows[i]) != len(rows[0]) {
			return fmt.Errorf("%w: row %d has %d fields, header has %d", errMisalignedRow, i, len(rows[i]), len(rows[0]))
		}
	}
	f, err := Writer(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err = w.WriteAll(rows); err != nil {
		return errors.Join(err, f.Close())
	}
	return f.Close()
}

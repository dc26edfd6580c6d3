package extract

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/parquet-go/parquet-go"

	"github.com/JakeFAU/kraken/internal/kraken"
	"github.com/JakeFAU/kraken/internal/metrics"
)

// WriteCSV writes rows under BasicHeader.
func WriteCSV(w io.Writer, rows []BasicRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(BasicHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rows {
		win := "0"
		if r.Win {
			win = "1"
		}
		rec := []string{
			r.MatchID,
			strconv.FormatInt(r.GameCreation, 10),
			strconv.Itoa(r.QueueID),
			r.ChampionName,
			r.Role,
			win,
			strconv.Itoa(r.Kills),
			strconv.Itoa(r.Deaths),
			strconv.Itoa(r.Assists),
			strconv.Itoa(r.CSTotal),
			strconv.Itoa(r.GoldEarned),
			strconv.FormatInt(r.GameDuration, 10),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row %s: %w", r.MatchID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteParquet encodes rows as a single Snappy-compressed Parquet file.
func WriteParquet[T any](w io.Writer, rows []T) error {
	pw := parquet.NewGenericWriter[T](w, parquet.Compression(&parquet.Snappy))
	if _, err := pw.Write(rows); err != nil {
		_ = pw.Close()
		return fmt.Errorf("write parquet rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}

// ReadParquet loads every row of the Parquet file at path. T may name a
// subset of the file's columns.
func ReadParquet[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &kraken.StorageError{Op: "open", Path: path, Err: err}
	}
	if err != nil {
		return nil, &kraken.ParseError{MatchID: filepath.Base(path), Err: err}
	}
	return rows, nil
}

// WriteTable writes rows as Parquet to path atomically and counts them
// under table.
func WriteTable[T any](path, table string, rows []T) error {
	err := WriteFile(path, func(w io.Writer) error {
		return WriteParquet(w, rows)
	})
	if err != nil {
		return err
	}
	metrics.ObserveRowsWritten(table, len(rows))
	return nil
}

// WriteFile creates path's parent directory and replaces path with what
// write produces, via a temporary file in the same directory.
func WriteFile(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	// #nosec G301 -- output directories hold shareable datasets.
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &kraken.StorageError{Op: "mkdir", Path: dir, Err: err}
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return &kraken.StorageError{Op: "create temp", Path: dir, Err: err}
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}
	if err := write(tmp); err != nil {
		cleanup()
		return &kraken.StorageError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return &kraken.StorageError{Op: "sync", Path: tmpName, Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return &kraken.StorageError{Op: "close", Path: tmpName, Err: err}
	}
	// #nosec G302 -- datasets are world-readable.
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return &kraken.StorageError{Op: "chmod", Path: tmpName, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return &kraken.StorageError{Op: "rename", Path: path, Err: err}
	}
	return nil
}

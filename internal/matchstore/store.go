// Package matchstore persists raw match records as one JSON file per match id.
//
// Files are written to a temporary name and renamed into place, so a reader
// never observes a partially written record.
package matchstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/JakeFAU/kraken/internal/hash/sha256"
	"github.com/JakeFAU/kraken/internal/kraken"
)

const (
	fileExt   = ".json"
	tmpSuffix = ".tmp"
)

var validMatchID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// Config captures the parameters for the match store.
type Config struct {
	// Dir is the corpus directory.
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// Store is a directory of <matchID>.json files.
type Store struct {
	dir    string
	hasher *sha256.Hasher
}

// New opens dir, creating it if needed and verifying it is writable.
func New(cfg Config) (*Store, error) {
	dir := strings.TrimSpace(cfg.Dir)
	if dir == "" {
		return nil, kraken.Configf("store.dir", "is required")
	}

	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if mkErr := os.MkdirAll(dir, 0o750); mkErr != nil {
			return nil, &kraken.StorageError{Op: "create dir", Path: dir, Err: mkErr}
		}
	case err != nil:
		return nil, &kraken.StorageError{Op: "stat dir", Path: dir, Err: err}
	case !info.IsDir():
		return nil, &kraken.StorageError{Op: "open", Path: dir, Err: errors.New("not a directory")}
	}

	probe := filepath.Join(dir, ".writable_test")
	if err := os.WriteFile(probe, []byte("test"), 0o600); err != nil {
		return nil, &kraken.StorageError{Op: "probe write", Path: dir, Err: err}
	}
	if err := os.Remove(probe); err != nil {
		return nil, &kraken.StorageError{Op: "probe cleanup", Path: probe, Err: err}
	}

	return &Store{dir: dir, hasher: sha256.New()}, nil
}

// Dir returns the corpus directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file path for matchID.
func (s *Store) Path(matchID string) string {
	return filepath.Join(s.dir, matchID+fileExt)
}

// Exists reports whether matchID has been stored.
func (s *Store) Exists(matchID string) (bool, error) {
	if err := checkID(matchID); err != nil {
		return false, err
	}
	_, err := os.Stat(s.Path(matchID))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, &kraken.StorageError{Op: "stat", Path: s.Path(matchID), Err: err}
	}
}

// Put writes raw under matchID. Writing an id that already exists leaves the
// existing file untouched and reports Created=false.
func (s *Store) Put(ctx context.Context, matchID string, raw []byte) (kraken.PutResult, error) {
	if err := checkID(matchID); err != nil {
		return kraken.PutResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return kraken.PutResult{}, fmt.Errorf("put %s: %w", matchID, err)
	}
	target := s.Path(matchID)
	res := kraken.PutResult{Path: target, Digest: s.hasher.Digest(raw)}

	exists, err := s.Exists(matchID)
	if err != nil {
		return res, err
	}
	if exists {
		return res, nil
	}

	tmp, err := os.CreateTemp(s.dir, matchID+"-*"+tmpSuffix)
	if err != nil {
		return res, &kraken.StorageError{Op: "create temp", Path: s.dir, Err: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return res, &kraken.StorageError{Op: "write", Path: tmpName, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return res, &kraken.StorageError{Op: "sync", Path: tmpName, Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return res, &kraken.StorageError{Op: "close", Path: tmpName, Err: err}
	}
	// #nosec G302 -- match files are world-readable corpus data.
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return res, &kraken.StorageError{Op: "chmod", Path: tmpName, Err: err}
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return res, &kraken.StorageError{Op: "rename", Path: target, Err: err}
	}
	res.Created = true
	return res, nil
}

// Get reads the stored payload for matchID.
func (s *Store) Get(matchID string) ([]byte, error) {
	if err := checkID(matchID); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path(matchID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("match %s: %w", matchID, kraken.ErrNotFound)
	}
	if err != nil {
		return nil, &kraken.StorageError{Op: "read", Path: s.Path(matchID), Err: err}
	}
	return data, nil
}

// Entry is one file found by List.
type Entry struct {
	MatchID string
	Path    string
}

// List yields every stored match in lexical path order, descending into
// subdirectories. Each range over the returned sequence rescans the
// directory, so the sequence can be restarted. Temporary files are skipped.
func (s *Store) List() iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		paths, err := s.scan()
		if err != nil {
			yield(Entry{}, err)
			return
		}
		for _, p := range paths {
			id := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
			if !yield(Entry{MatchID: id, Path: p}, nil) {
				return
			}
		}
	}
}

// Count returns the number of stored matches.
func (s *Store) Count() (int, error) {
	paths, err := s.scan()
	return len(paths), err
}

func (s *Store) scan() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(d.Name()), fileExt) && !strings.HasPrefix(d.Name(), ".") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, &kraken.StorageError{Op: "scan", Path: s.dir, Err: err}
	}
	sort.Strings(paths)
	return paths, nil
}

// ReadFile reads a file returned by List.
func ReadFile(e Entry) ([]byte, error) {
	data, err := os.ReadFile(e.Path)
	if err != nil {
		return nil, &kraken.StorageError{Op: "read", Path: e.Path, Err: err}
	}
	return data, nil
}

func checkID(matchID string) error {
	if !validMatchID.MatchString(matchID) {
		return &kraken.ParseError{MatchID: matchID, Err: errors.New("invalid match id")}
	}
	return nil
}

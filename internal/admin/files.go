package admin

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/peienli0114/multi-route-portfolio-template/internal/content"
)

var (
	// ErrInvalidName is returned for names that could escape the data directory.
	ErrInvalidName = errors.New("admin: invalid file name")
	// ErrNotFound is returned when the file does not exist.
	ErrNotFound = errors.New("admin: file not found")
	// ErrVersionMismatch is returned when If-Match does not name the current version.
	ErrVersionMismatch = errors.New("admin: file changed since it was read")
)

// HiddenFiles are managed automatically or deprecated and never listed.
var HiddenFiles = map[string]struct{}{
	"experience.csv":         {},
	content.PortfolioMapFile: {},
	"publish.csv":            {},
}

var tracer = otel.Tracer("folio/admin")

// File is a data file's content and version.
type File struct {
	Name    string
	Content []byte
	ETag    string
}

// WriteResult reports a completed write.
type WriteResult struct {
	Name     string
	PrevETag string
	ETag     string
	Size     int
	// MapSynced is true when portfolioMap.json was regenerated.
	MapSynced bool
}

// FileStore reads and writes the content directory.
type FileStore struct {
	dir    string
	logger *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewFileStore returns a store over dir.
func NewFileStore(dir string, logger *zap.Logger) *FileStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{dir: dir, logger: logger, locks: map[string]*sync.Mutex{}}
}

// Dir returns the data directory.
func (s *FileStore) Dir() string { return s.dir }

// ETag returns the weak validator for data.
func ETag(data []byte) string {
	sum := sha256.Sum256(data)
	return `W/"` + hex.EncodeToString(sum[:]) + `"`
}

// ValidName accepts plain .json and .csv names without "..", a path separator
// or a leading dot.
func ValidName(name string) error {
	switch {
	case name == "", strings.HasPrefix(name, "."),
		strings.Contains(name, ".."), strings.ContainsAny(name, `/\`),
		!dataExt(name):
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func dataExt(name string) bool {
	return strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".csv")
}

func manageable(name string) bool {
	if _, hidden := HiddenFiles[name]; hidden {
		return false
	}
	return dataExt(name)
}

// List returns the editable .json and .csv files, sorted.
func (s *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read data directory: %w", err)
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !manageable(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out, nil
}

// Read returns a file's content and ETag.
func (s *FileStore) Read(name string) (File, error) {
	if err := ValidName(name); err != nil {
		return File{}, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return File{}, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return File{}, fmt.Errorf("read %s: %w", name, err)
	}
	return File{Name: name, Content: data, ETag: ETag(data)}, nil
}

func (s *FileStore) lock(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[name]
	if !ok {
		l = &sync.Mutex{}
		s.locks[name] = l
	}
	return l
}

// Write replaces a file's content. A non-empty ifMatch must equal the current
// ETag ("*" matches any existing file); an empty ifMatch always writes.
// Saving allWorkData.json regenerates portfolioMap.json; a failed
// regeneration is logged and does not fail the write.
func (s *FileStore) Write(ctx context.Context, name string, data []byte, ifMatch string) (WriteResult, error) {
	ctx, span := tracer.Start(ctx, "admin.Write")
	defer span.End()
	span.SetAttributes(attribute.String("admin.file", name), attribute.Int("admin.size", len(data)))

	if err := ValidName(name); err != nil {
		return WriteResult{}, err
	}
	l := s.lock(name)
	l.Lock()
	defer l.Unlock()

	path := filepath.Join(s.dir, name)
	prev := ""
	if current, err := os.ReadFile(path); err == nil {
		prev = ETag(current)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return WriteResult{}, fmt.Errorf("read %s: %w", name, err)
	}
	if ifMatch != "" {
		if !etagMatches(ifMatch, prev) {
			return WriteResult{PrevETag: prev}, fmt.Errorf("%w: %s", ErrVersionMismatch, name)
		}
	}

	if err := writeAtomic(path, data); err != nil {
		return WriteResult{}, fmt.Errorf("write %s: %w", name, err)
	}
	res := WriteResult{Name: name, PrevETag: prev, ETag: ETag(data), Size: len(data)}

	if name == content.WorkDataFile {
		if err := s.SyncPortfolioMap(ctx, data); err != nil {
			s.logger.Error("portfolio map sync failed", zap.String("file", name), zap.Error(err))
		} else {
			res.MapSynced = true
		}
	}
	return res, nil
}

// SyncPortfolioMap rewrites portfolioMap.json from allWorkData.json content.
func (s *FileStore) SyncPortfolioMap(ctx context.Context, workData []byte) error {
	_, span := tracer.Start(ctx, "admin.SyncPortfolioMap")
	defer span.End()

	m, err := content.BuildPortfolioMap(workData)
	if err != nil {
		return err
	}
	encoded, err := content.EncodePortfolioMap(m)
	if err != nil {
		return err
	}
	l := s.lock(content.PortfolioMapFile)
	l.Lock()
	defer l.Unlock()
	if err := writeAtomic(filepath.Join(s.dir, content.PortfolioMapFile), encoded); err != nil {
		return err
	}
	s.logger.Info("portfolio map synced", zap.Int("entries", len(m)))
	return nil
}

func etagMatches(header, current string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" && current != "" {
			return true
		}
		if candidate != "" && strings.TrimPrefix(candidate, "W/") == strings.TrimPrefix(current, "W/") {
			return true
		}
	}
	return false
}

// writeAtomic replaces path by renaming a temp file from the same directory.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Chmod(name, 0o644); err != nil {
		os.Remove(name)
		return err
	}
	return os.Rename(name, path)
}

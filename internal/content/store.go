package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Content file names inside the content directory.
const (
	RoutesFile       = "portfolioRoutes.json"
	WorkDataFile     = "allWorkData.json"
	PortfolioMapFile = "portfolioMap.json"
	ExperienceFile   = "experience.json"
	SkillsFile       = "skillsData.json"
	PublishFile      = "publishData.json"

	// CVAssetDir holds downloadable CV PDFs, relative to the content directory.
	CVAssetDir = "cv"
)

// ErrNoDefault is reported when the route table has no "default" entry.
var ErrNoDefault = errors.New("content: route table has no default entry")

// Snapshot is an immutable view of the content directory.
type Snapshot struct {
	Routes       map[string]RouteEntry
	Works        map[string]WorkDetail
	Names        map[string]string
	Experience   ExperienceDataset
	Skills       []SkillGroup
	Publications []PublicationGroup
	// CVAssets maps a CV asset key (file name) to its URL path.
	CVAssets map[string]string
	LoadedAt time.Time
	// Problems lists recoverable load issues (malformed or missing files).
	Problems []string
}

// Default returns the default route entry.
func (s *Snapshot) Default() RouteEntry {
	if s == nil {
		return RouteEntry{}
	}
	return s.Routes["default"]
}

// Codes returns every known work code, sorted.
func (s *Snapshot) Codes() []string {
	if s == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(s.Names)+len(s.Works))
	for code := range s.Names {
		seen[code] = struct{}{}
	}
	for code := range s.Works {
		seen[code] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for code := range seen {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// RouteKeys returns the configured route names, sorted with default first.
func (s *Snapshot) RouteKeys() []string {
	if s == nil {
		return nil
	}
	keys := make([]string, 0, len(s.Routes))
	for k := range s.Routes {
		if k != "default" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if _, ok := s.Routes["default"]; ok {
		keys = append([]string{"default"}, keys...)
	}
	return keys
}

type skillsFile struct {
	Groups []SkillGroup `json:"groups"`
}

type publishFile struct {
	Groups []PublicationGroup `json:"groups"`
}

// Load reads every content file under dir. Missing or malformed files are
// recorded as Problems and replaced by empty structures; only an unreadable
// directory is an error.
func Load(ctx context.Context, dir, assetPrefix string, logger *zap.Logger) (*Snapshot, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, span := otel.Tracer("folio/content").Start(ctx, "content.Load")
	defer span.End()
	span.SetAttributes(attribute.String("content.dir", dir))

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("content: stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("content: %s is not a directory", dir)
	}

	var (
		routes  map[string]RouteEntry
		works   map[string]WorkDetail
		names   map[string]string
		exp     ExperienceDataset
		skills  skillsFile
		publish publishFile
		probs   = make([]string, 6)
	)

	g, _ := errgroup.WithContext(ctx)
	readers := []struct {
		file string
		dst  any
	}{
		{RoutesFile, &routes},
		{WorkDataFile, &works},
		{PortfolioMapFile, &names},
		{ExperienceFile, &exp},
		{SkillsFile, &skills},
		{PublishFile, &publish},
	}
	for i, rd := range readers {
		i, rd := i, rd
		g.Go(func() error {
			probs[i] = readJSON(filepath.Join(dir, rd.file), rd.dst)
			return nil
		})
	}
	_ = g.Wait()

	snap := &Snapshot{
		Routes:       routes,
		Works:        works,
		Names:        names,
		Experience:   exp,
		Skills:       NormaliseSkills(skills.Groups),
		Publications: NormalisePublications(publish.Groups),
		CVAssets:     scanCVAssets(filepath.Join(dir, CVAssetDir), assetPrefix),
		LoadedAt:     time.Now().UTC(),
	}
	if snap.Routes == nil {
		snap.Routes = map[string]RouteEntry{}
	}
	if snap.Works == nil {
		snap.Works = map[string]WorkDetail{}
	}
	if snap.Names == nil {
		snap.Names = map[string]string{}
	}
	for _, p := range probs {
		if p != "" {
			snap.Problems = append(snap.Problems, p)
		}
	}
	if _, ok := snap.Routes["default"]; !ok {
		snap.Problems = append(snap.Problems, ErrNoDefault.Error())
		snap.Routes["default"] = RouteEntry{}
	}
	for _, p := range snap.Problems {
		logger.Warn("content problem", zap.String("dir", dir), zap.String("problem", p))
	}
	return snap, nil
}

func readJSON(path string, dst any) string {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Sprintf("%s: missing", filepath.Base(path))
		}
		return fmt.Sprintf("%s: %v", filepath.Base(path), err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		// Unmarshal keeps going past type errors; drop the partial value.
		reflect.ValueOf(dst).Elem().SetZero()
		return fmt.Sprintf("%s: invalid data: %v", filepath.Base(path), err)
	}
	return ""
}

func scanCVAssets(dir, prefix string) map[string]string {
	out := map[string]string{}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return out
	}
	prefix = strings.TrimRight(prefix, "/")
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		out[e.Name()] = prefix + "/" + e.Name()
	}
	return out
}

// Store holds the current Snapshot and swaps it atomically on reload.
type Store struct {
	dir         string
	assetPrefix string
	logger      *zap.Logger
	current     atomic.Pointer[Snapshot]
}

// NewStore loads dir and returns a Store serving that snapshot.
func NewStore(ctx context.Context, dir, assetPrefix string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{dir: dir, assetPrefix: assetPrefix, logger: logger}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// NewStaticStore serves a fixed snapshot, primarily for tests.
func NewStaticStore(snap *Snapshot) *Store {
	s := &Store{logger: zap.NewNop()}
	s.current.Store(snap)
	return s
}

// Dir returns the content directory.
func (s *Store) Dir() string { return s.dir }

// Current returns the active snapshot.
func (s *Store) Current() *Snapshot { return s.current.Load() }

// Reload re-reads the content directory. On failure the previous snapshot
// stays active.
func (s *Store) Reload(ctx context.Context) error {
	snap, err := Load(ctx, s.dir, s.assetPrefix, s.logger)
	if err != nil {
		return err
	}
	s.current.Store(snap)
	s.logger.Info("content loaded",
		zap.String("dir", s.dir),
		zap.Int("routes", len(snap.Routes)),
		zap.Int("works", len(snap.Works)),
	)
	return nil
}

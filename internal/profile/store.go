package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	fileExt          = ".json"
	corruptExt       = ".corrupt"
	summaryCacheSize = 64
)

// ErrNotFound is returned when no profile matches a name.
var ErrNotFound = errors.New("profile not found")

// Summary is the picker view of a stored profile.
type Summary struct {
	ID             string
	PlayerName     string
	LastPlayedAt   time.Time
	TotalQuestions int
	Accuracy       float64
	TotalPoints    int
	Unlocked       int
}

type cachedSummary struct {
	modTime time.Time
	size    int64
	summary Summary
}

// Store reads and writes profile documents in one directory.
type Store struct {
	dir       string
	logger    *slog.Logger
	now       func() time.Time
	points    func(string) int
	catalog   Catalog
	summaries *lru.Cache[string, cachedSummary]
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for swallowed failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Catalog is the live achievement state kept in step with profiles.
type Catalog interface {
	Points(id string) int
	Reset()
}

// WithCatalog binds a live catalog: its points derive ledger totals and
// ResetProfile resets it.
func WithCatalog(c Catalog) Option {
	return func(s *Store) {
		if c != nil {
			s.points = c.Points
			s.catalog = c
		}
	}
}

// WithPoints sets the achievement point lookup used to derive ledger totals.
func WithPoints(points func(string) int) Option {
	return func(s *Store) {
		s.points = points
	}
}

// Open prepares the save directory.
func Open(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("save dir is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create save dir: %w", err)
	}
	cache, err := lru.New[string, cachedSummary](summaryCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create summary cache: %w", err)
	}
	s := &Store{
		dir:       dir,
		logger:    slog.Default(),
		now:       time.Now,
		summaries: cache,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the save directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+fileExt)
}

// LoadOrCreate returns the profile named name. Missing, unreadable or
// incompatible documents yield a fresh profile; errors are only logged.
func (s *Store) LoadOrCreate(name string) *Profile {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultPlayerName
	}
	summaries, stems := s.scan()
	for _, sum := range summaries {
		if strings.EqualFold(sum.PlayerName, name) {
			if p, ok := s.loadOrQuarantine(sum.ID); ok {
				return p
			}
			return s.fresh(name, sum.ID)
		}
	}

	stem := slugifyName(name)
	if _, taken := stems[stem]; taken {
		if _, readable := summaryByID(summaries, stem); !readable {
			// The slug's own file exists but could not be read.
			if p, ok := s.loadOrQuarantine(stem); ok {
				return p
			}
			return s.fresh(name, stem)
		}
		stem = uniqueStem(stem, stems)
	}
	return s.fresh(name, stem)
}

func summaryByID(summaries []Summary, id string) (Summary, bool) {
	for _, sum := range summaries {
		if sum.ID == id {
			return sum, true
		}
	}
	return Summary{}, false
}

func (s *Store) fresh(name, id string) *Profile {
	p := New(name, s.now())
	p.ID = id
	return p
}

// loadOrQuarantine loads id; unreadable documents are renamed aside.
func (s *Store) loadOrQuarantine(id string) (*Profile, bool) {
	p, err := s.load(id)
	if err == nil {
		return p, true
	}
	if errors.Is(err, os.ErrNotExist) {
		return nil, false
	}
	s.logger.Warn("profile unreadable, starting fresh", "profile", id, "err", err)
	src := s.path(id)
	dst := src + corruptExt
	if rerr := os.Rename(src, dst); rerr != nil {
		s.logger.Warn("failed to quarantine profile", "profile", id, "err", rerr)
	}
	s.summaries.Remove(id + fileExt)
	return nil, false
}

func (s *Store) load(id string) (*Profile, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		return nil, err
	}
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	if p.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported profile version %d", p.Version)
	}
	p.ID = id
	p.normalize()
	p.Achievements.recompute(s.points)
	return &p, nil
}

// Save writes the whole document, replacing the previous file.
func (s *Store) Save(p *Profile) error {
	if p.ID == "" {
		s.AssignID(p)
	}
	p.Version = FormatVersion
	p.Achievements.recompute(s.points)
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	tmpFile, err := os.CreateTemp(s.dir, ".profile-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp profile: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()
	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close profile: %w", err)
	}
	if err := os.Rename(tmpPath, s.path(p.ID)); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	s.summaries.Remove(p.ID + fileExt)
	return nil
}

// AssignID gives p a collision-free file stem derived from its name.
func (s *Store) AssignID(p *Profile) {
	_, stems := s.scan()
	p.ID = uniqueStem(slugifyName(p.PlayerName), stems)
}

// Delete removes the profile named name.
func (s *Store) Delete(name string) error {
	sum, err := s.Find(name)
	if err != nil {
		return err
	}
	if err := os.Remove(s.path(sum.ID)); err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	s.summaries.Remove(sum.ID + fileExt)
	return nil
}

// Find returns the stored profile matching name case-insensitively, or by
// its file stem. It reports ErrNotFound otherwise.
func (s *Store) Find(name string) (Summary, error) {
	name = strings.TrimSpace(name)
	summaries, _ := s.scan()
	for _, sum := range summaries {
		if strings.EqualFold(sum.PlayerName, name) || sum.ID == name {
			return sum, nil
		}
	}
	return Summary{}, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// List returns stored player names sorted alphabetically.
func (s *Store) List() ([]string, error) {
	summaries, err := s.Summaries()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(summaries))
	for _, sum := range summaries {
		names = append(names, sum.PlayerName)
	}
	sort.Strings(names)
	return names, nil
}

// Summaries returns readable profiles, most recently played first.
func (s *Store) Summaries() ([]Summary, error) {
	if _, err := os.Stat(s.dir); err != nil {
		return nil, fmt.Errorf("failed to read save dir: %w", err)
	}
	summaries, _ := s.scan()
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].LastPlayedAt.After(summaries[j].LastPlayedAt)
	})
	return summaries, nil
}

// Suggest returns the stored name closest to name, if one is close enough.
func (s *Store) Suggest(name string) (string, bool) {
	summaries, _ := s.scan()
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return "", false
	}
	best := ""
	bestDist := -1
	for _, sum := range summaries {
		candidate := strings.ToLower(sum.PlayerName)
		if candidate == needle {
			return "", false
		}
		dist := levenshtein.ComputeDistance(needle, candidate)
		if bestDist < 0 || dist < bestDist {
			best = sum.PlayerName
			bestDist = dist
		}
	}
	limit := len([]rune(needle)) / 3
	if limit < 2 {
		limit = 2
	}
	if bestDist < 0 || bestDist > limit {
		return "", false
	}
	return best, true
}

// scan reads summaries of all readable profiles and the set of taken stems.
func (s *Store) scan() ([]Summary, map[string]struct{}) {
	stems := map[string]struct{}{}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Warn("failed to list profiles", "dir", s.dir, "err", err)
		return nil, stems
	}
	var summaries []Summary
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, fileExt) {
			continue
		}
		stem := strings.TrimSuffix(name, fileExt)
		stems[stem] = struct{}{}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		sum, ok := s.summary(stem, info)
		if ok {
			summaries = append(summaries, sum)
		}
	}
	return summaries, stems
}

func (s *Store) summary(stem string, info os.FileInfo) (Summary, bool) {
	key := stem + fileExt
	if cached, ok := s.summaries.Get(key); ok {
		if cached.modTime.Equal(info.ModTime()) && cached.size == info.Size() {
			return cached.summary, true
		}
	}
	p, err := s.load(stem)
	if err != nil {
		s.summaries.Remove(key)
		return Summary{}, false
	}
	sum := Summary{
		ID:             stem,
		PlayerName:     p.PlayerName,
		LastPlayedAt:   p.LastPlayedAt,
		TotalQuestions: p.OverallStats.TotalQuestions,
		Accuracy:       p.OverallStats.Accuracy(),
		TotalPoints:    p.Achievements.TotalPoints,
		Unlocked:       p.Achievements.UnlockedCount(),
	}
	s.summaries.Add(key, cachedSummary{modTime: info.ModTime(), size: info.Size(), summary: sum})
	return sum, true
}

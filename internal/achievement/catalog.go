package achievement

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/mathrally/internal/model"
)

//go:embed catalog.toml
var defaultCatalog []byte

type catalogFile struct {
	Achievements []Definition `toml:"achievement"`
}

// Group is one gallery section.
type Group struct {
	Category     Category
	Achievements []Achievement
}

// Catalog owns the fixed achievement set and its runtime state.
// It is not safe for concurrent use.
type Catalog struct {
	now   func() time.Time
	order []string
	byID  map[string]*Achievement

	recent       []Achievement
	listeners    map[int]func(Achievement)
	nextListener int
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithClock overrides the time source used for unlock timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Catalog) {
		if now != nil {
			c.now = now
		}
	}
}

// LoadCatalog parses the embedded catalog.
func LoadCatalog(opts ...Option) (*Catalog, error) {
	return Parse(defaultCatalog, opts...)
}

// Parse builds a catalog from TOML data.
func Parse(data []byte, opts ...Option) (*Catalog, error) {
	var file catalogFile
	if _, err := toml.Decode(string(data), &file); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return New(file.Achievements, opts...)
}

// New builds a catalog from definitions after validating them.
func New(defs []Definition, opts ...Option) (*Catalog, error) {
	c := &Catalog{
		now:       time.Now,
		byID:      make(map[string]*Achievement, len(defs)),
		listeners: map[int]func(Achievement){},
	}
	for _, opt := range opts {
		opt(c)
	}
	for _, d := range defs {
		if err := validate(d); err != nil {
			return nil, err
		}
		if _, ok := c.byID[d.ID]; ok {
			return nil, fmt.Errorf("duplicate achievement id %q", d.ID)
		}
		c.byID[d.ID] = &Achievement{Definition: d}
		c.order = append(c.order, d.ID)
	}
	return c, nil
}

func validate(d Definition) error {
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("achievement with empty id")
	}
	if _, ok := rules[d.Rule]; !ok {
		return fmt.Errorf("achievement %q: unknown rule %q", d.ID, d.Rule)
	}
	if !d.Category.valid() {
		return fmt.Errorf("achievement %q: unknown category %q", d.ID, d.Category)
	}
	if d.Rarity.Rank() == 0 {
		return fmt.Errorf("achievement %q: unknown rarity %q", d.ID, d.Rarity)
	}
	if d.Target <= 0 {
		return fmt.Errorf("achievement %q: target must be > 0", d.ID)
	}
	if d.Points < 0 {
		return fmt.Errorf("achievement %q: points must be >= 0", d.ID)
	}
	switch d.Rule {
	case RuleSeriesStage:
		if d.Series.Rank() == 0 {
			return fmt.Errorf("achievement %q: unknown series %q", d.ID, d.Series)
		}
	case RuleOperationCorrect:
		if _, err := model.ParseOperation(string(d.Operation)); err != nil {
			return fmt.Errorf("achievement %q: %w", d.ID, err)
		}
	case RuleAccuracy:
		if d.Threshold <= 0 || d.Threshold > 100 {
			return fmt.Errorf("achievement %q: threshold must be in (0,100]", d.ID)
		}
	case RuleSpeed:
		if d.MaxSeconds <= 0 {
			return fmt.Errorf("achievement %q: max_seconds must be > 0", d.ID)
		}
	}
	return nil
}

// Check evaluates every locked achievement and returns the ones unlocked by
// this call. Unless full is set, achievements whose session trigger is false
// are skipped.
func (c *Catalog) Check(session, combined model.Stats, cfg model.GameConfiguration, full bool) []Achievement {
	var unlocked []Achievement
	for _, id := range c.order {
		a := c.byID[id]
		if a.Unlocked {
			continue
		}
		r := rules[a.Rule]
		if !full && !r.triggered(a.Definition, session, cfg) {
			continue
		}
		if r.met(a.Definition, combined) {
			if c.Unlock(id) {
				unlocked = append(unlocked, *a)
			}
			continue
		}
		c.UpdateProgress(id, r.metric(a.Definition, combined))
	}
	return unlocked
}

// Unlock marks an achievement unlocked and notifies listeners. It returns
// false for unknown or already unlocked ids.
func (c *Catalog) Unlock(id string) bool {
	a, ok := c.byID[id]
	if !ok || a.Unlocked {
		return false
	}
	a.Unlocked = true
	a.UnlockedAt = c.now()
	a.Progress = a.Target
	c.recent = append(c.recent, *a)
	for _, key := range c.listenerKeys() {
		c.listeners[key](*a)
	}
	return true
}

// UpdateProgress sets progress clamped to [0,target]. Unknown ids and
// unlocked achievements are left alone.
func (c *Catalog) UpdateProgress(id string, value int) {
	a, ok := c.byID[id]
	if !ok || a.Unlocked {
		return
	}
	if value < 0 {
		value = 0
	}
	if value > a.Target {
		value = a.Target
	}
	a.Progress = value
}

// OnUnlock registers fn for unlock notifications and returns a cancel func.
func (c *Catalog) OnUnlock(fn func(Achievement)) func() {
	key := c.nextListener
	c.nextListener++
	c.listeners[key] = fn
	return func() {
		delete(c.listeners, key)
	}
}

func (c *Catalog) listenerKeys() []int {
	keys := make([]int, 0, len(c.listeners))
	for k := range c.listeners {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// RecentUnlocks returns unlocks not yet drained.
func (c *Catalog) RecentUnlocks() []Achievement {
	return append([]Achievement(nil), c.recent...)
}

// DrainRecentUnlocks returns and clears the recent unlocks buffer.
func (c *Catalog) DrainRecentUnlocks() []Achievement {
	out := c.recent
	c.recent = nil
	return out
}

// Get returns one achievement by id.
func (c *Catalog) Get(id string) (Achievement, bool) {
	a, ok := c.byID[id]
	if !ok {
		return Achievement{}, false
	}
	return *a, true
}

// All returns every achievement in catalog order.
func (c *Catalog) All() []Achievement {
	out := make([]Achievement, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.byID[id])
	}
	return out
}

// Unlocked returns unlocked achievements in catalog order.
func (c *Catalog) Unlocked() []Achievement {
	var out []Achievement
	for _, id := range c.order {
		if a := c.byID[id]; a.Unlocked {
			out = append(out, *a)
		}
	}
	return out
}

// ByCategory groups achievements for the gallery, ordered by rarity then title.
func (c *Catalog) ByCategory() []Group {
	grouped := map[Category][]Achievement{}
	for _, a := range c.All() {
		grouped[a.Category] = append(grouped[a.Category], a)
	}
	var groups []Group
	for _, cat := range AllCategories() {
		items := grouped[cat]
		if len(items) == 0 {
			continue
		}
		sort.SliceStable(items, func(i, j int) bool {
			if items[i].Rarity.Rank() != items[j].Rarity.Rank() {
				return items[i].Rarity.Rank() < items[j].Rarity.Rank()
			}
			return items[i].Title < items[j].Title
		})
		groups = append(groups, Group{Category: cat, Achievements: items})
	}
	return groups
}

// Points returns the point value of id, or 0 when unknown.
func (c *Catalog) Points(id string) int {
	if a, ok := c.byID[id]; ok {
		return a.Points
	}
	return 0
}

// TotalPoints sums points over unlocked achievements.
func (c *Catalog) TotalPoints() int {
	total := 0
	for _, a := range c.byID {
		if a.Unlocked {
			total += a.Points
		}
	}
	return total
}

// CompletionPercentage returns the unlocked share of the catalog.
func (c *Catalog) CompletionPercentage() float64 {
	return model.AccuracyPercentage(len(c.Unlocked()), len(c.order))
}

// Restore applies persisted ledger state without notifying listeners.
// Unknown ids are ignored.
func (c *Catalog) Restore(unlocked map[string]bool, progress map[string]int, at map[string]time.Time) {
	for id, value := range progress {
		c.UpdateProgress(id, value)
	}
	for id, ok := range unlocked {
		a, known := c.byID[id]
		if !ok || !known {
			continue
		}
		a.Unlocked = true
		a.Progress = a.Target
		a.UnlockedAt = at[id]
	}
}

// Reset locks every achievement and clears progress and recent unlocks.
func (c *Catalog) Reset() {
	for _, a := range c.byID {
		a.Unlocked = false
		a.UnlockedAt = time.Time{}
		a.Progress = 0
	}
	c.recent = nil
}

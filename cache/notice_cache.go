package cache

import (
	"sort"
	"sync"
	"time"

	"github.com/goliatone/go-lawcast/core"
)

type Option func(*NoticeCache)

func WithClock(now func() time.Time) Option {
	return func(c *NoticeCache) {
		if now != nil {
			c.now = now
		}
	}
}

func WithLogger(logger core.Logger) Option {
	return func(c *NoticeCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

type NoticeCache struct {
	mu           sync.RWMutex
	snapshot     []core.Notice
	numbers      map[int64]struct{}
	maxSize      int
	defaultLimit int
	initialized  bool
	lastUpdated  *time.Time

	now    func() time.Time
	logger core.Logger
}

func New(maxSize int, defaultLimit int, opts ...Option) *NoticeCache {
	if maxSize <= 0 {
		maxSize = core.DefaultCacheMaxSize
	}
	if defaultLimit <= 0 {
		defaultLimit = core.DefaultCacheLimit
	}
	c := &NoticeCache{
		maxSize:      maxSize,
		defaultLimit: defaultLimit,
		numbers:      map[int64]struct{}{},
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func NewFromConfig(cfg core.CacheConfig, opts ...Option) *NoticeCache {
	return New(cfg.MaxSize, cfg.DefaultLimit, opts...)
}

// Initialize replaces the snapshot with notices and marks the cache ready.
// It never reports anything as new.
func (c *NoticeCache) Initialize(notices []core.Notice) {
	next := c.normalize(notices, nil)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.swap(next)
	c.initialized = true
	c.debug("notice cache initialized", len(next))
}

// Update merges notices into the snapshot. Cached entries win over incoming
// copies with the same number, so re-applying a batch changes nothing.
func (c *NoticeCache) Update(notices []core.Notice) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		c.swap(c.normalize(notices, nil))
		c.initialized = true
		c.debug("notice cache seeded by first update", len(c.snapshot))
		return
	}
	c.swap(c.normalize(notices, c.snapshot))
	c.debug("notice cache updated", len(c.snapshot))
}

// DiffNew returns the notices whose number is not in the snapshot, in input
// order. Before initialization it returns nothing. When the snapshot is full,
// notices older than its oldest entry are treated as already seen.
func (c *NoticeCache) DiffNew(notices []core.Notice) []core.Notice {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.initialized || len(notices) == 0 {
		return []core.Notice{}
	}
	full := len(c.snapshot) >= c.maxSize && len(c.snapshot) > 0
	var floor int64
	if full {
		floor = c.snapshot[len(c.snapshot)-1].Number
	}

	out := make([]core.Notice, 0)
	emitted := make(map[int64]struct{}, len(notices))
	for _, notice := range notices {
		if _, seen := c.numbers[notice.Number]; seen {
			continue
		}
		if full && notice.Number < floor {
			continue
		}
		if _, dup := emitted[notice.Number]; dup {
			continue
		}
		emitted[notice.Number] = struct{}{}
		out = append(out, notice.Clone())
	}
	return out
}

// Recent returns up to limit of the newest cached notices. A non-positive
// limit uses the configured default.
func (c *NoticeCache) Recent(limit int) []core.Notice {
	if limit <= 0 {
		limit = c.defaultLimit
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	if limit > len(c.snapshot) {
		limit = len(c.snapshot)
	}
	out := make([]core.Notice, 0, limit)
	for _, notice := range c.snapshot[:limit] {
		out = append(out, notice.Clone())
	}
	return out
}

func (c *NoticeCache) Info() core.CacheInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	info := core.CacheInfo{
		Size:        len(c.snapshot),
		MaxSize:     c.maxSize,
		Initialized: c.initialized,
	}
	if c.lastUpdated != nil {
		stamp := *c.lastUpdated
		info.LastUpdated = &stamp
	}
	return info
}

// Clear drops the snapshot and the ready flag.
func (c *NoticeCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = nil
	c.numbers = map[int64]struct{}{}
	c.initialized = false
	c.lastUpdated = nil
	c.debug("notice cache cleared", 0)
}

// normalize merges incoming into existing, keeping existing entries on ties,
// sorts descending and truncates to maxSize. Neither input is modified.
func (c *NoticeCache) normalize(incoming []core.Notice, existing []core.Notice) []core.Notice {
	merged := make([]core.Notice, 0, len(existing)+len(incoming))
	seen := make(map[int64]struct{}, len(existing)+len(incoming))
	for _, notice := range existing {
		seen[notice.Number] = struct{}{}
		merged = append(merged, notice)
	}
	for _, notice := range incoming {
		if _, ok := seen[notice.Number]; ok {
			continue
		}
		seen[notice.Number] = struct{}{}
		merged = append(merged, notice.Clone())
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Number > merged[j].Number
	})
	if len(merged) > c.maxSize {
		merged = merged[:c.maxSize:c.maxSize]
	}
	return merged
}

// swap must be called with mu held for writing.
func (c *NoticeCache) swap(next []core.Notice) {
	numbers := make(map[int64]struct{}, len(next))
	for _, notice := range next {
		numbers[notice.Number] = struct{}{}
	}
	c.snapshot = next
	c.numbers = numbers
	stamp := c.now()
	c.lastUpdated = &stamp
}

func (c *NoticeCache) debug(message string, size int) {
	if c.logger == nil {
		return
	}
	c.logger.Debug(message, "size", size, "max_size", c.maxSize)
}

var _ core.NoticeCache = (*NoticeCache)(nil)

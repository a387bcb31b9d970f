// Package bigcache is an off-heap, in-process byte backend built on
// allegro/bigcache. It suits large numbers of small entries where a Go map of
// []byte would put pressure on the garbage collector.
//
// bigcache is a cache: left to its defaults it expires and evicts entries.
// Store configures it so nothing ever expires and no size cap applies, so
// every Set stays visible until overwritten.
//
// bigcache never frees the bytes of an overwritten entry; they stay in its
// append-only queue until eviction, which is disabled here. Store counts those
// dead bytes and rebuilds the cache from its live entries once they exceed both
// Config.CompactAfter and the live bytes, so memory stays within a small
// multiple of the live data.
//
// bigcache indexes entries by a 64-bit hash of the key. Two distinct keys with
// colliding hashes share one slot: the later Set silently replaces the other key.
package bigcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/unkn0wn-root/kvstore"
	"github.com/unkn0wn-root/kvstore/internal/util"
)

// entryOverhead approximates bigcache's per-entry header plus queue framing.
const entryOverhead = 24

const defaultCompactAfter = 4 << 20

// neverExpire is far enough out that bigcache's lazy eviction of the oldest
// entry on insert never fires.
const neverExpire = 100 * 365 * 24 * time.Hour

// Config sizes the underlying bigcache. Zero values keep bigcache defaults.
type Config struct {
	Shards             int // power of two; 0 => 1024
	MaxEntriesInWindow int // initial capacity hint
	MaxEntrySize       int // initial per-entry size hint, bytes
	// CompactAfter is the minimum of dead (overwritten) bytes before a rebuild.
	// 0 => 4 MiB.
	CompactAfter int
	Logger       kvstore.Logger
}

// Store implements kvstore.Store[[]byte, []byte].
// bigcache copies on Set and Get, so callers never share memory with it.
type Store struct {
	mu     sync.RWMutex // Set holds it exclusively to read-and-replace atomically
	c      *bc.BigCache
	conf   bc.Config
	log    kvstore.Logger
	closed bool

	compactAfter int
	live, dead   int // approximate bytes held by current and overwritten entries
	compactions  int
}

var _ kvstore.Store[[]byte, []byte] = (*Store)(nil)

func New(ctx context.Context, cfg Config) (*Store, error) {
	conf := bc.DefaultConfig(neverExpire)
	conf.CleanWindow = 0
	conf.HardMaxCacheSize = 0
	if cfg.Shards > 0 {
		conf.Shards = cfg.Shards
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	log := kvstore.WithFields(util.Coalesce[kvstore.Logger](cfg.Logger, kvstore.NopLogger{}),
		kvstore.Fields{"component": "bigcache"})
	conf.Verbose = cfg.Logger != nil
	conf.Logger = printfLogger{log}

	c, err := bc.New(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("bigcache: %w", err)
	}
	return &Store{
		c:            c,
		conf:         conf,
		log:          log,
		compactAfter: util.Coalesce(cfg.CompactAfter, defaultCompactAfter),
	}, nil
}

func (s *Store) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, kvstore.Errorf("get", err, "context done")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, false, kvstore.Errorf("get", kvstore.ErrClosed, "bigcache store")
	}
	return s.get(key)
}

func (s *Store) Set(ctx context.Context, key, val []byte) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, kvstore.Errorf("set", err, "context done")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false, kvstore.Errorf("set", kvstore.ErrClosed, "bigcache store")
	}
	prev, ok, err := s.get(key)
	if err != nil {
		return nil, false, err
	}
	if err := s.c.Set(string(key), val); err != nil {
		s.log.Error("bigcache set failed", kvstore.Fields{"len": len(val), "err": err})
		return nil, false, kvstore.Errorf("set", err, "bigcache")
	}
	s.live += entrySize(key, val)
	if ok {
		old := entrySize(key, prev)
		s.live -= old
		s.dead += old
	}
	if s.dead >= s.compactAfter && s.dead >= s.live {
		s.compact()
	}
	return prev, ok, nil
}

func entrySize(key, val []byte) int { return len(key) + len(val) + entryOverhead }

// compact copies live entries into a fresh bigcache and closes the old one,
// releasing the queue space held by overwritten entries. Requires s.mu held
// exclusively. On failure the old cache is kept and compaction is retried on a
// later Set.
func (s *Store) compact() {
	// CleanWindow is 0, so bigcache starts no goroutine bound to this context.
	fresh, err := bc.New(context.Background(), s.conf)
	if err != nil {
		s.log.Error("bigcache compaction failed", kvstore.Fields{"err": err})
		return
	}
	live := 0
	it := s.c.Iterator()
	for it.SetNext() {
		e, err := it.Value()
		if err == nil {
			err = fresh.Set(e.Key(), e.Value())
		}
		if err != nil {
			_ = fresh.Close()
			s.log.Error("bigcache compaction failed", kvstore.Fields{"err": err})
			return
		}
		live += len(e.Key()) + len(e.Value()) + entryOverhead
	}
	s.log.Debug("bigcache compacted", kvstore.Fields{"dead": s.dead, "live": live})
	_ = s.c.Close()
	s.c = fresh
	s.live, s.dead = live, 0
	s.compactions++
}

// get requires s.mu.
func (s *Store) get(key []byte) ([]byte, bool, error) {
	b, err := s.c.Get(string(key))
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, kvstore.Errorf("get", err, "bigcache")
	}
	return b, true, nil
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0
	}
	return s.c.Len()
}

// Close releases bigcache's memory. Safe to call multiple times.
func (s *Store) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.c.Close()
}

// printfLogger routes bigcache's verbose output into a kvstore.Logger.
type printfLogger struct{ l kvstore.Logger }

func (p printfLogger) Printf(format string, v ...interface{}) {
	p.l.Debug("bigcache: "+fmt.Sprintf(format, v...), nil)
}

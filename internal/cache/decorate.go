package cache

import "time"

// Eviction names the `<cache eviction="...">` strategies a mapper XML file
// can select; it drives which innermost bounded decorator wraps Perpetual.
type Eviction string

const (
	EvictionLru       Eviction = "LRU"
	EvictionFifo      Eviction = "FIFO"
	EvictionSoft      Eviction = "SOFT"
	EvictionWeak      Eviction = "WEAK"
	EvictionUnbounded Eviction = ""
)

// Config mirrors the attributes a `<cache>` element carries in mapper XML:
// type/eviction/flushInterval/size/readOnly/blocking.
type Config struct {
	ID            string
	Eviction      Eviction
	Size          int
	FlushInterval time.Duration
	Blocking      bool
	Serialize     bool
	Logging       bool
	OnWeakWarn    func()
}

const defaultBoundedSize = 1024

// Build assembles a cache's decorator stack in the mandated outer-to-inner
// order: Blocking? → Synchronized → Logging? → Serialized? →
// Scheduled? → Lru/Fifo/Soft/Weak → Perpetual. Inner eviction never
// bypasses the outer serialization/locking layers.
func Build(cfg Config) Cache {
	size := cfg.Size
	if size <= 0 {
		size = defaultBoundedSize
	}

	var c Cache = NewPerpetual(cfg.ID)

	switch cfg.Eviction {
	case EvictionLru:
		c = NewLru(c, size)
	case EvictionFifo:
		c = NewFifo(c, size)
	case EvictionSoft:
		c = NewSoft(c, size)
	case EvictionWeak:
		c = NewWeak(c, cfg.OnWeakWarn)
	default:
		c = NewLru(c, size)
	}

	if cfg.FlushInterval > 0 {
		c = NewScheduled(c, cfg.FlushInterval)
	}
	if cfg.Serialize {
		c = NewSerialized(c)
	}
	if cfg.Logging {
		c = NewLogging(c)
	}
	c = NewSynchronized(c)
	if cfg.Blocking {
		c = NewBlocking(c)
	}
	return c
}

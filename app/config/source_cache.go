package config

import (
	"fmt"
	"sync"
)

// SourceCache holds the loaded range sources behind a lock so handlers
// can look sources up while a reload replaces the set.
type SourceCache struct {
	loader *Loader
	cache  map[string]*RangeSource
	mu     sync.RWMutex
}

func NewSourceCache(sourcesDir string) *SourceCache {
	return &SourceCache{
		loader: NewLoader(sourcesDir),
		cache:  make(map[string]*RangeSource),
	}
}

// Run loads the source definitions from disk, replacing the cached set
// on success and leaving it untouched on failure.
func (sc *SourceCache) Run() error {
	sources, err := sc.loader.LoadAll()
	if err != nil {
		return err
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.cache = sources

	return nil
}

func (sc *SourceCache) GetSource(name string) (*RangeSource, error) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	source, ok := sc.cache[name]
	if !ok {
		return nil, fmt.Errorf("range source with name '%s' not found", name)
	}
	return source, nil
}

func (sc *SourceCache) GetSources() map[string]*RangeSource {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	sourcesCopy := make(map[string]*RangeSource, len(sc.cache))
	for k, v := range sc.cache {
		sourcesCopy[k] = v
	}
	return sourcesCopy
}

func (sc *SourceCache) GetSourceCount() int {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return len(sc.cache)
}

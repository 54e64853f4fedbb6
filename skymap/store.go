package skymap

import (
	"fmt"
	"sync"
)

// Store is an in-memory cache of loaded skymap generations, keyed by
// network and site. Loading a site's calibration series touches the disk
// (and possibly the network) once; later lookups reuse the parsed grids.
// Safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	maps map[string][]*Skymap
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{maps: make(map[string][]*Skymap)}
}

func key(network, location string) string {
	return network + "/" + location
}

// Get returns the cached generations for a site, or nil.
func (s *Store) Get(network, location string) []*Skymap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maps[key(network, location)]
}

// GetOrLoad returns the cached generations for a site, calling load to fill
// the cache on a miss. Concurrent callers for the same site load once
// (double-checked under the write lock).
func (s *Store) GetOrLoad(network, location string, load func() ([]*Skymap, error)) ([]*Skymap, error) {
	if maps := s.Get(network, location); maps != nil {
		return maps, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(network, location)
	if maps := s.maps[k]; maps != nil {
		return maps, nil
	}

	maps, err := load()
	if err != nil {
		return nil, fmt.Errorf("loading skymaps for %s: %w", k, err)
	}
	s.maps[k] = maps
	return maps, nil
}

// Invalidate drops a site's cached generations, forcing a reload on the
// next GetOrLoad. Used after a redownload.
func (s *Store) Invalidate(network, location string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.maps, key(network, location))
}

package chain

import (
	"fmt"
	"sort"
	"sync"

	"wallet-custody/pkg/errno"
)

// Registry 链名到 Network 的映射
type Registry struct {
	networks map[ID]Network
	mu       sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		networks: make(map[ID]Network),
	}
}

// Register adds a network to registry
func (r *Registry) Register(n Network) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.networks[n.ID()] = n
}

// Get retrieves a network by chain id
func (r *Registry) Get(id ID) (Network, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.networks[id]
	if !ok {
		return nil, errno.ErrUnsupportedChain.WithMessage(fmt.Sprintf("chain not supported: %s", id))
	}
	return n, nil
}

// List returns all registered chain ids, sorted
func (r *Registry) List() []ID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]ID, 0, len(r.networks))
	for id := range r.networks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

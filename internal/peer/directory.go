// Package peer coordinates the two-question handshake with friends'
// personality agents: one question about personality, one about gift
// preferences, then a product search seeded with the answers. Every
// outbound question carries a correlation ID, and replies are matched back
// to their question by that ID alone.
package peer

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ParthPatel00/SantAI/internal/models"
)

// Directory maps friend names to the addresses of their personality agents.
type Directory struct {
	mu        sync.RWMutex
	addresses map[string]string
}

// NewDirectory creates a friend directory from a name to address map.
// Names are matched case-insensitively.
func NewDirectory(addresses map[string]string) *Directory {
	normalized := make(map[string]string, len(addresses))
	for name, addr := range addresses {
		normalized[strings.ToLower(strings.TrimSpace(name))] = addr
	}
	return &Directory{addresses: normalized}
}

// Register adds or replaces a friend's agent address.
func (d *Directory) Register(name, address string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.addresses[strings.ToLower(strings.TrimSpace(name))] = address
}

// Lookup resolves a friend name to an agent address. Unknown names return
// models.ErrUnknownFriend wrapped with the supported names so callers can
// tell the user who is reachable.
func (d *Directory) Lookup(name string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	addr, ok := d.addresses[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("%w: %q (known friends: %s)", models.ErrUnknownFriend, name, strings.Join(d.namesLocked(), ", "))
	}
	return addr, nil
}

// Names returns the known friend names in sorted order.
func (d *Directory) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.namesLocked()
}

func (d *Directory) namesLocked() []string {
	names := make([]string, 0, len(d.addresses))
	for name := range d.addresses {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

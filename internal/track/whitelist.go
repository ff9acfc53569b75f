package track

import "sync"

// Whitelist is the shared set of ICAO addresses seen in self-identifying
// frames (DF11/DF17/DF18 with a clean checksum). Masked-parity recoveries
// produce a 24-bit candidate no matter what was received; membership here
// is the only defense against noise injecting phantom aircraft.
type Whitelist struct {
	mu    sync.RWMutex
	addrs map[uint32]struct{}
}

// NewWhitelist creates an empty address set.
func NewWhitelist() *Whitelist {
	return &Whitelist{addrs: make(map[uint32]struct{})}
}

// Add records an address seen in clear.
func (w *Whitelist) Add(icao uint32) {
	w.mu.Lock()
	w.addrs[icao] = struct{}{}
	w.mu.Unlock()
}

// Contains reports whether the address has been seen in clear.
func (w *Whitelist) Contains(icao uint32) bool {
	w.mu.RLock()
	_, ok := w.addrs[icao]
	w.mu.RUnlock()
	return ok
}

// Len returns the number of known addresses.
func (w *Whitelist) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.addrs)
}

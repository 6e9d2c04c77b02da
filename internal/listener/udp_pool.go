package listener

import "sync"

// udpPool hands out ports from settings.udp.base_port/port_count
// round-robin, one per accepted client (spec.md §4.3, §4.6 step 3).
type udpPool struct {
	mu   sync.Mutex
	base uint16
	n    uint16
	next uint16
}

func newUDPPool(base, count uint16) *udpPool {
	return &udpPool{base: base, n: count}
}

// allocate returns the next port in the round-robin pool. Callers still
// need to handle the port being in use (relayclient.NewUDPConn fails)
// since this pool tracks no live-binding state of its own.
func (p *udpPool) allocate() uint16 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.n == 0 {
		return p.base
	}
	port := p.base + p.next
	p.next = (p.next + 1) % p.n
	return port
}

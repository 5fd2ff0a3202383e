package directory

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Directory is the PlcInfo store (spec.md 4.F): NAD -> PlcInfo, with a
// background cleaner that expires stale AUTO/PUSH entries.
type Directory struct {
	log      *log.Entry
	lifetime time.Duration

	mu      sync.RWMutex
	byNad   map[int]PlcInfo
}

// NewDirectory creates a Directory. lifetime bounds how long an AUTO or
// PUSH entry survives without being refreshed; STATIC and PROXY entries
// are exempt.
func NewDirectory(lifetime time.Duration) *Directory {
	return &Directory{
		log:      log.WithField("component", "directory"),
		lifetime: lifetime,
		byNad:    make(map[int]PlcInfo),
	}
}

// Get returns the known entry for nad, if any.
func (d *Directory) Get(nad int) (PlcInfo, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.byNad[nad]
	return p, ok
}

// All returns a snapshot of every known entry, keyed by NAD.
func (d *Directory) All() map[int]PlcInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[int]PlcInfo, len(d.byNad))
	for k, v := range d.byNad {
		out[k] = v
	}
	return out
}

// PutStatic installs a configured (never-expiring) entry, as read from the
// [c<n>] sections of the gateway's INI configuration.
func (d *Directory) PutStatic(nad int, ip string, port int, password *int) {
	d.put(PlcInfo{
		Created:        time.Now(),
		Origin:         OriginStatic,
		Nad:            nad,
		IP:             strPtr(ip),
		Port:           normalizePort(port),
		Password:       password,
		LastUpdateTime: time.Now(),
	})
}

// PutProxy installs a never-expiring proxied entry (a controller reached
// through another gateway acting as a relay).
func (d *Directory) PutProxy(nad int, ip string, port int) {
	d.put(PlcInfo{
		Created:        time.Now(),
		Origin:         OriginProxy,
		Nad:            nad,
		IP:             strPtr(ip),
		Port:           normalizePort(port),
		LastUpdateTime: time.Now(),
	})
}

// Learn records or refreshes a dynamically discovered entry — from
// detection (AUTO) or an unsolicited push frame (PUSH). A STATIC or PROXY
// entry for the same NAD is never downgraded by Learn.
func (d *Directory) Learn(origin Origin, nad int, ip string, port int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if existing, ok := d.byNad[nad]; ok && (existing.Origin == OriginStatic || existing.Origin == OriginProxy) {
		existing.LastUpdateTime = time.Now()
		d.byNad[nad] = existing
		return
	}

	d.byNad[nad] = PlcInfo{
		Created:        time.Now(),
		Origin:         origin,
		Nad:            nad,
		IP:             strPtr(ip),
		Port:           normalizePort(port),
		LastUpdateTime: time.Now(),
	}
	d.log.Infof("learned c%d at %s:%d (%s)", nad, ip, normalizePort(port), origin)
}

// UpdateProgramDatetime records the program-change timestamp learned from a
// controller's plc_head (spec.md 4.I), refreshing LastUpdateTime too.
func (d *Directory) UpdateProgramDatetime(nad int, programDatetime time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.byNad[nad]
	if !ok {
		return
	}
	p.ProgramDatetime = &programDatetime
	p.LastUpdateTime = time.Now()
	d.byNad[nad] = p
}

// Touch refreshes LastUpdateTime without altering anything else — called on
// any successful exchange with the controller, so AUTO/PUSH entries survive
// as long as they remain reachable.
func (d *Directory) Touch(nad int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.byNad[nad]
	if !ok {
		return
	}
	p.LastUpdateTime = time.Now()
	d.byNad[nad] = p
}

// Remove deletes an entry unconditionally.
func (d *Directory) Remove(nad int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.byNad, nad)
}

func (d *Directory) put(p PlcInfo) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byNad[p.Nad] = p
}

// normalizePort maps the "unknown port" sentinel 0 onto the ABUS default,
// matching the original's port-or-default convention for partially known
// entries. Only the port is looked at: an entry at address 0.0.0.0 is
// treated like any other, so a port of 0 becomes the default there too.
func normalizePort(port int) int {
	if port == 0 {
		return DefaultPort
	}
	return port
}

// expirable reports whether origin is subject to TTL-based eviction.
func (o Origin) expirable() bool {
	return o == OriginAuto || o == OriginPush
}

// RunCleaner evicts expired AUTO/PUSH entries every interval, until ctx-like
// stop channel is closed. It blocks; call it from its own goroutine.
func (d *Directory) RunCleaner(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			d.sweep()
		}
	}
}

func (d *Directory) sweep() {
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	for nad, p := range d.byNad {
		if !p.Origin.expirable() {
			continue
		}
		if now.Sub(p.LastUpdateTime) > d.lifetime {
			delete(d.byNad, nad)
			d.log.Infof("expired c%d (%s, idle %s)", nad, p.Origin, now.Sub(p.LastUpdateTime))
		}
	}
}

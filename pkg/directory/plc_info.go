// Package directory implements the PLC directory (spec.md 4.F): the
// NAD -> PlcInfo mapping with static/auto/push/proxy origins, TTL-based
// expiry, and the per-PLC activity counters that back the c<n>.sys.* HTTP
// keys (SPEC_FULL.md supplemented feature 3).
package directory

import (
	"fmt"
	"time"
)

// Origin identifies how a PlcInfo entry came to exist.
type Origin string

const (
	OriginStatic Origin = "STATIC"
	OriginPush   Origin = "PUSH"
	OriginAuto   Origin = "AUTO"
	OriginProxy  Origin = "PROXY"
)

// DefaultPort is the ABUS broadcast / listening port (spec.md 6).
const DefaultPort = 8442

// PlcInfo is one known controller entry. STATIC and PROXY entries never
// expire; AUTO and PUSH expire after a configured lifetime unless
// refreshed (spec.md's data model).
type PlcInfo struct {
	Created         time.Time
	Origin          Origin
	Nad             int
	IP              *string
	Port            int
	Password        *int
	ProgramDatetime *time.Time
	LastUpdateTime  time.Time
}

// HasIP reports whether this entry has a resolved controller address.
func (p PlcInfo) HasIP() bool {
	return p.IP != nil
}

// HasPassword reports whether this entry has a configured password.
func (p PlcInfo) HasPassword() bool {
	return p.Password != nil
}

func (p PlcInfo) String() string {
	ip := "?"
	if p.HasIP() {
		ip = *p.IP
	}
	s := fmt.Sprintf("%s c%d %s:%d", p.Origin, p.Nad, ip, p.Port)
	if p.HasPassword() {
		s += fmt.Sprintf(" password=%d", *p.Password)
	}
	if p.ProgramDatetime != nil {
		s += fmt.Sprintf(" program=%s", p.ProgramDatetime.Format(time.RFC3339))
	}
	return s
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

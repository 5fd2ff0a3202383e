// Package transport implements the two physical endpoints a frame can
// arrive on or leave by (spec.md 4.B UDP endpoint, 4.C CAN endpoint),
// behind a single Endpoint interface so the Exchanger and Router (pkg/exchange)
// never need to know which wire a PlcInfo entry resolves to.
package transport

import "github.com/cybroplc/abus-gateway/pkg/abus"

// Endpoint is the sending/receiving half of a physical transport. Both the
// UDP and CAN endpoints implement it; higher layers depend only on this.
type Endpoint interface {
	// Send transmits an already-encoded ABUS message to addr.
	Send(addr abus.Addr, frame []byte) error
	// Subscribe registers the single frame handler for inbound traffic.
	Subscribe(handler FrameHandler)
	// Start begins listening; it returns once listening has started or
	// failed, and keeps running until Close is called.
	Start() error
	// Close releases the underlying socket/bus.
	Close() error
}

// FrameHandler receives decoded-ready raw bytes plus the address they
// arrived from.
type FrameHandler interface {
	HandleFrame(addr abus.Addr, data []byte)
}

// FrameHandlerFunc adapts a plain function to FrameHandler.
type FrameHandlerFunc func(addr abus.Addr, data []byte)

func (f FrameHandlerFunc) HandleFrame(addr abus.Addr, data []byte) {
	f(addr, data)
}

package exchange

import (
	log "github.com/sirupsen/logrus"

	"github.com/cybroplc/abus-gateway/pkg/abus"
	"github.com/cybroplc/abus-gateway/pkg/transport"
)

// PushHandler processes an unsolicited push frame (spec.md 4.N).
type PushHandler interface {
	HandlePush(msg abus.Message)
}

// SocketHandler processes a push-socket event frame (spec.md 4.M).
type SocketHandler interface {
	HandleSocket(msg abus.Message)
}

// Router dispatches inbound frames (spec.md 4.E): a push-classified frame
// goes to the push handler, a socket-classified frame goes to the socket
// handler, and anything else is handed to the Exchanger registered for its
// to_nad, falling back to discarding unmatched traffic.
type Router struct {
	log *log.Entry

	push   PushHandler
	socket SocketHandler

	byNad map[int]*Exchanger
}

// NewRouter creates an empty Router. Register exchangers with RegisterNad
// before calling HandleFrame.
func NewRouter(push PushHandler, socket SocketHandler) *Router {
	return &Router{
		log:   log.WithField("component", "router"),
		push:  push,
		socket: socket,
		byNad: make(map[int]*Exchanger),
	}
}

// RegisterNad associates an Exchanger with the NAD it serves responses for.
func (r *Router) RegisterNad(nad int, exchanger *Exchanger) {
	r.byNad[nad] = exchanger
}

// HandleFrame implements transport.FrameHandler: it decodes the frame,
// classifies it, and dispatches to the right handler.
func (r *Router) HandleFrame(addr abus.Addr, data []byte) {
	msg, err := abus.FromBytes(data, addr)
	if err != nil {
		r.log.WithError(err).Warnf("dropping malformed frame from %s", addr)
		return
	}
	r.Route(msg)
}

var _ transport.FrameHandler = (*Router)(nil)

// Route dispatches an already-decoded message. Exported separately from
// HandleFrame so CAN/UDP endpoints that already reassembled a message (or
// tests) can bypass the byte-decoding step.
func (r *Router) Route(msg abus.Message) {
	switch {
	case msg.IsPush():
		if r.push != nil {
			r.push.HandlePush(msg)
		}
	case msg.IsSocket():
		if r.socket != nil {
			r.socket.HandleSocket(msg)
		}
	default:
		exchanger, ok := r.byNad[int(msg.ToNad)]
		if !ok {
			r.log.Debugf("no exchanger registered for nad %d, dropping %s", msg.ToNad, msg)
			return
		}
		if !exchanger.Deliver(msg) {
			r.log.Debugf("no matching in-flight request for %s", msg)
		}
	}
}

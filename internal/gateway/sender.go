// Package gateway wires the gateway's independently-built packages
// (transport, exchange, directory, detection, plcclient, alc, plccache,
// datalogger, rw, socket, push, metrics, httpapi) into one running
// process. It holds no protocol logic of its own — only construction
// order and the glue interfaces the packages expect of each other.
package gateway

import (
	"fmt"

	"github.com/cybroplc/abus-gateway/pkg/abus"
	"github.com/cybroplc/abus-gateway/pkg/transport"
)

// abusSender multiplexes outbound frames across the UDP and CAN
// endpoints by address, so a single Exchanger (or the detection/push
// services) can send to either kind of destination without knowing which
// one is live. Grounded on abus_transceiver.py's AbusTransceiver.send,
// which picks _send_via_iex for the ('0.0.0.0', 0) CAN sentinel address
// and _send_via_udp otherwise, each guarded by its enabled flag.
type abusSender struct {
	udp transport.Endpoint
	can transport.Endpoint
}

func (s *abusSender) Send(addr abus.Addr, frame []byte) error {
	if addr.IsCAN() {
		if s.can == nil {
			return fmt.Errorf("gateway: CAN endpoint not enabled, cannot send to %s", addr)
		}
		return s.can.Send(addr, frame)
	}
	if s.udp == nil {
		return fmt.Errorf("gateway: UDP endpoint not enabled, cannot send to %s", addr)
	}
	return s.udp.Send(addr, frame)
}

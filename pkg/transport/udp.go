package transport

import (
	"fmt"
	"net"

	log "github.com/sirupsen/logrus"
	"github.com/VictoriaMetrics/metrics"

	"github.com/cybroplc/abus-gateway/pkg/abus"
)

// UDPEndpoint is the ETH transport (spec.md 4.B): a single UDP socket bound
// to a local port, used both to unicast to known controllers and to
// broadcast PING frames during detection.
type UDPEndpoint struct {
	localAddr   *net.UDPAddr
	broadcastIP string

	conn    *net.UDPConn
	handler FrameHandler

	rxCounter *metrics.Counter
	txCounter *metrics.Counter
	txErrors  *metrics.Counter
}

// NewUDPEndpoint creates a UDP endpoint bound to port on every local
// interface, broadcasting to broadcastIP when Send is called with
// abus.Addr{IP: "255.255.255.255"} or an equivalent subnet broadcast
// address.
func NewUDPEndpoint(port int, broadcastIP string) *UDPEndpoint {
	return &UDPEndpoint{
		localAddr:   &net.UDPAddr{Port: port},
		broadcastIP: broadcastIP,
		rxCounter:   metrics.NewCounter(`abus_udp_frames_total{direction="rx"}`),
		txCounter:   metrics.NewCounter(`abus_udp_frames_total{direction="tx"}`),
		txErrors:    metrics.NewCounter(`abus_udp_send_errors_total{transport="udp"}`),
	}
}

// Start opens the socket and begins a background read loop.
func (u *UDPEndpoint) Start() error {
	conn, err := net.ListenUDP("udp4", u.localAddr)
	if err != nil {
		return fmt.Errorf("transport: udp listen on %v: %w", u.localAddr, err)
	}
	if err := conn.SetWriteBuffer(1 << 20); err != nil {
		log.Warnf("[UDP] failed to grow write buffer: %v", err)
	}
	u.conn = conn

	go u.readLoop()
	log.Infof("[UDP] listening on %v", conn.LocalAddr())
	return nil
}

// Close closes the socket, unblocking the read loop.
func (u *UDPEndpoint) Close() error {
	if u.conn == nil {
		return nil
	}
	return u.conn.Close()
}

// Subscribe registers the single inbound frame handler.
func (u *UDPEndpoint) Subscribe(handler FrameHandler) {
	u.handler = handler
}

// Send transmits data to addr. Sending to an empty/zero IP is rejected, as
// the caller should have resolved the destination via the directory or
// detection service first.
func (u *UDPEndpoint) Send(addr abus.Addr, data []byte) error {
	if addr.IP == "" {
		u.txErrors.Inc()
		return fmt.Errorf("transport: udp send: missing destination ip")
	}

	dst := &net.UDPAddr{IP: net.ParseIP(addr.IP), Port: addr.Port}
	if _, err := u.conn.WriteToUDP(data, dst); err != nil {
		u.txErrors.Inc()
		return fmt.Errorf("transport: udp send to %v: %w", dst, err)
	}
	u.txCounter.Inc()
	return nil
}

// Broadcast transmits data to the configured broadcast address, used by
// the detection service to locate a controller whose IP is unknown
// (spec.md 4.G).
func (u *UDPEndpoint) Broadcast(port int, data []byte) error {
	return u.Send(abus.Addr{IP: u.broadcastIP, Port: port}, data)
}

func (u *UDPEndpoint) readLoop() {
	buf := make([]byte, 2048)
	localIP := localAddrsSet()

	for {
		n, from, err := u.conn.ReadFromUDP(buf)
		if err != nil {
			log.Debugf("[UDP] read loop stopping: %v", err)
			return
		}

		// Discard frames the gateway sent to itself via broadcast.
		if localIP[from.IP.String()] {
			continue
		}

		u.rxCounter.Inc()
		if u.handler == nil {
			continue
		}

		frame := make([]byte, n)
		copy(frame, buf[:n])
		u.handler.HandleFrame(abus.Addr{IP: from.IP.String(), Port: from.Port}, frame)
	}
}

func localAddrsSet() map[string]bool {
	set := make(map[string]bool)
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return set
	}
	for _, a := range addrs {
		if ipNet, ok := a.(*net.IPNet); ok {
			set[ipNet.IP.String()] = true
		}
	}
	return set
}

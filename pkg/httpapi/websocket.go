package httpapi

import (
	"bufio"
	"crypto/sha1"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/rs/xid"
)

// websocketAcceptGUID is RFC 6455's fixed handshake constant.
const websocketAcceptGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

// Opcodes this gateway needs to recognize; anything else is ignored per
// spec.md §6 ("all other frames are ignored").
const (
	opContinuation = 0x0
	opText         = 0x1
	opBinary       = 0x2
	opClose        = 0x8
	opPing         = 0x9
	opPong         = 0xA
)

// isWebSocketUpgrade reports whether r asks to upgrade to WebSocket,
// grounded on spec.md §6's "upgrade on Connection: Upgrade".
func isWebSocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket") &&
		headerContainsToken(r.Header.Get("Connection"), "upgrade")
}

func headerContainsToken(header, token string) bool {
	for _, part := range strings.Split(header, ",") {
		if strings.EqualFold(strings.TrimSpace(part), token) {
			return true
		}
	}
	return false
}

func acceptKey(clientKey string) string {
	sum := sha1.Sum([]byte(clientKey + websocketAcceptGUID))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// Hub fans broadcast XML documents out to every connected WebSocket
// subscriber. It implements pkg/socket.Broadcaster. Grounded on
// socket_service.py's send_client_message_handler, reworked as an explicit
// subscriber registry since the original delegates fan-out to its web
// framework.
type Hub struct {
	mu          sync.Mutex
	subscribers map[string]*wsConn
	log         *log.Entry
}

// NewHub builds an empty Hub.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]*wsConn),
		log:         log.WithField("component", "websocket"),
	}
}

// Broadcast implements pkg/socket.Broadcaster: it writes xmlDoc as a text
// frame to every currently connected subscriber, dropping (and
// unregistering) any connection whose write fails.
func (h *Hub) Broadcast(xmlDoc []byte) {
	h.mu.Lock()
	conns := make([]*wsConn, 0, len(h.subscribers))
	for _, c := range h.subscribers {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		if err := c.writeText(xmlDoc); err != nil {
			h.remove(c.id)
		}
	}
}

func (h *Hub) add(c *wsConn) {
	h.mu.Lock()
	h.subscribers[c.id] = c
	h.mu.Unlock()
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	c, ok := h.subscribers[id]
	delete(h.subscribers, id)
	h.mu.Unlock()
	if ok {
		c.close()
	}
}

// Serve upgrades r/w to a WebSocket connection, registers it with the hub,
// and blocks reading client frames (to detect CLOSE, answer PING, and
// reject unmasked frames) until the connection ends. Grounded on spec.md
// §6's literal RFC 6455 subset; no pack example wires a WebSocket library
// (confirmed by inspecting every example repo's go.mod), so this hand-rolls
// the handshake and minimal framing the spec calls for.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) error {
	key := r.Header.Get("Sec-WebSocket-Key")
	if key == "" {
		return errors.New("httpapi: missing Sec-WebSocket-Key")
	}

	hijacker, ok := w.(http.Hijacker)
	if !ok {
		return errors.New("httpapi: response writer does not support hijacking")
	}
	conn, rw, err := hijacker.Hijack()
	if err != nil {
		return err
	}

	response := "HTTP/1.1 101 Switching Protocols\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Accept: " + acceptKey(key) + "\r\n\r\n"
	if _, err := rw.WriteString(response); err != nil {
		conn.Close()
		return err
	}
	if err := rw.Flush(); err != nil {
		conn.Close()
		return err
	}

	c := &wsConn{id: xid.New().String(), conn: conn, w: rw.Writer}
	h.add(c)
	h.log.Debugf("websocket client connected: %s", c.id)

	c.readLoop(h)
	h.remove(c.id)
	h.log.Debugf("websocket client disconnected: %s", c.id)
	return nil
}

// wsConn is one accepted client connection.
type wsConn struct {
	id       string
	conn     net.Conn
	w        *bufio.Writer
	writeMux sync.Mutex
}

func (c *wsConn) close() {
	c.conn.Close()
}

func (c *wsConn) writeText(payload []byte) error {
	return c.writeFrame(opText, payload)
}

// writeFrame writes an unmasked server frame, grounded on spec.md §6's
// "server frames are unmasked".
func (c *wsConn) writeFrame(opcode byte, payload []byte) error {
	c.writeMux.Lock()
	defer c.writeMux.Unlock()

	header := make([]byte, 0, 10)
	header = append(header, 0x80|opcode)

	n := len(payload)
	switch {
	case n <= 125:
		header = append(header, byte(n))
	case n <= 0xFFFF:
		header = append(header, 126)
		var ext [2]byte
		binary.BigEndian.PutUint16(ext[:], uint16(n))
		header = append(header, ext[:]...)
	default:
		header = append(header, 127)
		var ext [8]byte
		binary.BigEndian.PutUint64(ext[:], uint64(n))
		header = append(header, ext[:]...)
	}

	if _, err := c.w.Write(header); err != nil {
		return err
	}
	if _, err := c.w.Write(payload); err != nil {
		return err
	}
	return c.w.Flush()
}

// readLoop reads client frames until the connection closes or a masking
// violation is observed, answering PING with PONG and CLOSE by closing in
// turn. All other opcodes are ignored per spec.md §6.
func (c *wsConn) readLoop(h *Hub) {
	reader := bufio.NewReader(c.conn)
	for {
		opcode, payload, err := readFrame(reader)
		if err != nil {
			return
		}

		switch opcode {
		case opClose:
			c.writeFrame(opClose, nil)
			return
		case opPing:
			if err := c.writeFrame(opPong, payload); err != nil {
				return
			}
		case opPong, opText, opBinary, opContinuation:
			// No client-to-server payloads are meaningful to this gateway;
			// only the connection's liveness matters.
		}
	}
}

// errUnmaskedClientFrame signals spec.md §6's "non-masked client frames
// terminate the connection" rule.
var errUnmaskedClientFrame = errors.New("httpapi: unmasked client frame")

// readFrame parses one RFC 6455 frame from r, rejecting unmasked client
// frames. Fragmented messages (continuation frames) are accepted at the
// framing level but not reassembled, since no inbound client payload drives
// gateway behavior.
func readFrame(r *bufio.Reader) (opcode byte, payload []byte, err error) {
	var head [2]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return 0, nil, err
	}

	opcode = head[0] & 0x0F
	masked := head[1]&0x80 != 0
	length := uint64(head[1] & 0x7F)

	if !masked {
		return 0, nil, errUnmaskedClientFrame
	}

	switch length {
	case 126:
		var ext [2]byte
		if _, err := io.ReadFull(r, ext[:]); err != nil {
			return 0, nil, err
		}
		length = uint64(binary.BigEndian.Uint16(ext[:]))
	case 127:
		var ext [8]byte
		if _, err := io.ReadFull(r, ext[:]); err != nil {
			return 0, nil, err
		}
		length = binary.BigEndian.Uint64(ext[:])
	}

	var maskKey [4]byte
	if _, err := io.ReadFull(r, maskKey[:]); err != nil {
		return 0, nil, err
	}

	payload = make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, err
	}
	for i := range payload {
		payload[i] ^= maskKey[i%4]
	}

	return opcode, payload, nil
}

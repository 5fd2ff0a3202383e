package socket

import (
	log "github.com/sirupsen/logrus"

	"github.com/cybroplc/abus-gateway/pkg/abus"
	"github.com/cybroplc/abus-gateway/pkg/alc"
)

// CrcProvider answers the ALC crc a controller's last successful exchange
// used, grounded on plc_comm_service.py's get_crc (which reads the last
// known plc_head rather than issuing a fresh exchange — a socket event is
// unsolicited and must not trigger PLC I/O to decode).
type CrcProvider interface {
	LastUsedAlcCRC(nad int) (uint32, bool)
}

// AlcProvider resolves a crc to its parsed symbol table.
type AlcProvider interface {
	Get(crc uint32) (map[string]alc.VarInfo, bool)
}

// Broadcaster delivers a serialized event document to connected clients,
// grounded on socket_service.py's injected send_client_message_handler.
type Broadcaster interface {
	Broadcast(xmlDoc []byte)
}

// Service decodes unsolicited socket-event frames and broadcasts them as
// XML to WebSocket clients — the Go counterpart of SocketService.
type Service struct {
	log *log.Entry

	sockets     Config
	crcProvider CrcProvider
	alcProvider AlcProvider
	aliases     AliasResolver
	broadcaster Broadcaster
}

// NewService builds a Service. sockets is the per-socket-number variable
// layout table (eth_config.py's SocketsType, parsed from the `socket` INI
// key via ParseDefinition).
func NewService(sockets Config, crcProvider CrcProvider, alcProvider AlcProvider, aliases AliasResolver, broadcaster Broadcaster) *Service {
	return &Service{
		log:         log.WithField("component", "socket"),
		sockets:     sockets,
		crcProvider: crcProvider,
		alcProvider: alcProvider,
		aliases:     aliases,
		broadcaster: broadcaster,
	}
}

// HandleSocket implements exchange.SocketHandler. It is invoked on the
// router's goroutine, so the actual decode-and-broadcast work is offloaded
// to its own goroutine to avoid blocking frame dispatch — the Go analog of
// receive()'s run_coroutine_threadsafe fire-and-forget scheduling.
func (s *Service) HandleSocket(msg abus.Message) {
	go s.propagate(msg)
}

func (s *Service) propagate(msg abus.Message) {
	nad := int(msg.FromNad)

	crc, ok := s.crcProvider.LastUsedAlcCRC(nad)
	if !ok {
		s.log.Warnf("socket event from nad=%d dropped: no known alc crc yet", nad)
		return
	}

	vars, ok := s.alcProvider.Get(crc)
	if !ok {
		s.log.Warnf("socket event from nad=%d dropped: no alc table for crc=%d", nad, crc)
		return
	}

	event, err := Decode(msg, vars, s.sockets)
	if err != nil {
		s.log.Warnf("socket event from nad=%d dropped: %v", nad, err)
		return
	}

	doc, err := event.ToXML(s.aliases)
	if err != nil {
		s.log.Warnf("socket event from nad=%d: xml encode failed: %v", nad, err)
		return
	}

	s.broadcaster.Broadcast(doc)
}

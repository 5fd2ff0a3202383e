// Package detection implements the PLC detection service (spec.md 4.G):
// resolving an unknown controller's IP address by pinging it, first by ETH
// broadcast (if enabled) and falling back to a CAN "zero" ping.
package detection

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/cybroplc/abus-gateway/pkg/abus"
	"github.com/cybroplc/abus-gateway/pkg/directory"
)

// AutodetectNad is the NAD this gateway uses as the "from" field of its own
// detection pings, grounded on the original's AUTODETECT_NAD constant.
const AutodetectNad = 1003

// BroadcastPort is the well-known ABUS broadcast port ETH pings are sent
// to when autodetecting.
const BroadcastPort = directory.DefaultPort

// Exchanger is the subset of *exchange.Exchanger the detection service
// needs: a single threadsafe request/response round trip.
type Exchanger interface {
	Exchange(ctx context.Context, msg abus.Message, addr abus.Addr) (abus.Message, error)
}

// Service resolves a NAD to an IP address via ETH broadcast and/or CAN
// ping, per spec.md 4.G.
type Service struct {
	log *log.Entry

	ethEnabled            bool
	ethAutodetectEnabled  bool
	ethAutodetectAddress  string
	canEnabled            bool

	directory *directory.Directory
	exchanger Exchanger
	txGen     *abus.TransactionIDGenerator
}

// Config holds the detection service's static configuration, read from the
// gateway's [ETH]/[CAN] INI sections.
type Config struct {
	EthEnabled           bool
	EthAutodetectEnabled bool
	EthAutodetectAddress string
	CanEnabled           bool
}

// NewService creates a detection Service. Call SetExchanger before the
// first Detect call (mirrors the original's two-phase construction, needed
// because the exchanger and the detection service reference each other).
func NewService(cfg Config, dir *directory.Directory) *Service {
	return &Service{
		log:                  log.WithField("component", "detection"),
		ethEnabled:           cfg.EthEnabled,
		ethAutodetectEnabled: cfg.EthAutodetectEnabled,
		ethAutodetectAddress: cfg.EthAutodetectAddress,
		canEnabled:           cfg.CanEnabled,
		directory:            dir,
		txGen:                abus.NewTransactionIDGenerator(0),
	}
}

// SetExchanger wires the exchanger used to send detection pings, resolving
// the construction cycle between the Router (which needs the detection
// service) and the Exchanger (which the detection service sends through).
func (s *Service) SetExchanger(exchanger Exchanger) {
	s.exchanger = exchanger
}

// Detect resolves nad's IP address: by ETH broadcast if enabled, falling
// back to a CAN zero-address ping if enabled. It returns an error if
// neither transport is configured, or if both attempts time out.
func (s *Service) Detect(ctx context.Context, nad int) (string, error) {
	s.log.Infof("detecting ip for c%d", nad)

	var lastErr error

	if s.ethEnabled && s.ethAutodetectEnabled {
		ip, err := s.detectWith(ctx, nad, abus.Addr{IP: s.ethAutodetectAddress, Port: BroadcastPort})
		if err == nil {
			s.log.Infof("detected ip %s for c%d via eth broadcast", ip, nad)
			return ip, nil
		}
		lastErr = err
	}

	if s.canEnabled {
		ip, err := s.detectWith(ctx, nad, abus.CANSentinel)
		if err == nil {
			s.log.Infof("detected ip %s for c%d via can", ip, nad)
			return ip, nil
		}
		lastErr = err
	}

	if lastErr == nil {
		lastErr = fmt.Errorf(
			"detection: autodetect failed, neither can nor (eth + eth autodetect) is enabled",
		)
	}
	s.log.Warnf("couldn't detect ip for c%d: %v", nad, lastErr)
	return "", lastErr
}

func (s *Service) detectWith(ctx context.Context, nad int, pingAddr abus.Addr) (string, error) {
	password := s.passwordFor(nad)
	txID := abus.TransactionIDFor(password, s.txGen)

	msg := abus.Message{
		Addr:          pingAddr,
		FromNad:       AutodetectNad,
		ToNad:         uint16(nad),
		TransactionID: txID,
		Command:       abus.NewPing(),
	}

	response, err := s.exchanger.Exchange(ctx, msg, pingAddr)
	if err != nil {
		return "", fmt.Errorf("detection: pinging c%d via %s: %w", nad, pingAddr, err)
	}
	return response.Addr.IP, nil
}

func (s *Service) passwordFor(nad int) *int {
	if s.directory == nil {
		return nil
	}
	info, ok := s.directory.Get(nad)
	if !ok {
		return nil
	}
	return info.Password
}

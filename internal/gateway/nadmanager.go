package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cybroplc/abus-gateway/pkg/abus"
	"github.com/cybroplc/abus-gateway/pkg/detection"
	"github.com/cybroplc/abus-gateway/pkg/directory"
	"github.com/cybroplc/abus-gateway/pkg/exchange"
	"github.com/cybroplc/abus-gateway/pkg/plcclient"
)

// MaxFrameBytes bounds a single ABUS transport frame, grounded on
// defaults.py's MAX_FRAME_BYTES.
const MaxFrameBytes = 1000

// NadManager is the gateway's plc_client_manager: it lazily creates one
// Exchanger and one plcclient.Client per NAD the first time either is
// needed, resolving an unknown address through the detection service and
// registering the Exchanger with the Router so responses find their way
// back. Grounded on plc_client_manager.py's PlcClientManager.
type NadManager struct {
	ctx context.Context

	dir       *directory.Directory
	detector  *detection.Service
	activity  *directory.ActivityService
	router    *exchange.Router
	sender    exchange.Sender
	timeout   time.Duration
	maxRetry  int
	frameSize int

	mu         sync.Mutex
	exchangers map[int]*exchange.Exchanger
	clients    map[int]*plcclient.Client
}

// NewNadManager creates a NadManager. ctx bounds the lifetime of every
// per-NAD Exchanger goroutine it spawns — cancel it to shut the whole
// fleet of exchangers down.
func NewNadManager(ctx context.Context, dir *directory.Directory, detector *detection.Service, activity *directory.ActivityService, router *exchange.Router, sender exchange.Sender, timeout time.Duration, maxRetry int) *NadManager {
	return &NadManager{
		ctx:        ctx,
		dir:        dir,
		detector:   detector,
		activity:   activity,
		router:     router,
		sender:     sender,
		timeout:    timeout,
		maxRetry:   maxRetry,
		frameSize:  MaxFrameBytes,
		exchangers: make(map[int]*exchange.Exchanger),
		clients:    make(map[int]*plcclient.Client),
	}
}

// exchangerFor returns the Exchanger serving nad, creating and registering
// one (and starting its serving goroutine) the first time it's needed.
// Caller must hold m.mu.
func (m *NadManager) exchangerFor(nad int) *exchange.Exchanger {
	if ex, ok := m.exchangers[nad]; ok {
		return ex
	}
	ex := exchange.NewExchanger(m.sender, nad, m.timeout, m.maxRetry)
	m.exchangers[nad] = ex
	m.router.RegisterNad(nad, ex)
	go ex.Run(m.ctx)
	return ex
}

// buildClient constructs (or replaces) the cached *plcclient.Client for
// nad from the given directory snapshot. Caller must hold m.mu.
func (m *NadManager) buildClient(nad int, info directory.PlcInfo) *plcclient.Client {
	ex := m.exchangerFor(nad)
	client := plcclient.NewClient(nad, info, m.activity, abus.NewTransactionIDGenerator(0), m.frameSize, ex)
	m.clients[nad] = client
	return client
}

// Get implements rw.ClientProvider: it returns the client for nad,
// resolving its address via the detection service on first use (or
// whenever the directory has no address for it yet).
func (m *NadManager) Get(ctx context.Context, nad int) (*plcclient.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	info, ok := m.dir.Get(nad)
	if ok && info.HasIP() {
		if client, ok := m.clients[nad]; ok {
			return client, nil
		}
		return m.buildClient(nad, info), nil
	}

	ip, err := m.detector.Detect(ctx, nad)
	if err != nil {
		return nil, fmt.Errorf("gateway: detecting c%d: %w", nad, err)
	}
	m.dir.Learn(directory.OriginAuto, nad, ip, directory.DefaultPort)

	info, ok = m.dir.Get(nad)
	if !ok {
		return nil, fmt.Errorf("gateway: c%d vanished from the directory immediately after being learned", nad)
	}
	return m.buildClient(nad, info), nil
}

// RefreshIP implements rw.ClientProvider: it forgets whatever address the
// directory holds for nad and re-resolves it, used after an exchange
// against a non-STATIC controller times out (its address may have
// changed). Grounded on plc_client_manager.py's refresh-on-timeout path.
func (m *NadManager) RefreshIP(ctx context.Context, nad int) (*plcclient.Client, error) {
	m.dir.Remove(nad)

	m.mu.Lock()
	delete(m.clients, nad)
	m.mu.Unlock()

	return m.Get(ctx, nad)
}

// UpdateProgramDatetime implements rw.ClientProvider: it records a freshly
// observed program_datetime and rebuilds the cached client so its PlcInfo
// snapshot reflects it.
func (m *NadManager) UpdateProgramDatetime(ctx context.Context, nad int, t time.Time) (*plcclient.Client, error) {
	m.dir.UpdateProgramDatetime(nad, t)

	m.mu.Lock()
	defer m.mu.Unlock()

	info, ok := m.dir.Get(nad)
	if !ok {
		return nil, fmt.Errorf("gateway: c%d not in directory, cannot update program datetime", nad)
	}
	return m.buildClient(nad, info), nil
}

package gateway

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/cybroplc/abus-gateway/pkg/alc"
	"github.com/cybroplc/abus-gateway/pkg/config"
	"github.com/cybroplc/abus-gateway/pkg/datalogger"
	"github.com/cybroplc/abus-gateway/pkg/detection"
	"github.com/cybroplc/abus-gateway/pkg/directory"
	"github.com/cybroplc/abus-gateway/pkg/exchange"
	"github.com/cybroplc/abus-gateway/pkg/httpapi"
	"github.com/cybroplc/abus-gateway/pkg/metrics"
	"github.com/cybroplc/abus-gateway/pkg/plccache"
	"github.com/cybroplc/abus-gateway/pkg/push"
	"github.com/cybroplc/abus-gateway/pkg/rw"
	"github.com/cybroplc/abus-gateway/pkg/socket"
	"github.com/cybroplc/abus-gateway/pkg/transport"
)

// Gateway is the fully wired ABUS gateway process: every package this
// repository implements, constructed in dependency order and held here so
// Run/Close have a single place to start and stop it from. Grounded on how
// scgi_server.py's top-level `Application` class assembles and owns every
// subsystem it starts.
type Gateway struct {
	cfg *config.Config

	configWatcher *ConfigWatcher

	udp *transport.UDPEndpoint
	can *transport.CANEndpoint

	directory    *directory.Directory
	activity     *directory.ActivityService
	detection    *detection.Service
	router       *exchange.Router
	nads         *NadManager
	alcStore     *alc.Store
	caches       *plccache.Cache
	dataLog      *datalogger.Cache
	pushActiv    *push.Activity
	push         *push.Service
	socket       *socket.Service
	hub          *httpapi.Hub
	registry     *metrics.Registry
	orchestrator *rw.Orchestrator
	http         *httpapi.Server

	stop chan struct{}
}

// New builds a Gateway from cfg. It does not yet send or receive
// anything — call Run to start the transport endpoints and background
// cleaners.
func New(ctx context.Context, cfg *config.Config, configPath, version string) (*Gateway, error) {
	dir := directory.NewDirectory(cfg.Push.Timeout)
	for _, s := range cfg.StaticPlcs {
		dir.PutStatic(s.Nad, s.IP, s.Port, s.Password)
	}

	activity := directory.NewActivityService()

	alcStore := alc.NewStore(cfg.Locations.AlcDir)
	if err := alcStore.LoadFromDisk(); err != nil {
		return nil, fmt.Errorf("gateway: loading ALC store: %w", err)
	}

	sender := &abusSender{}

	var udp *transport.UDPEndpoint
	if cfg.Eth.Enabled {
		udp = transport.NewUDPEndpoint(cfg.Eth.Port, cfg.Eth.AutodetectAddress)
		sender.udp = udp
	}
	var can *transport.CANEndpoint
	if cfg.Can.Enabled {
		can = transport.NewCANEndpoint(cfg.Can.Interface)
		sender.can = can
	}

	pushActivity := &push.Activity{}
	pushService := push.NewService(dir, pushActivity, cfg.Push.Timeout)

	hub := httpapi.NewHub()
	socketService := socket.NewService(cfg.Eth.Sockets, activity, alcStore, cfg.Alias, hub)

	router := exchange.NewRouter(pushService, socketService)

	detector := detection.NewService(detection.Config{
		EthEnabled:           cfg.Eth.Enabled,
		EthAutodetectEnabled: cfg.Eth.AutodetectEnabled,
		EthAutodetectAddress: cfg.Eth.AutodetectAddress,
		CanEnabled:           cfg.Can.Enabled,
	}, dir)

	detectExchanger := exchange.NewExchanger(sender, detection.AutodetectNad, cfg.Abus.Timeout, cfg.Abus.NumberOfRetries)
	router.RegisterNad(detection.AutodetectNad, detectExchanger)
	detector.SetExchanger(detectExchanger)

	pushExchanger := exchange.NewExchanger(sender, push.PushNad, cfg.Abus.Timeout, cfg.Abus.NumberOfRetries)
	router.RegisterNad(push.PushNad, pushExchanger)
	pushService.SetExchanger(pushExchanger)

	nads := NewNadManager(ctx, dir, detector, activity, router, sender, cfg.Abus.Timeout, cfg.Abus.NumberOfRetries)

	caches := plccache.NewCache(cfg.Cache.RequestPeriod, cfg.Cache.ValidPeriod)
	cacheFacade := plccache.NewFacade(caches)
	dataLog := datalogger.NewCache()

	commFactory := NewCommunicatorFactory(nads, cacheFacade, dataLog, alcStore, cfg.Scgi.OnlyUserVariables)

	registry := metrics.NewRegistry(version)
	systemStatus := metrics.NewSystemStatus(registry, dir, pushActivity, version)
	plcStatus := metrics.NewPlcStatus(dir, activity, alcStore)

	orchestrator := rw.NewOrchestrator(systemStatus, plcStatus, commFactory)

	httpServer := httpapi.NewServer(orchestrator, cfg.Alias, hub, registry, cfg.Scgi.AccessToken, cfg.Scgi.ReplyWithDescriptions)

	if udp != nil {
		udp.Subscribe(transport.FrameHandlerFunc(router.HandleFrame))
	}
	if can != nil {
		can.Subscribe(transport.FrameHandlerFunc(router.HandleFrame))
	}

	configWatcher := NewConfigWatcher(configPath, func() {
		if err := restartProcess(); err != nil {
			log.WithError(err).Error("failed to restart after config change")
		}
	})

	return &Gateway{
		cfg:           cfg,
		configWatcher: configWatcher,
		udp:           udp,
		can:           can,
		directory:     dir,
		activity:      activity,
		detection:     detector,
		router:        router,
		nads:          nads,
		alcStore:      alcStore,
		caches:        caches,
		dataLog:       dataLog,
		pushActiv:     pushActivity,
		push:          pushService,
		socket:        socketService,
		hub:           hub,
		registry:      registry,
		orchestrator:  orchestrator,
		http:          httpServer,
		stop:          make(chan struct{}),
	}, nil
}

// Run starts the transport endpoints and every background goroutine
// (directory expiry sweep, per-PLC cache cleanup), then blocks serving
// HTTP until ctx is cancelled.
func (g *Gateway) Run(ctx context.Context) error {
	if g.udp != nil {
		if err := g.udp.Start(); err != nil {
			return fmt.Errorf("gateway: starting UDP endpoint: %w", err)
		}
	}
	if g.can != nil {
		if err := g.can.Start(); err != nil {
			return fmt.Errorf("gateway: starting CAN endpoint: %w", err)
		}
	}

	go g.directory.RunCleaner(cleanupInterval, g.stop)
	if g.cfg.Cache.CleanupPeriod > 0 {
		go g.caches.RunCleaner(g.cfg.Cache.CleanupPeriod, g.stop)
	}
	go g.configWatcher.Run()

	addr := fmt.Sprintf("%s:%d", g.cfg.Scgi.BindAddress, g.cfg.Scgi.Port)
	log.WithField("component", "gateway").Infof("listening on %s", addr)
	return g.http.ListenAndServe(ctx, addr)
}

// cleanupInterval is how often the directory sweeps expired AUTO/PUSH
// entries; the original ties this to its own housekeeping timer rather
// than a config key, so it's a constant here too.
const cleanupInterval = 30 * time.Second

// Close releases the transport endpoints and stops every background
// goroutine started by Run.
func (g *Gateway) Close() error {
	close(g.stop)
	g.configWatcher.Stop()
	var firstErr error
	if g.udp != nil {
		if err := g.udp.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if g.can != nil {
		if err := g.can.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

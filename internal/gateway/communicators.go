package gateway

import (
	"context"
	"fmt"

	"github.com/cybroplc/abus-gateway/pkg/alc"
	"github.com/cybroplc/abus-gateway/pkg/datalogger"
	"github.com/cybroplc/abus-gateway/pkg/plcclient"
	"github.com/cybroplc/abus-gateway/pkg/plccache"
	"github.com/cybroplc/abus-gateway/pkg/rw"
)

// CommunicatorFactory implements rw.CommunicatorFactory: it resolves a
// NAD's client through a NadManager and wraps it with the shared
// cache/data-logger/ALC machinery every controller's Communicator uses.
type CommunicatorFactory struct {
	nads              *NadManager
	cache             *plccache.Facade
	dataLog           *datalogger.Cache
	alcStore          *alc.Store
	onlyUserVariables bool
}

// NewCommunicatorFactory builds a CommunicatorFactory.
func NewCommunicatorFactory(nads *NadManager, cache *plccache.Facade, dataLog *datalogger.Cache, alcStore *alc.Store, onlyUserVariables bool) *CommunicatorFactory {
	return &CommunicatorFactory{
		nads:              nads,
		cache:             cache,
		dataLog:           dataLog,
		alcStore:          alcStore,
		onlyUserVariables: onlyUserVariables,
	}
}

// For implements rw.CommunicatorFactory.
func (f *CommunicatorFactory) For(ctx context.Context, nad int) (*rw.Communicator, error) {
	client, err := f.nads.Get(ctx, nad)
	if err != nil {
		return nil, err
	}
	comm := rw.NewCommunicator(f.nads, client, f.cache, f.dataLog, f.nads.activity, f.resolveAlc)
	comm.OnlyUserVariables = f.onlyUserVariables
	return comm, nil
}

// resolveAlc implements rw.AlcResolver: an ALC store hit answers directly;
// a miss fetches the zip from the controller, decompresses it, and stores
// it for next time. Grounded on plc_comm_service.py's PlcCommService._get_alc.
func (f *CommunicatorFactory) resolveAlc(ctx context.Context, client *plcclient.Client, crc uint32) (map[string]alc.VarInfo, bool, error) {
	if vars, ok := f.alcStore.Get(crc); ok {
		return vars, true, nil
	}

	zipBytes, err := client.FetchAlcFile(ctx)
	if err != nil {
		// Unreachable controller: treated as DEVICE_NOT_FOUND, not a hard
		// error, matching the original's "no ALC, no device" conflation.
		return nil, false, nil
	}

	text, err := alc.DecompressZip(zipBytes)
	if err != nil {
		return nil, false, fmt.Errorf("gateway: decompressing ALC for c%d: %w", client.Nad(), err)
	}

	if err := f.alcStore.Set(crc, text); err != nil {
		return nil, false, fmt.Errorf("gateway: storing ALC for c%d: %w", client.Nad(), err)
	}

	vars, ok := f.alcStore.Get(crc)
	if !ok {
		return nil, false, fmt.Errorf("gateway: ALC for c%d vanished from the store immediately after being set", client.Nad())
	}
	return vars, true, nil
}

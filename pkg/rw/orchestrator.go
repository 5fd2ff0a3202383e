package rw

import (
	"context"
	"sync"
)

// SystemStatusHandler answers requests targeting the gateway process
// itself (spec.md's SYSTEM target), grounded on
// SystemStatusServiceFacade.process.
type SystemStatusHandler interface {
	Process(ctx context.Context, requests []Request) ([]Response, error)
}

// PlcStatusHandler answers requests targeting one controller's own status
// block without going through the full PLC client (PLC_SYSTEM target),
// grounded on PlcStatusServiceFacade.process.
type PlcStatusHandler interface {
	Process(ctx context.Context, nad int, requests []Request) ([]Response, error)
}

// CommunicatorFactory builds the per-controller Communicator used to
// answer PLC-targeted requests for one NAD.
type CommunicatorFactory interface {
	For(ctx context.Context, nad int) (*Communicator, error)
}

// Orchestrator is the RW service: it classifies a request batch by target,
// groups controller-bound requests by NAD, and fans out concurrently
// across controllers (serially within each one). Grounded on
// original_source/.../rw_service/rw_service.py's RWService.
type Orchestrator struct {
	system        SystemStatusHandler
	plcStatus     PlcStatusHandler
	communicators CommunicatorFactory
}

func NewOrchestrator(system SystemStatusHandler, plcStatus PlcStatusHandler, communicators CommunicatorFactory) *Orchestrator {
	return &Orchestrator{system: system, plcStatus: plcStatus, communicators: communicators}
}

// Process answers a batch of reads and writes. taskID, when non-nil,
// routes PLC-targeted reads through the data-logger cache path instead of
// the ordinary cache-aware read path; writes are ignored in that mode
// (mirroring the original's "writes came from the data logger, ignored"
// sanity check).
func (o *Orchestrator) Process(ctx context.Context, rRequests, wRequests []Request, taskID *int) ([]Response, error) {
	system, plcStatus, plc := classifyReads(rRequests)

	plcStatusByNad := groupByNad(plcStatus)
	plcRByNad := groupByNad(plc)
	plcWByNad := groupByNad(wRequests)

	var (
		mu        sync.Mutex
		responses []Response
		firstErr  error
	)

	record := func(rs []Response, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return
		}
		responses = append(responses, rs...)
	}

	var wg sync.WaitGroup

	if len(system) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rs, err := o.system.Process(ctx, system)
			record(rs, err)
		}()
	}

	for nad, requests := range plcStatusByNad {
		wg.Add(1)
		go func(nad int, requests []Request) {
			defer wg.Done()
			rs, err := o.plcStatus.Process(ctx, nad, requests)
			record(rs, err)
		}(nad, requests)
	}

	nads := make(map[int]struct{})
	for nad := range plcRByNad {
		nads[nad] = struct{}{}
	}
	for nad := range plcWByNad {
		nads[nad] = struct{}{}
	}

	for nad := range nads {
		wg.Add(1)
		go func(nad int) {
			defer wg.Done()
			rs, err := o.processPlcNad(ctx, nad, plcRByNad[nad], plcWByNad[nad], taskID)
			record(rs, err)
		}(nad)
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return responses, nil
}

func (o *Orchestrator) processPlcNad(ctx context.Context, nad int, rRequests, wRequests []Request, taskID *int) ([]Response, error) {
	comm, err := o.communicators.For(ctx, nad)
	if err != nil {
		return responsesWithCode(rRequests, CodeDeviceNotFound), nil
	}

	if taskID != nil {
		if len(wRequests) > 0 {
			wRequests = nil // data-logger polls never carry writes
		}
		return comm.ProcessForDataLogger(ctx, rRequests, *taskID)
	}

	return comm.ProcessRW(ctx, rRequests, wRequests)
}

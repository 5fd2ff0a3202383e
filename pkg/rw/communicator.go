package rw

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cybroplc/abus-gateway/pkg/alc"
	"github.com/cybroplc/abus-gateway/pkg/datalogger"
	"github.com/cybroplc/abus-gateway/pkg/directory"
	"github.com/cybroplc/abus-gateway/pkg/plcclient"
	"github.com/cybroplc/abus-gateway/pkg/plccache"
)

// ErrPlcHeadNotOK is returned by PlcHeadCheck when the controller's
// plc_head fails validation (no program, or no room for one), grounded on
// PlcCommunicator.PlcHeadError.
var ErrPlcHeadNotOK = errors.New("rw: plc head not ok")

// ClientProvider resolves and re-resolves the *plcclient.Client for a NAD,
// grounded on PlcCommService's plc_client_manager/plc_info_service calls:
// Get returns the currently known client, RefreshIP forgets the directory
// entry and re-detects it (used after an exchange failure against a
// non-STATIC controller), and UpdateProgramDatetime records a freshly
// observed program_datetime before re-resolving the client.
type ClientProvider interface {
	Get(ctx context.Context, nad int) (*plcclient.Client, error)
	RefreshIP(ctx context.Context, nad int) (*plcclient.Client, error)
	UpdateProgramDatetime(ctx context.Context, nad int, t time.Time) (*plcclient.Client, error)
}

// AlcResolver looks up (and, on a cache miss, fetches and parses) the ALC
// symbol table for crc, grounded on PlcCommService._get_alc. ok is false
// when the controller couldn't be reached to fetch a missing ALC (treated
// as DEVICE_NOT_FOUND); a non-nil err means the fetch itself failed in a
// way that isn't simply "unreachable" (treated as NO_ALC_ERROR).
type AlcResolver func(ctx context.Context, client *plcclient.Client, crc uint32) (vars map[string]alc.VarInfo, ok bool, err error)

// Activity is the subset of *directory.ActivityService the communicator
// reports ALC usage into.
type Activity interface {
	ReportAlcUsed(nad int, crc *uint32)
}

// Communicator drives one controller's request/response cycle: plc_head
// validation, ALC resolution, cache-aware reads, writes, and the
// data-logger cache path. Grounded on plc_communicator.py's
// PlcCommunicator.
type Communicator struct {
	provider ClientProvider
	client   *plcclient.Client
	cache    *plccache.Facade
	dataLog  *datalogger.Cache
	activity Activity
	alc      AlcResolver

	// OnlyUserVariables restricts every ALC lookup this communicator makes
	// to user-flagged variables (alc.VarInfo.IsUserVar), dropping system
	// variables as if they were never declared. Set post-construction by
	// whatever assembles the Communicator from SCGI.only_user_variables;
	// zero value (false) preserves the unrestricted original behavior.
	// Grounded on plc_comm_service_request_processor.py's
	// _create_plc_rw_request, which raises when a requested variable's
	// var_info.is_user_var() is false and only_user_variables is set.
	OnlyUserVariables bool
}

// NewCommunicator builds a Communicator for a single already-resolved
// client. cache may be nil (caching disabled).
func NewCommunicator(provider ClientProvider, client *plcclient.Client, cache *plccache.Facade, dataLog *datalogger.Cache, activity Activity, alcResolver AlcResolver) *Communicator {
	return &Communicator{
		provider: provider,
		client:   client,
		cache:    cache,
		dataLog:  dataLog,
		activity: activity,
		alc:      alcResolver,
	}
}

func (c *Communicator) maxTries() int {
	if c.client.PlcInfo().Origin != directory.OriginStatic {
		return 2
	}
	return 1
}

// ProcessRW reads and writes a batch of requests against the controller,
// retrying once against a freshly re-detected address for non-STATIC
// controllers if the first attempt times out. Grounded on
// PlcCommunicator.process_rw_requests/_process_rw_requests.
func (c *Communicator) ProcessRW(ctx context.Context, rRequests, wRequests []Request) ([]Response, error) {
	// start_futures has no direct analog here: singleflight registers the
	// in-flight fetch lazily on first GetOrFetch call instead of being
	// primed up front for concurrent waiters.
	responses, err := c.processWithRetry(ctx, rRequests, wRequests)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		writes := make([]plccache.WriteResult, 0, len(responses))
		for _, r := range responses {
			// A response already served from the cache (Fresh/Stinky) must
			// not be written straight back: SetValue would reset its expiry
			// and a STINKY value would never actually go STALE.
			if r.Cached {
				continue
			}
			nad := c.client.Nad()
			if !r.Valid {
				writes = append(writes, plccache.WriteResult{
					Request: plccache.Request{Nad: nad, Name: r.TagName},
					Err:     errors.New(r.Code.String()),
				})
				continue
			}
			writes = append(writes, plccache.WriteResult{
				Request:     plccache.Request{Nad: nad, Name: r.TagName},
				Value:       r.Value,
				Description: r.Description,
			})
		}
		c.cache.Write(writes)
	}

	return responses, nil
}

func (c *Communicator) processWithRetry(ctx context.Context, rRequests, wRequests []Request) ([]Response, error) {
	for tries := 0; tries < c.maxTries(); tries++ {
		if tries > 0 {
			client, err := c.provider.RefreshIP(ctx, c.client.Nad())
			if err != nil || client == nil {
				break
			}
			c.client = client
		}

		responses, err := c.readWrite(ctx, rRequests, wRequests)
		if err == nil {
			return responses, nil
		}
	}

	return responsesWithCode(rRequests, CodeTimeout), nil
}

func (c *Communicator) readWrite(ctx context.Context, rRequests, wRequests []Request) ([]Response, error) {
	crc, err := c.PlcHeadCheck(ctx)
	if errors.Is(err, ErrPlcHeadNotOK) {
		return responsesWithCode(rRequests, CodePlcHeadError), nil
	}
	if err != nil {
		return nil, err
	}

	vars, ok, alcErr := c.alc(ctx, c.client, crc)
	if alcErr != nil {
		c.activity.ReportAlcUsed(c.client.Nad(), nil)
		return responsesWithCode(rRequests, CodeNoAlcError), nil
	}
	if !ok {
		c.activity.ReportAlcUsed(c.client.Nad(), nil)
		return responsesWithCode(rRequests, CodeDeviceNotFound), nil
	}
	c.activity.ReportAlcUsed(c.client.Nad(), &crc)
	if c.OnlyUserVariables {
		vars = filterUserVars(vars)
	}

	if len(wRequests) > 0 {
		if err := c.write(ctx, wRequests, vars); err != nil {
			return nil, err
		}
	}

	// Cache-backed reads only apply when the batch carries no writes,
	// matching plc_comm_service.py's split between process_rw_requests
	// (always a real exchange) and the pure-read path that consults
	// PlcCacheFacade first.
	return c.read(ctx, rRequests, vars, len(wRequests) == 0)
}

func (c *Communicator) read(ctx context.Context, requests []Request, vars map[string]alc.VarInfo, useCache bool) ([]Response, error) {
	if useCache && c.cache != nil {
		return c.readCached(ctx, requests, vars)
	}
	return c.readUncached(ctx, requests, vars)
}

func (c *Communicator) readUncached(ctx context.Context, requests []Request, vars map[string]alc.VarInfo) ([]Response, error) {
	params, order, unresolved := buildReadParams(requests, vars)

	var responses []Response
	if len(order) > 0 {
		oneB, twoB, fourB, err := c.client.ReadRandomMemory(ctx, params)
		if err != nil {
			return nil, err
		}
		responses = decodeReadResponses(order, oneB, twoB, fourB, false)
	}

	responses = append(responses, responsesWithCode(unresolved, CodeUnknown)...)
	return responses, nil
}

// readCached serves FRESH/STINKY tags straight from the per-PLC cache and
// only reaches the controller for tags the cache reports NotAvailable
// (STALE or never cached), one exchange per missed tag, coalesced through
// the cache's singleflight group so concurrent callers missing on the same
// tag share one fetch. Grounded on plc_comm_service.py's
// cache_facade.read()/fresh/stinky/not_available split, minus its
// fire-and-forget background refresh of STINKY tags (served here directly
// instead of scheduled for later).
func (c *Communicator) readCached(ctx context.Context, requests []Request, vars map[string]alc.VarInfo) ([]Response, error) {
	nad := c.client.Nad()

	var unresolved []Request
	cacheReqs := make([]plccache.Request, 0, len(requests))
	byCacheReq := make(map[plccache.Request]Request, len(requests))
	for _, r := range requests {
		if _, ok := vars[r.TagName]; !ok {
			unresolved = append(unresolved, r)
			continue
		}
		cr := plccache.Request{Nad: nad, Name: r.TagName}
		cacheReqs = append(cacheReqs, cr)
		byCacheReq[cr] = r
	}

	result := c.cache.Read(cacheReqs)

	responses := make([]Response, 0, len(requests))
	responses = append(responses, responsesWithCode(unresolved, CodeUnknown)...)
	for cr, v := range result.Fresh {
		responses = append(responses, cachedResponse(byCacheReq[cr], v))
	}
	for cr, v := range result.Stinky {
		responses = append(responses, cachedResponse(byCacheReq[cr], v))
	}

	for _, cr := range result.NotAvailable {
		req := byCacheReq[cr]
		value, description, err := c.fetchOne(ctx, req, vars[req.TagName])
		if err != nil {
			return nil, err
		}
		responses = append(responses, newResponse(req.Name, req.TagName, value, description, true, CodeNoError, false))
	}

	return responses, nil
}

func cachedResponse(r Request, v plccache.Value) Response {
	return newResponse(r.Name, r.TagName, v.Value, v.Description, true, CodeNoError, true)
}

// fetchOne performs one real controller read for a single cache-missed tag
// via GetOrFetch, so concurrent misses for the same (nad, tag) coalesce
// into a single exchange instead of each caller hitting the controller.
func (c *Communicator) fetchOne(ctx context.Context, req Request, info alc.VarInfo) (value, description string, err error) {
	v, err := c.cache.GetOrFetch(ctx, plccache.Request{Nad: c.client.Nad(), Name: req.TagName}, func(ctx context.Context) (string, string, error) {
		params, order, _ := buildReadParams([]Request{req}, map[string]alc.VarInfo{req.TagName: info})
		oneB, twoB, fourB, err := c.client.ReadRandomMemory(ctx, params)
		if err != nil {
			return "", "", err
		}
		decoded := decodeReadResponses(order, oneB, twoB, fourB, false)
		if len(decoded) == 0 {
			return "", "", fmt.Errorf("rw: no response decoded for %q", req.TagName)
		}
		return decoded[0].Value, decoded[0].Description, nil
	})
	if err != nil {
		return "", "", err
	}
	return v.Value, v.Description, nil
}

func (c *Communicator) write(ctx context.Context, requests []Request, vars map[string]alc.VarInfo) error {
	params, _, err := buildWriteParams(requests, vars)
	if err != nil {
		return err
	}
	return c.client.WriteRandomMemory(ctx, params)
}

// PlcHeadCheck reads and validates plc_head, refreshing the known program
// datetime (and re-validating head and status) when it has changed since
// the last check. Returns the program's code CRC. Grounded on
// PlcCommunicator.plc_head_check.
func (c *Communicator) PlcHeadCheck(ctx context.Context) (uint32, error) {
	head, err := c.client.ReadPlcHead(ctx)
	if err != nil {
		return 0, err
	}
	if err := head.Validate(); err != nil {
		return 0, ErrPlcHeadNotOK
	}

	newDatetime := head.ProgramDatetime()
	lastDatetime := c.client.PlcInfo().ProgramDatetime

	if lastDatetime == nil || !lastDatetime.Equal(newDatetime) {
		client, err := c.provider.UpdateProgramDatetime(ctx, c.client.Nad(), newDatetime)
		if err != nil {
			return 0, err
		}
		c.client = client

		head, err = c.client.ReadPlcHead(ctx)
		if err != nil {
			return 0, err
		}
		if err := head.Validate(); err != nil {
			return 0, ErrPlcHeadNotOK
		}

		status, err := c.client.ReadStatus(ctx)
		if err != nil {
			return 0, err
		}
		if !status.IsOperational() {
			return 0, ErrPlcHeadNotOK
		}
	}

	return head.CodeCRC, nil
}

// ProcessForDataLogger answers a data-logger task's read batch, caching
// the packed request/response pair per (task id, program crc) so a
// repeated poll of the same task against an unchanged program skips
// re-resolving ALC symbols and re-splitting requests. Grounded on
// PlcCommunicator.process_r_requests_for_data_logger/_read_for_data_logger.
func (c *Communicator) ProcessForDataLogger(ctx context.Context, requests []Request, taskID int) ([]Response, error) {
	crc, err := c.PlcHeadCheck(ctx)
	if errors.Is(err, ErrPlcHeadNotOK) {
		return responsesWithCode(requests, CodePlcHeadError), nil
	}
	if err != nil {
		return nil, err
	}

	entry, fetchErr := c.dataLog.GetOrFetch(ctx, taskID, crc, func(ctx context.Context) (datalogger.Entry, error) {
		vars, ok, alcErr := c.alc(ctx, c.client, crc)
		if alcErr != nil {
			return datalogger.Entry{}, alcErr
		}
		if !ok {
			return datalogger.Entry{}, errors.New("rw: controller unreachable while fetching alc")
		}
		if c.OnlyUserVariables {
			vars = filterUserVars(vars)
		}

		params, _, _ := buildReadParams(requests, vars)
		return datalogger.Entry{Request: params}, nil
	})

	c.activity.ReportAlcUsed(c.client.Nad(), crcOrNil(fetchErr, crc))

	if fetchErr != nil {
		return responsesWithCode(requests, CodeDeviceNotFound), nil
	}

	oneB, twoB, fourB, err := c.client.ReadRandomMemory(ctx, entry.Request)
	if err != nil {
		return nil, err
	}

	return decodeReadResponses(resolveOrderForCachedEntry(requests, entry.Request), oneB, twoB, fourB, true), nil
}

func crcOrNil(err error, crc uint32) *uint32 {
	if err != nil {
		return nil
	}
	return &crc
}

// resolveOrderForCachedEntry rebuilds the resolvedRead order purely from
// the cached RParams (address/width), since a cache hit skips ALC lookup
// entirely; names line up positionally with how buildReadParams originally
// grouped them (one-byte addrs, then two-byte, then four-byte).
func resolveOrderForCachedEntry(requests []Request, params plcclient.RParams) []resolvedRead {
	order := make([]resolvedRead, 0, len(requests))
	i := 0
	for range params.OneB {
		if i >= len(requests) {
			break
		}
		order = append(order, resolvedRead{request: requests[i], info: alc.VarInfo{Size: 1}})
		i++
	}
	for range params.TwoB {
		if i >= len(requests) {
			break
		}
		order = append(order, resolvedRead{request: requests[i], info: alc.VarInfo{Size: 2}})
		i++
	}
	for j := range params.FourB {
		if i >= len(requests) {
			break
		}
		dt := alc.DataTypeNone
		if j < len(params.FourTypes) {
			dt = params.FourTypes[j]
		}
		order = append(order, resolvedRead{request: requests[i], info: alc.VarInfo{Size: 4, DataType: dt}})
		i++
	}
	return order
}

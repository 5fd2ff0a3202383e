// Package exchange implements request/response matching over a physical
// transport (spec.md 4.D Exchanger, 4.E Router). Where the original ran
// both halves of this exchange cooperatively scheduled on one thread, this
// port follows the redesign note in spec.md 9: one goroutine owns each
// destination's serial request queue, and callers block on a per-call
// reply channel instead of polling a shared timer.
package exchange

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/cybroplc/abus-gateway/pkg/abus"
)

// Sender transmits an already-encoded frame to addr. Implemented by
// pkg/transport's Endpoint.
type Sender interface {
	Send(addr abus.Addr, frame []byte) error
}

// pendingRequest is one in-flight request awaiting its matching response.
type pendingRequest struct {
	msg     abus.Message
	addr    abus.Addr
	replyCh chan exchangeResult
}

type exchangeResult struct {
	response abus.Message
	err      error
}

// Exchanger serializes requests to a single destination NAD: one request is
// in flight at a time, retried up to MaxRetries times on timeout, and
// matched to its response by reversed (from,to,transaction_id) tag.
type Exchanger struct {
	log        *log.Entry
	sender     Sender
	nad        int
	timeout    time.Duration
	maxRetries int

	requests chan pendingRequest
	inflight map[abus.ExchangeTag]chan exchangeResult

	mu sync.Mutex

	done chan struct{}
}

// NewExchanger creates an Exchanger for the logical destination nad (a
// controller NAD, or a reserved NAD for push/detection traffic). Call Run
// in its own goroutine to start serving requests.
func NewExchanger(sender Sender, nad int, timeout time.Duration, maxRetries int) *Exchanger {
	return &Exchanger{
		log:        log.WithField("component", "exchanger").WithField("nad", nad),
		sender:     sender,
		nad:        nad,
		timeout:    timeout,
		maxRetries: maxRetries,
		requests:   make(chan pendingRequest),
		inflight:   make(map[abus.ExchangeTag]chan exchangeResult),
		done:       make(chan struct{}),
	}
}

// Run serves the exchanger's request queue until ctx is cancelled. It must
// run in its own goroutine.
func (e *Exchanger) Run(ctx context.Context) {
	defer close(e.done)
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-e.requests:
			e.serve(ctx, req)
		}
	}
}

// Exchange sends msg to addr and blocks until a matching response arrives,
// the exchange times out after retries, or ctx is cancelled.
func (e *Exchanger) Exchange(ctx context.Context, msg abus.Message, addr abus.Addr) (abus.Message, error) {
	reply := make(chan exchangeResult, 1)
	req := pendingRequest{msg: msg, addr: addr, replyCh: reply}

	select {
	case e.requests <- req:
	case <-ctx.Done():
		return abus.Message{}, ctx.Err()
	case <-e.done:
		return abus.Message{}, fmt.Errorf("exchange: exchanger for nad %d is stopped", e.nad)
	}

	select {
	case res := <-reply:
		return res.response, res.err
	case <-ctx.Done():
		return abus.Message{}, ctx.Err()
	}
}

// Deliver feeds an inbound response to whichever pending request it
// matches, and is called by the Router as frames arrive off the wire. It
// returns false if no matching request is outstanding.
func (e *Exchanger) Deliver(response abus.Message) bool {
	tag := response.ResponseTag()

	e.mu.Lock()
	ch, ok := e.inflight[tag]
	if ok {
		delete(e.inflight, tag)
	}
	e.mu.Unlock()

	if !ok {
		return false
	}

	ch <- exchangeResult{response: response}
	return true
}

func (e *Exchanger) serve(ctx context.Context, req pendingRequest) {
	tag := req.msg.RequestTag()
	resultCh := make(chan exchangeResult, 1)

	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		e.mu.Lock()
		e.inflight[tag] = resultCh
		e.mu.Unlock()

		if err := e.sender.Send(req.addr, req.msg.ToBytes()); err != nil {
			e.mu.Lock()
			delete(e.inflight, tag)
			e.mu.Unlock()
			req.replyCh <- exchangeResult{err: fmt.Errorf("exchange: send: %w", err)}
			return
		}

		select {
		case res := <-resultCh:
			req.replyCh <- res
			return
		case <-time.After(e.timeout):
			e.mu.Lock()
			delete(e.inflight, tag)
			e.mu.Unlock()
			if attempt < e.maxRetries {
				e.log.Debugf("timeout on attempt %d/%d for tag %+v, retrying", attempt+1, e.maxRetries+1, tag)
			}
		case <-ctx.Done():
			e.mu.Lock()
			delete(e.inflight, tag)
			e.mu.Unlock()
			req.replyCh <- exchangeResult{err: ctx.Err()}
			return
		}
	}

	req.replyCh <- exchangeResult{err: fmt.Errorf("exchange: timed out after %d attempts", e.maxRetries+1)}
}

// Package push acknowledges unsolicited push announcements from
// controllers that were not statically configured nor discovered by
// active scanning — a controller configured to "phone home" sends a push
// frame, this package answers it with PUSH_ACK, and on success teaches the
// directory the controller's address with Origin PUSH (spec.md 4.N).
//
// Grounded on
// original_source/.../local/services/push_service/push_service.py
// (PushService.receive/_handle_push's ack-then-learn flow) and
// config/push_config.py (the enabled/timeout_h shape, carried into
// pkg/config).
package push

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/cybroplc/abus-gateway/pkg/abus"
	"github.com/cybroplc/abus-gateway/pkg/directory"
)

// PushNad is the reserved logical NAD the gateway itself pushes
// acknowledgments from, grounded on defaults.py's PUSH_NAD.
const PushNad = 1001

// Exchanger sends a request to addr and waits for its matching response,
// satisfied by *exchange.Exchanger.
type Exchanger interface {
	Exchange(ctx context.Context, msg abus.Message, addr abus.Addr) (abus.Message, error)
}

// Activity accumulates push acknowledgment counters — no
// push_activity_service.py survived the distillation this package is
// grounded on, so the shape here follows the sibling PlcActivity counter
// style in pkg/directory/activity.go instead.
type Activity struct {
	mu                    sync.Mutex
	RequestsReceived      int64
	AcknowledgedSucceeded int64
	AcknowledgedFailed    int64
}

func (a *Activity) reportReceived() {
	a.mu.Lock()
	a.RequestsReceived++
	a.mu.Unlock()
}

func (a *Activity) reportSucceeded() {
	a.mu.Lock()
	a.AcknowledgedSucceeded++
	a.mu.Unlock()
}

func (a *Activity) reportFailed() {
	a.mu.Lock()
	a.AcknowledgedFailed++
	a.mu.Unlock()
}

// Snapshot returns a copy of the current counters.
func (a *Activity) Snapshot() Activity {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Activity{RequestsReceived: a.RequestsReceived, AcknowledgedSucceeded: a.AcknowledgedSucceeded, AcknowledgedFailed: a.AcknowledgedFailed}
}

// Service answers push announcements and teaches the directory about the
// controllers that sent them, matching PushService.
type Service struct {
	log *log.Entry

	directory *directory.Directory
	activity  *Activity
	exchanger Exchanger
	txIDs     *abus.TransactionIDGenerator
	timeout   time.Duration
}

// NewService builds a Service. Call SetExchanger before the first push
// arrives — the real Exchanger is only available once the transport layer
// has started, mirroring PushService.set_exchanger's late binding.
func NewService(dir *directory.Directory, activity *Activity, timeout time.Duration) *Service {
	return &Service{
		log:       log.WithField("component", "push"),
		directory: dir,
		activity:  activity,
		txIDs:     abus.NewTransactionIDGenerator(0),
		timeout:   timeout,
	}
}

// SetExchanger installs the Exchanger used to send PUSH_ACK frames.
func (s *Service) SetExchanger(exchanger Exchanger) {
	s.exchanger = exchanger
}

// HandlePush implements exchange.PushHandler. It is invoked on the
// router's goroutine, so the blocking ack exchange is offloaded to its own
// goroutine — the Go analog of receive()'s run_coroutine_threadsafe
// fire-and-forget scheduling.
func (s *Service) HandlePush(msg abus.Message) {
	go s.handle(msg)
}

func (s *Service) handle(msg abus.Message) {
	s.activity.reportReceived()
	nad := int(msg.FromNad)
	s.log.Debugf("push from c%d received", nad)

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	ack := abus.Message{
		Addr:          msg.Addr,
		FromNad:       PushNad,
		ToNad:         msg.FromNad,
		TransactionID: s.txIDs.Next(),
		Command:       abus.NewPushAck(),
	}

	if _, err := s.exchanger.Exchange(ctx, ack, msg.Addr); err != nil {
		s.activity.reportFailed()
		s.log.Debugf("push from c%d acknowledgment failed: %v", nad, err)
		return
	}

	s.activity.reportSucceeded()
	s.directory.Learn(directory.OriginPush, nad, msg.Addr.IP, msg.Addr.Port)
	s.log.Debugf("push from c%d acknowledged", nad)
}

package directory

import (
	"sync"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// DeviceStatus summarizes one controller's reachability and program state,
// derived from its exchange history — grounded on the original's
// PlcActivity.device_status property (SPEC_FULL.md supplemented feature 3).
type DeviceStatus int

const (
	DeviceStatusUnknown DeviceStatus = iota
	DeviceStatusOffline
	DeviceStatusNoProgram
	DeviceStatusOK
	DeviceStatusNoAlcFile
)

func (d DeviceStatus) String() string {
	switch d {
	case DeviceStatusOffline:
		return "OFFLINE"
	case DeviceStatusNoProgram:
		return "NO_PROGRAM"
	case DeviceStatusOK:
		return "OK"
	case DeviceStatusNoAlcFile:
		return "NO_ALCFILE"
	default:
		return "UNKNOWN"
	}
}

// PlcActivity accumulates one controller's exchange history, matching the
// original's PlcActivity dataclass field-for-field.
type PlcActivity struct {
	LastSuccessfulExchangeTime time.Time
	LastFailedExchangeTime     time.Time
	InitiatedExchangesCount    int64
	SuccessfulExchangesCount   int64
	FailedExchangesCount       int64
	BytesTransferred           int64
	LastUsedAlcCRC             *uint32
	LastPlcHeadEmpty           *uint16 // plc_head.empty of the most recently read head, if any
	LastPlcStatusKnown         bool
	LastExchangeDuration       time.Duration
}

// FinishedExchangesCount is successful + failed.
func (a PlcActivity) FinishedExchangesCount() int64 {
	return a.SuccessfulExchangesCount + a.FailedExchangesCount
}

// PendingExchangesCount is in flight: initiated but not yet finished.
func (a PlcActivity) PendingExchangesCount() int64 {
	return a.InitiatedExchangesCount - a.FinishedExchangesCount()
}

// DeviceStatus derives the controller's current status from its exchange
// history, following the original's priority: no traffic yet -> UNKNOWN;
// only failures -> OFFLINE; most recent event is a failure -> OFFLINE;
// otherwise derive from the last plc_head read.
func (a PlcActivity) DeviceStatus() DeviceStatus {
	if a.SuccessfulExchangesCount == 0 {
		if a.FailedExchangesCount == 0 {
			return DeviceStatusUnknown
		}
		return DeviceStatusOffline
	}

	if a.FailedExchangesCount == 0 {
		return a.deviceStatusFromPlcHead()
	}

	if a.LastSuccessfulExchangeTime.Before(a.LastFailedExchangeTime) {
		return DeviceStatusOffline
	}
	return a.deviceStatusFromPlcHead()
}

func (a PlcActivity) deviceStatusFromPlcHead() DeviceStatus {
	if a.LastPlcHeadEmpty == nil {
		return DeviceStatusUnknown
	}
	if a.LastUsedAlcCRC == nil {
		return DeviceStatusNoAlcFile
	}
	if *a.LastPlcHeadEmpty == 0 {
		return DeviceStatusOK
	}
	return DeviceStatusNoProgram
}

// ActivityService tracks per-NAD PlcActivity and mirrors the running totals
// into VictoriaMetrics/metrics counters/gauges for the sys.*/c<n>.sys.*
// HTTP surface.
type ActivityService struct {
	mu sync.Mutex
	byNad map[int]*PlcActivity

	initiated *metrics.Counter
	succeeded *metrics.Counter
	failed    *metrics.Counter
}

// NewActivityService creates an empty ActivityService.
func NewActivityService() *ActivityService {
	return &ActivityService{
		byNad:     make(map[int]*PlcActivity),
		initiated: metrics.NewCounter("abus_plc_exchanges_total{outcome=\"initiated\"}"),
		succeeded: metrics.NewCounter("abus_plc_exchanges_total{outcome=\"succeeded\"}"),
		failed:    metrics.NewCounter("abus_plc_exchanges_total{outcome=\"failed\"}"),
	}
}

func (s *ActivityService) entry(nad int) *PlcActivity {
	a, ok := s.byNad[nad]
	if !ok {
		a = &PlcActivity{}
		s.byNad[nad] = a
	}
	return a
}

// ReportExchangeInitiated records that a request was just sent to nad.
func (s *ActivityService) ReportExchangeInitiated(nad int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entry(nad).InitiatedExchangesCount++
	s.initiated.Inc()
}

// ReportExchangeSucceeded records a completed exchange's byte count and
// duration.
func (s *ActivityService) ReportExchangeSucceeded(nad int, bytesTransferred int, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.entry(nad)
	a.SuccessfulExchangesCount++
	a.BytesTransferred += int64(bytesTransferred)
	a.LastSuccessfulExchangeTime = time.Now()
	a.LastExchangeDuration = duration
	s.succeeded.Inc()
}

// ReportExchangeFailed records a timed-out or errored exchange.
func (s *ActivityService) ReportExchangeFailed(nad int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.entry(nad)
	a.FailedExchangesCount++
	a.LastFailedExchangeTime = time.Now()
	s.failed.Inc()
}

// ReportPlcHeadUsed records the empty-flag of the most recently read
// plc_head, or clears it (headEmpty == nil) when the read failed.
func (s *ActivityService) ReportPlcHeadUsed(nad int, headEmpty *uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entry(nad).LastPlcHeadEmpty = headEmpty
}

// ReportAlcUsed records the CRC of the ALC table used to serve the most
// recent request, or clears it when no ALC is available.
func (s *ActivityService) ReportAlcUsed(nad int, crc *uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entry(nad).LastUsedAlcCRC = crc
}

// ReportPlcStatusUsed records whether the most recent READ_STATUS
// succeeded.
func (s *ActivityService) ReportPlcStatusUsed(nad int, known bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entry(nad).LastPlcStatusKnown = known
}

// Get returns a copy of nad's current activity snapshot.
func (s *ActivityService) Get(nad int) PlcActivity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.byNad[nad]; ok {
		return *a
	}
	return PlcActivity{}
}

// LastUsedAlcCRC returns the crc of the ALC table nad's most recent
// exchange used, without issuing any PLC I/O — the Go counterpart of
// plc_comm_service.py's get_crc, which reads the last known plc_head
// rather than triggering a fresh read. Used by pkg/socket to resolve an
// unsolicited socket event's variable table.
func (s *ActivityService) LastUsedAlcCRC(nad int) (uint32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byNad[nad]
	if !ok || a.LastUsedAlcCRC == nil {
		return 0, false
	}
	return *a.LastUsedAlcCRC, true
}

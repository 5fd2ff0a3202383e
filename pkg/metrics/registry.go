// Package metrics answers the reserved `sys.*`/`c<n>.sys.*` status keys
// (spec.md's SYSTEM/PLC_SYSTEM targets, SPEC_FULL.md supplemented feature
// 2) and exposes gateway-level counters for scraping.
//
// Grounded on
// original_source/.../status_services/system_status_service.py
// (SystemStatusService's uptime/udp-counter/push-counter properties) and
// single_plc_status_service.py (SinglePlcStatusService's per-NAD status
// properties), backed by `github.com/VictoriaMetrics/metrics` the way
// R2Northstar-Atlas's pkg/api/api0/metrics.go keeps a `*metrics.Set` of
// named counters.
package metrics

import (
	"net/http"
	"time"

	vm "github.com/VictoriaMetrics/metrics"
)

// Registry holds gateway-wide counters independent of any one controller,
// grounded on UdpActivityService/ScgiActivityService.
type Registry struct {
	set       *vm.Set
	startedAt time.Time

	udpRx        *vm.Counter
	udpTx        *vm.Counter
	scgiRequests *vm.Counter
}

// NewRegistry creates a Registry with its own metric set, started now.
func NewRegistry(version string) *Registry {
	set := vm.NewSet()
	r := &Registry{
		set:          set,
		startedAt:    time.Now(),
		udpRx:        set.NewCounter(`abus_gateway_udp_datagrams_total{direction="rx"}`),
		udpTx:        set.NewCounter(`abus_gateway_udp_datagrams_total{direction="tx"}`),
		scgiRequests: set.NewCounter(`abus_gateway_scgi_requests_total`),
	}
	set.NewGauge(`abus_gateway_build_info{version="`+version+`"}`, func() float64 { return 1 })
	return r
}

// ReportUDPRx records one inbound UDP datagram.
func (r *Registry) ReportUDPRx() { r.udpRx.Inc() }

// ReportUDPTx records one outbound UDP datagram.
func (r *Registry) ReportUDPTx() { r.udpTx.Inc() }

// ReportSCGIRequest records one resolved SCGI/HTTP query.
func (r *Registry) ReportSCGIRequest() { r.scgiRequests.Inc() }

// UptimeSeconds is the gateway process uptime.
func (r *Registry) UptimeSeconds() float64 { return time.Since(r.startedAt).Seconds() }

// UDPRxTotal and UDPTxTotal read back the raw counters for sys.* rendering.
func (r *Registry) UDPRxTotal() uint64 { return r.udpRx.Get() }
func (r *Registry) UDPTxTotal() uint64 { return r.udpTx.Get() }

// Handler exposes the registry in Prometheus exposition format, for an
// optional scrape endpoint — not part of spec.md's external interfaces,
// but the natural counterpart to wiring a real metrics library rather than
// hand-rolled counters.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		r.set.WritePrometheus(w)
	})
}

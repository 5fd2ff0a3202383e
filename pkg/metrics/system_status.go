package metrics

import (
	"context"
	"fmt"

	"github.com/cybroplc/abus-gateway/pkg/directory"
	"github.com/cybroplc/abus-gateway/pkg/push"
	"github.com/cybroplc/abus-gateway/pkg/rw"
)

// SystemStatus implements rw.SystemStatusHandler: it answers `sys.*`
// requests, grounded on SystemStatusService's uptime/udp/push properties.
type SystemStatus struct {
	registry  *Registry
	directory *directory.Directory
	push      *push.Activity
	version   string
}

// NewSystemStatus builds a SystemStatus handler.
func NewSystemStatus(registry *Registry, dir *directory.Directory, pushActivity *push.Activity, version string) *SystemStatus {
	return &SystemStatus{registry: registry, directory: dir, push: pushActivity, version: version}
}

// Process answers one batch of `sys.*` requests.
func (s *SystemStatus) Process(ctx context.Context, requests []rw.Request) ([]rw.Response, error) {
	responses := make([]rw.Response, len(requests))
	for i, req := range requests {
		responses[i] = s.resolve(req)
	}
	return responses, nil
}

func (s *SystemStatus) resolve(req rw.Request) rw.Response {
	value, ok := s.value(req.TagName)
	if !ok {
		return rw.Response{Name: req.Name, TagName: req.TagName, Value: req.Value, Code: rw.CodeUnknown}
	}
	return rw.Response{Name: req.Name, TagName: req.TagName, Value: value, Valid: true, Code: rw.CodeNoError}
}

func (s *SystemStatus) value(name string) (string, bool) {
	switch name {
	case "status":
		return "active", true
	case "version":
		return s.version, true
	case "uptime":
		return fmt.Sprintf("%.0f", s.registry.UptimeSeconds()), true
	case "udp_rx":
		return fmt.Sprintf("%d", s.registry.UDPRxTotal()), true
	case "udp_tx":
		return fmt.Sprintf("%d", s.registry.UDPTxTotal()), true
	case "push_ack_succeeded":
		return fmt.Sprintf("%d", s.push.Snapshot().AcknowledgedSucceeded), true
	case "push_ack_failed":
		return fmt.Sprintf("%d", s.push.Snapshot().AcknowledgedFailed), true
	case "plc_count":
		return fmt.Sprintf("%d", len(s.directory.All())), true
	default:
		return "", false
	}
}

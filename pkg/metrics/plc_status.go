package metrics

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/cybroplc/abus-gateway/pkg/alc"
	"github.com/cybroplc/abus-gateway/pkg/directory"
	"github.com/cybroplc/abus-gateway/pkg/rw"
)

// PlcStatus implements rw.PlcStatusHandler: it answers `c<n>.sys.*`
// requests without going through a PLC client, grounded on
// SinglePlcStatusService's plc_info/plc_activity-derived properties.
type PlcStatus struct {
	directory *directory.Directory
	activity  *directory.ActivityService
	alc       *alc.Store
}

// NewPlcStatus builds a PlcStatus handler.
func NewPlcStatus(dir *directory.Directory, activity *directory.ActivityService, store *alc.Store) *PlcStatus {
	return &PlcStatus{directory: dir, activity: activity, alc: store}
}

// Process answers one batch of `c<nad>.sys.*` requests for a single NAD.
func (p *PlcStatus) Process(ctx context.Context, nad int, requests []rw.Request) ([]rw.Response, error) {
	info, hasInfo := p.directory.Get(nad)
	act := p.activity.Get(nad)

	responses := make([]rw.Response, len(requests))
	for i, req := range requests {
		responses[i] = p.resolve(req, info, hasInfo, act)
	}
	return responses, nil
}

func (p *PlcStatus) resolve(req rw.Request, info directory.PlcInfo, hasInfo bool, act directory.PlcActivity) rw.Response {
	value, ok := p.value(req.TagName, info, hasInfo, act)
	if !ok {
		return rw.Response{Name: req.Name, TagName: req.TagName, Value: req.Value, Code: rw.CodeUnknown}
	}
	return rw.Response{Name: req.Name, TagName: req.TagName, Value: value, Valid: true, Code: rw.CodeNoError}
}

func (p *PlcStatus) value(name string, info directory.PlcInfo, hasInfo bool, act directory.PlcActivity) (string, bool) {
	switch name {
	case "plc_status":
		return act.DeviceStatus().String(), true
	case "timestamp":
		if !hasInfo || info.ProgramDatetime == nil {
			return "", true
		}
		return info.ProgramDatetime.Format("2006-01-02T15:04:05"), true
	case "ip_port":
		if !hasInfo || !info.HasIP() {
			return "", true
		}
		return fmt.Sprintf("%s:%d", *info.IP, info.Port), true
	case "response_time":
		return fmt.Sprintf("%.3f", act.LastExchangeDuration.Seconds()), true
	case "bytes_transferred":
		return fmt.Sprintf("%d", act.BytesTransferred), true
	case "com_error_count":
		return fmt.Sprintf("%d", act.FailedExchangesCount), true
	case "alc_file":
		if act.LastUsedAlcCRC == nil {
			return "", true
		}
		return fmt.Sprintf("crc-%d.alc", *act.LastUsedAlcCRC), true
	case "variables":
		return p.variableList(act), true
	default:
		return "", false
	}
}

// variableList renders sys.variables: the full resolved tag-name list for
// the controller's current ALC table, comma-joined in sorted order.
func (p *PlcStatus) variableList(act directory.PlcActivity) string {
	if act.LastUsedAlcCRC == nil {
		return ""
	}
	table, ok := p.alc.Get(*act.LastUsedAlcCRC)
	if !ok {
		return ""
	}

	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

package plcclient

import "fmt"

// PlcStatus enumerates the controller run states read via READ_STATUS.
type PlcStatus uint8

const (
	PlcStatusStop  PlcStatus = 0
	PlcStatusRun   PlcStatus = 1
	PlcStatusPause PlcStatus = 2
)

func (s PlcStatus) String() string {
	switch s {
	case PlcStatusStop:
		return "STOP"
	case PlcStatusRun:
		return "RUN"
	case PlcStatusPause:
		return "PAUSE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(s))
	}
}

// Status is the decoded READ_STATUS response body: the run state plus the
// kernel-active flag spec.md 4.I's program-change handling checks for.
type Status struct {
	PlcStatus    PlcStatus
	KernelActive bool
}

// ParseStatus decodes a READ_STATUS response body.
func ParseStatus(data []byte) (Status, error) {
	if len(data) < 2 {
		return Status{}, fmt.Errorf("plcclient: status response too short: %d bytes", len(data))
	}
	return Status{
		PlcStatus:    PlcStatus(data[0]),
		KernelActive: data[1] != 0,
	}, nil
}

// IsOperational reports the condition spec.md 4.I's program-change handler
// checks after a program change: RUN or PAUSE, with the kernel active.
func (s Status) IsOperational() bool {
	return s.KernelActive && (s.PlcStatus == PlcStatusRun || s.PlcStatus == PlcStatusPause)
}

package plcclient

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/cybroplc/abus-gateway/pkg/abus"
	"github.com/cybroplc/abus-gateway/pkg/directory"
)

// SegmentSize is the fixed size of one READ_CODE_MEMORY_BLOCK segment,
// grounded on PlcClient.SEGMENT_SIZE.
const SegmentSize = 0x100

// Exchanger is the subset of *exchange.Exchanger a PLC client needs.
type Exchanger interface {
	Exchange(ctx context.Context, msg abus.Message, addr abus.Addr) (abus.Message, error)
}

// Activity is the subset of *directory.ActivityService a PLC client reports
// into.
type Activity interface {
	ReportExchangeInitiated(nad int)
	ReportExchangeSucceeded(nad int, bytesTransferred int, duration time.Duration)
	ReportExchangeFailed(nad int)
	ReportPlcHeadUsed(nad int, headEmpty *uint16)
	ReportPlcStatusUsed(nad int, known bool)
}

// Client is one controller's high-level operation surface (spec.md 4.I):
// ping, head/status reads, ALC fetch, and frame-split-aware random-memory
// read/write, each routed through a single Exchanger.
type Client struct {
	log      *log.Entry
	nad      int
	plcInfo  directory.PlcInfo
	activity Activity
	txGen    *abus.TransactionIDGenerator
	splitter Splitter
	exchanger Exchanger
}

// NewClient creates a Client for one controller.
func NewClient(nad int, plcInfo directory.PlcInfo, activity Activity, txGen *abus.TransactionIDGenerator, maxFrameSize int, exchanger Exchanger) *Client {
	return &Client{
		log:       log.WithField("component", "plcclient").WithField("nad", nad),
		nad:       nad,
		plcInfo:   plcInfo,
		activity:  activity,
		txGen:     txGen,
		splitter:  Splitter{MaxFrameSize: maxFrameSize},
		exchanger: exchanger,
	}
}

// HasIP reports whether this controller's address is currently known.
func (c *Client) HasIP() bool {
	return c.plcInfo.HasIP()
}

// Nad returns the controller NAD this client talks to.
func (c *Client) Nad() int {
	return c.nad
}

// PlcInfo returns the directory snapshot this client was built with (its
// origin, known program datetime, and address), used by the RW
// orchestrator to decide whether a failed exchange is worth retrying
// against a freshly re-detected address.
func (c *Client) PlcInfo() directory.PlcInfo {
	return c.plcInfo
}

func (c *Client) addr() abus.Addr {
	if !c.plcInfo.HasIP() {
		return abus.Addr{}
	}
	return abus.Addr{IP: *c.plcInfo.IP, Port: c.plcInfo.Port}
}

func (c *Client) createRequest(command abus.CommandFrame) abus.Message {
	txID := abus.TransactionIDFor(c.plcInfo.Password, c.txGen)
	return abus.Message{
		Addr:          c.addr(),
		FromNad:       0,
		ToNad:         uint16(c.nad),
		TransactionID: txID,
		Command:       command,
	}
}

// send performs one request/response round trip, reporting exchange
// activity around it the way the original's PlcClient._send does.
func (c *Client) send(ctx context.Context, command abus.CommandFrame) (abus.Message, error) {
	request := c.createRequest(command)
	c.activity.ReportExchangeInitiated(c.nad)

	start := time.Now()
	response, err := c.exchanger.Exchange(ctx, request, request.Addr)
	if err != nil {
		c.activity.ReportExchangeFailed(c.nad)
		return abus.Message{}, err
	}

	c.activity.ReportExchangeSucceeded(c.nad, request.Size()+response.Size(), time.Since(start))
	return response, nil
}

func (c *Client) sendAndExtract(ctx context.Context, command abus.CommandFrame) (abus.CommandFrame, error) {
	response, err := c.send(ctx, command)
	if err != nil {
		return abus.CommandFrame{}, err
	}
	return response.Command, nil
}

// Ping sends a PING and returns the raw response command frame.
func (c *Client) Ping(ctx context.Context) (abus.CommandFrame, error) {
	return c.sendAndExtract(ctx, abus.NewPing())
}

// AcknowledgePush sends a PUSH_ACK.
func (c *Client) AcknowledgePush(ctx context.Context) (abus.CommandFrame, error) {
	return c.sendAndExtract(ctx, abus.NewPushAck())
}

// ReadPlcHead reads and validates the controller's plc_head (spec.md
// 4.I.1).
func (c *Client) ReadPlcHead(ctx context.Context) (PlcHead, error) {
	cmd, err := c.sendAndExtract(ctx, abus.NewReadCodeMemoryBlock(PlcHeadMemorySegment, PlcHeadSize))
	if err != nil {
		c.activity.ReportPlcHeadUsed(c.nad, nil)
		return PlcHead{}, err
	}

	head, err := ParsePlcHead(cmd.BodyBytes())
	if err != nil {
		c.activity.ReportPlcHeadUsed(c.nad, nil)
		return PlcHead{}, err
	}

	empty := head.Empty
	c.activity.ReportPlcHeadUsed(c.nad, &empty)
	return head, nil
}

// ReadStatus reads the controller's run status.
func (c *Client) ReadStatus(ctx context.Context) (Status, error) {
	cmd, err := c.sendAndExtract(ctx, abus.NewReadStatus())
	if err != nil {
		c.activity.ReportPlcStatusUsed(c.nad, false)
		return Status{}, err
	}
	status, err := ParseStatus(cmd.BodyBytes())
	if err != nil {
		c.activity.ReportPlcStatusUsed(c.nad, false)
		return Status{}, err
	}
	c.activity.ReportPlcStatusUsed(c.nad, true)
	return status, nil
}

// ReadFileDescriptorsAddrAndCount reads the 6-byte pointer record at
// FileDescriptorsInfoSegment.
func (c *Client) ReadFileDescriptorsAddrAndCount(ctx context.Context) (FileDescriptorsInfo, error) {
	data, err := c.readCodeMemory(ctx, uint32(FileDescriptorsInfoSegment), uint32(FileDescriptorsInfoSize))
	if err != nil {
		return FileDescriptorsInfo{}, err
	}
	return ParseFileDescriptorsInfo(data)
}

// ReadFileDescriptors reads count fixed-size file descriptor records
// starting at addr.
func (c *Client) ReadFileDescriptors(ctx context.Context, addr uint32, count int) ([]FileDescriptor, error) {
	data, err := c.readCodeMemory(ctx, addr, uint32(count*FileDescriptorSize))
	if err != nil {
		return nil, err
	}
	return ParseFileDescriptors(data, count)
}

// FetchAlcFile locates and reads the alc.zip file from the controller's
// code memory file system (spec.md 4.I.3).
func (c *Client) FetchAlcFile(ctx context.Context) ([]byte, error) {
	info, err := c.ReadFileDescriptorsAddrAndCount(ctx)
	if err != nil {
		return nil, err
	}

	descriptors, err := c.ReadFileDescriptors(ctx, info.Address, int(info.Count))
	if err != nil {
		return nil, err
	}

	fd, ok := FindByName(descriptors, "alc.zip")
	if !ok {
		return nil, fmt.Errorf("plcclient: c%d has no alc.zip in its file descriptor table", c.nad)
	}

	return c.readCodeMemory(ctx, fd.Address, fd.Size)
}

// readCodeMemory reads size bytes starting at addr, splitting the read
// across as many SEGMENT_SIZE-bounded READ_CODE_MEMORY_BLOCK requests as
// needed (spec.md 4.I item 6 / PlcClient._generate_read_info).
func (c *Client) readCodeMemory(ctx context.Context, addr uint32, size uint32) ([]byte, error) {
	var result []byte
	for _, seg := range generateReadInfo(addr, size) {
		cmd, err := c.sendAndExtract(ctx, abus.NewReadCodeMemoryBlock(uint16(seg.segmentNumber), uint16(seg.size)))
		if err != nil {
			return nil, err
		}
		body := cmd.BodyBytes()
		if len(body) < int(seg.offset)+int(seg.size) {
			return nil, fmt.Errorf(
				"plcclient: c%d segment %d response too short: have %d bytes, need offset+size %d",
				c.nad, seg.segmentNumber, len(body), int(seg.offset)+int(seg.size))
		}
		result = append(result, body[seg.offset:seg.offset+seg.size]...)
	}
	return result, nil
}

type readSegment struct {
	segmentNumber uint32
	offset        uint32
	size          uint32
}

// generateReadInfo computes the sequence of (segment, offset, size) reads
// needed to cover [addr, addr+size), exactly as PlcClient._generate_read_info
// does.
func generateReadInfo(addr, size uint32) []readSegment {
	if size == 0 {
		return nil
	}
	firstSegment := addr / SegmentSize
	firstOffset := addr % SegmentSize
	lastSegment := (addr + size - 1) / SegmentSize
	lastEnd := (addr+size-1)%SegmentSize + 1

	var segments []readSegment
	for seg := firstSegment; seg <= lastSegment; seg++ {
		offset := uint32(0)
		if seg == firstSegment {
			offset = firstOffset
		}
		segSize := uint32(SegmentSize) - offset
		if seg == lastSegment {
			segSize = lastEnd - offset
		}
		segments = append(segments, readSegment{segmentNumber: seg, offset: offset, size: segSize})
	}
	return segments
}

// ReadRandomMemory reads the given 1/2/4-byte variables, splitting across
// as many requests as MaxFrameSize requires, and returns the decoded
// values in the same order as the address lists (spec.md 4.I item 5).
func (c *Client) ReadRandomMemory(ctx context.Context, params RParams) ([]uint8, []int16, []float64, error) {
	use, rest := c.splitter.SplitRead(params)

	oneB, twoB, fourB, err := c.readRandomMemorySingleRequest(ctx, use)
	if err != nil {
		return nil, nil, nil, err
	}

	if rest == nil {
		return oneB, twoB, fourB, nil
	}

	restOneB, restTwoB, restFourB, err := c.ReadRandomMemory(ctx, *rest)
	if err != nil {
		return nil, nil, nil, err
	}
	return append(oneB, restOneB...), append(twoB, restTwoB...), append(fourB, restFourB...), nil
}

func (c *Client) readRandomMemorySingleRequest(ctx context.Context, params RParams) ([]uint8, []int16, []float64, error) {
	command := abus.NewReadRandomMemory(params.OneB, params.TwoB, params.FourB)
	cmd, err := c.sendAndExtract(ctx, command)
	if err != nil {
		return nil, nil, nil, err
	}
	return decodeRandomMemoryResponse(cmd.BodyBytes(), len(params.OneB), len(params.TwoB), params.FourTypes)
}

// WriteRandomMemory writes the given 1/2/4-byte variables, splitting across
// as many requests as MaxFrameSize requires.
func (c *Client) WriteRandomMemory(ctx context.Context, params WParams) error {
	use, rest := c.splitter.SplitWrite(params)

	if err := c.writeRandomMemorySingleRequest(ctx, use); err != nil {
		return err
	}
	if rest == nil {
		return nil
	}
	return c.WriteRandomMemory(ctx, *rest)
}

func (c *Client) writeRandomMemorySingleRequest(ctx context.Context, params WParams) error {
	oneBValues, twoBValues, fourBValues, err := packRandomMemoryValues(params)
	if err != nil {
		return err
	}
	command := abus.NewWriteRandomMemory(
		params.OneBAddrs, params.TwoBAddrs, params.FourBAddrs,
		oneBValues, twoBValues, fourBValues,
	)
	_, err = c.sendAndExtract(ctx, command)
	return err
}

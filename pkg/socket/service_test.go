package socket

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybroplc/abus-gateway/pkg/abus"
	"github.com/cybroplc/abus-gateway/pkg/alc"
)

type fakeCrcProvider struct {
	crc uint32
	ok  bool
}

func (f fakeCrcProvider) LastUsedAlcCRC(nad int) (uint32, bool) { return f.crc, f.ok }

type fakeAlcProvider struct {
	tables map[uint32]map[string]alc.VarInfo
}

func (f fakeAlcProvider) Get(crc uint32) (map[string]alc.VarInfo, bool) {
	t, ok := f.tables[crc]
	return t, ok
}

type recordingBroadcaster struct {
	mu   sync.Mutex
	docs [][]byte
	done chan struct{}
}

func newRecordingBroadcaster() *recordingBroadcaster {
	return &recordingBroadcaster{done: make(chan struct{}, 10)}
}

func (r *recordingBroadcaster) Broadcast(doc []byte) {
	r.mu.Lock()
	r.docs = append(r.docs, doc)
	r.mu.Unlock()
	r.done <- struct{}{}
}

func (r *recordingBroadcaster) waitOne(t *testing.T) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast")
	}
}

func socketEventMsg(nad uint16, socketNum uint16, bit uint8) abus.Message {
	return abus.Message{
		FromNad: nad,
		Command: abus.CommandFrame{Body: []byte{byte(abus.CommandPushAck), bit}, MsgType: abus.MsgType(socketNum)},
	}
}

func TestHandleSocketBroadcastsDecodedEvent(t *testing.T) {
	sockets := Config{1: Definition{Bit: []string{"flag"}}}
	crcProvider := fakeCrcProvider{crc: 99, ok: true}
	alcProvider := fakeAlcProvider{tables: map[uint32]map[string]alc.VarInfo{99: {"flag": {Name: "flag"}}}}
	broadcaster := newRecordingBroadcaster()

	svc := NewService(sockets, crcProvider, alcProvider, noAliases{}, broadcaster)
	svc.HandleSocket(socketEventMsg(3, 1, 1))

	broadcaster.waitOne(t)
	require.Len(t, broadcaster.docs, 1)
	assert.Contains(t, string(broadcaster.docs[0]), "<name>flag</name>")
}

func TestHandleSocketDropsWhenNoKnownCrc(t *testing.T) {
	sockets := Config{1: Definition{Bit: []string{"flag"}}}
	crcProvider := fakeCrcProvider{ok: false}
	alcProvider := fakeAlcProvider{tables: map[uint32]map[string]alc.VarInfo{}}
	broadcaster := newRecordingBroadcaster()

	svc := NewService(sockets, crcProvider, alcProvider, noAliases{}, broadcaster)
	svc.HandleSocket(socketEventMsg(3, 1, 1))

	select {
	case <-broadcaster.done:
		t.Fatal("expected no broadcast")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHandleSocketDropsWhenAlcTableMissing(t *testing.T) {
	sockets := Config{1: Definition{Bit: []string{"flag"}}}
	crcProvider := fakeCrcProvider{crc: 7, ok: true}
	alcProvider := fakeAlcProvider{tables: map[uint32]map[string]alc.VarInfo{}}
	broadcaster := newRecordingBroadcaster()

	svc := NewService(sockets, crcProvider, alcProvider, noAliases{}, broadcaster)
	svc.HandleSocket(socketEventMsg(3, 1, 1))

	select {
	case <-broadcaster.done:
		t.Fatal("expected no broadcast")
	case <-time.After(100 * time.Millisecond):
	}
}

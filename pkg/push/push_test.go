package push

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybroplc/abus-gateway/pkg/abus"
	"github.com/cybroplc/abus-gateway/pkg/directory"
)

type fakeExchanger struct {
	fail bool
	last abus.Message
}

func (f *fakeExchanger) Exchange(ctx context.Context, msg abus.Message, addr abus.Addr) (abus.Message, error) {
	f.last = msg
	if f.fail {
		return abus.Message{}, errors.New("exchange: timed out")
	}
	return abus.Message{Command: abus.NewAcknowledge(abus.CommandPushAck, nil)}, nil
}

func pushFrame(nad uint16) abus.Message {
	return abus.Message{
		Addr:    abus.Addr{IP: "10.0.0.9", Port: 8442},
		FromNad: nad,
		ToNad:   0,
		Command: abus.CommandFrame{Direction: abus.DirectionAcknowledge, MsgType: abus.MsgTypeCommand, Body: []byte{byte(abus.CommandPing)}},
	}
}

func waitForCondition(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for condition")
}

func TestHandlePushAcknowledgesAndLearnsDirectory(t *testing.T) {
	dir := directory.NewDirectory(time.Hour)
	activity := &Activity{}
	exch := &fakeExchanger{}

	svc := NewService(dir, activity, time.Second)
	svc.SetExchanger(exch)
	svc.HandlePush(pushFrame(42))

	waitForCondition(t, func() bool {
		_, ok := dir.Get(42)
		return ok
	})

	info, ok := dir.Get(42)
	require.True(t, ok)
	assert.Equal(t, directory.OriginPush, info.Origin)
	assert.Equal(t, uint16(PushNad), exch.last.FromNad)
	assert.Equal(t, uint16(42), exch.last.ToNad)

	snap := activity.Snapshot()
	assert.Equal(t, int64(1), snap.RequestsReceived)
	assert.Equal(t, int64(1), snap.AcknowledgedSucceeded)
}

func TestHandlePushDoesNotLearnOnAckFailure(t *testing.T) {
	dir := directory.NewDirectory(time.Hour)
	activity := &Activity{}
	exch := &fakeExchanger{fail: true}

	svc := NewService(dir, activity, time.Second)
	svc.SetExchanger(exch)
	svc.HandlePush(pushFrame(7))

	waitForCondition(t, func() bool {
		return activity.Snapshot().AcknowledgedFailed == 1
	})

	_, ok := dir.Get(7)
	assert.False(t, ok)
}

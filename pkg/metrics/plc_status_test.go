package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybroplc/abus-gateway/pkg/alc"
	"github.com/cybroplc/abus-gateway/pkg/directory"
	"github.com/cybroplc/abus-gateway/pkg/rw"
)

func TestPlcStatusResolvesKnownKeys(t *testing.T) {
	dir := directory.NewDirectory(time.Hour)
	dir.PutStatic(10010, "192.168.1.47", 8442, nil)

	activity := directory.NewActivityService()
	activity.ReportExchangeSucceeded(10010, 128, 50*time.Millisecond)
	crc := uint32(77)
	activity.ReportAlcUsed(10010, &crc)

	store := alc.NewStore(t.TempDir())
	require.NoError(t, store.Set(77, "0100 01 1 0 1 G BIT flag Running flag\n"))

	p := NewPlcStatus(dir, activity, store)
	responses, err := p.Process(context.Background(), 10010, []rw.Request{
		{Name: "c10010.sys.ip_port", TagName: "ip_port", Nad: 10010},
		{Name: "c10010.sys.bytes_transferred", TagName: "bytes_transferred", Nad: 10010},
	})
	require.NoError(t, err)
	require.Len(t, responses, 2)
	assert.Equal(t, "192.168.1.47:8442", responses[0].Value)
	assert.Equal(t, "128", responses[1].Value)
}

func TestPlcStatusUnknownKeyIsUnknownCode(t *testing.T) {
	p := NewPlcStatus(directory.NewDirectory(time.Hour), directory.NewActivityService(), alc.NewStore(t.TempDir()))
	responses, err := p.Process(context.Background(), 10010, []rw.Request{{Name: "c10010.sys.bogus", TagName: "bogus", Nad: 10010}})
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.Equal(t, rw.CodeUnknown, responses[0].Code)
}

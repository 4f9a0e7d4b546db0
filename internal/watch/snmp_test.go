package watch

import (
	"context"
	"testing"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HerbHall/watchdesk/internal/testutil"
	"github.com/HerbHall/watchdesk/pkg/models"
)

func TestRawSampleMetrics(t *testing.T) {
	now := time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)
	s := RawSample{UptimeTicks: 360000, CPULoad: 42, StorageUsed: 61, DiskUsed: 73, InOctets: 1000, OutOctets: 2000}

	m := s.Metrics(now)
	assert.Equal(t, 42.0, m.CPUUsage)
	assert.Equal(t, 61.0, m.MemoryUsage)
	assert.Equal(t, 73.0, m.DiskUsage)
	assert.Equal(t, int64(1000), m.Traffic.Inbound)
	assert.Equal(t, int64(2000), m.Traffic.Outbound)
	assert.Equal(t, int64(360000), m.Uptime)
	assert.Equal(t, now, m.CollectedAt)
}

func TestSessionVersionMapping(t *testing.T) {
	pool := NewSessionPool(testutil.Logger(), 10*time.Millisecond, 0)
	defer pool.Close()

	v1 := testutil.NewDevice(testutil.WithIP("127.0.0.1"))
	v1.Version = models.SNMPv1
	s, err := pool.session(v1)
	require.NoError(t, err)
	assert.Equal(t, gosnmp.Version1, s.Version)
	assert.Equal(t, uint16(161), s.Port)
	assert.Equal(t, 0, s.Retries)

	v2 := testutil.NewDevice(testutil.WithIP("127.0.0.1"))
	v2.Version = models.SNMPv2c
	s2, err := pool.session(v2)
	require.NoError(t, err)
	assert.Equal(t, gosnmp.Version2c, s2.Version)
}

func TestSessionReused(t *testing.T) {
	pool := NewSessionPool(testutil.Logger(), 10*time.Millisecond, 0)
	defer pool.Close()

	device := testutil.NewDevice(testutil.WithIP("127.0.0.1"))
	first, err := pool.session(device)
	require.NoError(t, err)
	second, err := pool.session(device)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestQueryTimeoutMapsToUnreachable(t *testing.T) {
	pool := NewSessionPool(testutil.Logger(), 10*time.Millisecond, 0)
	defer pool.Close()

	// Nothing listens on the loopback SNMP port in tests; the query times
	// out and must surface as ErrDeviceUnreachable.
	device := testutil.NewDevice(testutil.WithIP("127.0.0.1"))
	_, err := pool.Query(context.Background(), device)
	assert.ErrorIs(t, err, ErrDeviceUnreachable)
}

func TestCloseAllowsRecreate(t *testing.T) {
	pool := NewSessionPool(testutil.Logger(), 10*time.Millisecond, 0)
	device := testutil.NewDevice(testutil.WithIP("127.0.0.1"))

	_, err := pool.session(device)
	require.NoError(t, err)
	pool.Close()
	assert.Empty(t, pool.sessions)

	_, err = pool.session(device)
	require.NoError(t, err)
	pool.Close()
}

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"opagate/internal/debuglog"
	"opagate/internal/domain"
)

func TestMetrics_TrackBuffer(t *testing.T) {
	buf := debuglog.NewBuffer(debuglog.WithCapacity(2))
	defer buf.Close()
	m := New(prometheus.NewRegistry(), buf)

	assert.Equal(t, 0.0, promtest.ToFloat64(m.Entries))
	assert.Equal(t, 0.0, promtest.ToFloat64(m.Evicted))

	for _, id := range []string{"a", "b", "c", "d", "e"} {
		buf.Record(domain.DebugEntry{ID: id})
	}

	assert.Equal(t, 2.0, promtest.ToFloat64(m.Entries))
	assert.Equal(t, 3.0, promtest.ToFloat64(m.Evicted))

	buf.Clear()
	assert.Equal(t, 0.0, promtest.ToFloat64(m.Entries))
	assert.Equal(t, 3.0, promtest.ToFloat64(m.Evicted), "clearing is not eviction")
}

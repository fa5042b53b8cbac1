package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(WishlistStrategies.WithLabelValues("html", OutcomeEmpty))
	WishlistStrategies.WithLabelValues("html", OutcomeEmpty).Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(WishlistStrategies.WithLabelValues("html", OutcomeEmpty)))

	before = testutil.ToFloat64(EventsWritten)
	EventsWritten.Add(2)
	assert.Equal(t, before+2, testutil.ToFloat64(EventsWritten))
}

func TestWriteTextfile(t *testing.T) {
	Lookups.WithLabelValues(OutcomeSuccess).Inc()
	path := filepath.Join(t.TempDir(), "steamcal.prom")

	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "steamcal_lookups_total")
}

func TestWriteTextfile_NoPath(t *testing.T) {
	assert.NoError(t, WriteTextfile(""))
}

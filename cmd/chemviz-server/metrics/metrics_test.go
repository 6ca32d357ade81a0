package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/OmDhavale/Chemical-Equipment-Parameter-Visualizer/pkg/pipeline"
)

var _ pipeline.Observer = (*Metrics)(nil)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveStage(pipeline.StageRead, 5*time.Millisecond, nil)
	m.ObserveStage(pipeline.StageRead, 7*time.Millisecond, errors.New("bad csv"))
	m.RecordIngestion(pipeline.OutcomeSuccess)
	m.RecordIngestion(pipeline.OutcomeSchema)
	m.RecordIngestion(pipeline.OutcomeSchema)
	m.RecordReport("pdf", pipeline.OutcomeSuccess)
	m.RecordEvictions(2)
	m.RecordEvictions(1)

	if got := testutil.CollectAndCount(m.StageSeconds); got != 1 {
		t.Errorf("stage series = %d, want 1", got)
	}
	if got := testutil.ToFloat64(m.IngestionsTotal.WithLabelValues(pipeline.OutcomeSchema)); got != 2 {
		t.Errorf("schema ingestions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ReportsTotal.WithLabelValues("pdf", pipeline.OutcomeSuccess)); got != 1 {
		t.Errorf("pdf reports = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.EvictionsTotal); got != 3 {
		t.Errorf("evictions = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("pipeline", "read_failed")); got != 1 {
		t.Errorf("read errors = %v, want 1", got)
	}
}

func TestNew_SeparateRegistries(t *testing.T) {
	// Each registry gets its own collectors, so tests can build many servers.
	New(prometheus.NewRegistry())
	New(prometheus.NewRegistry())
}

package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/schedule-extractor/internal/engine"
	"github.com/ginjaninja78/schedule-extractor/internal/types"
)

func TestObserve(t *testing.T) {
	r := NewRecorder()

	r.Observe(engine.Result{
		Kind:     types.KindTabular,
		Records:  make([]types.InvestmentRecord, 3),
		Duration: 20 * time.Millisecond,
		Diagnostics: engine.Diagnostics{
			Dropped: map[string]int{"not_retainable": 2},
			FieldErrors: []*types.FieldError{
				types.NewFieldError("maturity_date", "soon", "unrecognized date format"),
				types.NewFieldError("", "x", "not a percentage"),
			},
		},
	})
	r.Observe(engine.Result{
		Kind:        types.KindDimensional,
		Diagnostics: engine.Diagnostics{Err: types.ErrNoCandidateContexts},
	})
	r.ObserveFailure("")

	assert.Equal(t, 1.0, testutil.ToFloat64(r.documents.WithLabelValues("tabular", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.documents.WithLabelValues("dimensional", OutcomeDegraded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.documents.WithLabelValues("unknown", OutcomeFailed)))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.records.WithLabelValues("tabular")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.dropped.WithLabelValues("not_retainable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.fieldErrors.WithLabelValues("maturity_date")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.fieldErrors.WithLabelValues("unknown")))
	assert.Equal(t, 2, testutil.CollectAndCount(r.duration))
}

func TestWriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.Observe(engine.Result{Kind: types.KindTabular, Records: make([]types.InvestmentRecord, 1)})

	path := filepath.Join(t.TempDir(), "schedex.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `schedex_records_total{kind="tabular"} 1`)
	assert.Contains(t, string(data), "schedex_extract_duration_seconds_bucket")
}

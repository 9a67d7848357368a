package telemetry

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/proxy-manager/internal/domain"
)

func TestResult(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ResultOK},
		{domain.ErrNoRoutes, ResultPrecondition},
		{domain.ErrConfigParse, ResultConfig},
		{domain.NewRuntimeError("run", errors.New("boom")), ResultRuntime},
		{errors.New("other"), ResultError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Result(tt.err))
	}
}

func TestMetrics_Observe(t *testing.T) {
	m := NewMetrics()

	m.Observe("start_proxy", nil, 200*time.Millisecond)
	m.Observe("start_proxy", domain.ErrNoRoutes, time.Millisecond)
	m.Observe("start_proxy", nil, time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("start_proxy", ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("start_proxy", ResultPrecondition)))

	count, err := testutil.GatherAndCount(m.Registry(), "proxy_manager_operation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

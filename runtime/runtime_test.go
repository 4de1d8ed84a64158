package runtime

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRuntimeFillsDefaults(t *testing.T) {
	rt := New(nil, nil, nil)
	require.NotNil(t, rt.Config)
	require.NotNil(t, rt.Tuples)
	require.NotNil(t, rt.Collations)
	assert.Equal(t, "binary", rt.Config.DefaultCollation)
	assert.IsType(t, NullLogger{}, rt.Logger)
}

func TestLogfDelegatesToLogger(t *testing.T) {
	rec := &recordingLogger{}
	rt := New(Default(), rec, nil)
	rt.Logf("hello %s", "world")
	require.Len(t, rec.calls, 1)
	assert.Equal(t, "hello %s", rec.calls[0])
}

func TestNewMetricsRegistersAllSeries(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.VMStepsTotal.Add(3)
	m.StmtActive.Set(2)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 2)
}

func TestConfigDefaultMatchesLimits(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 32767, cfg.Limits.Column)
	assert.Equal(t, 65000, cfg.Limits.BindParameterMax)
}

type recordingLogger struct {
	calls []string
}

func (r *recordingLogger) Print(v ...any) {}
func (r *recordingLogger) Printf(format string, v ...any) {
	r.calls = append(r.calls, format)
}
func (r *recordingLogger) Println(v ...any) {}

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMetric(t *testing.T) {
	for _, m := range AllMetrics {
		got, ok := ParseMetric(m.String())
		assert.True(t, ok, m.String())
		assert.Equal(t, m, got)
	}

	_, ok := ParseMetric("median_uncertainty")
	assert.False(t, ok)
}

func TestMetricValue(t *testing.T) {
	c := CaseMetrics{MeanUncertainty: 0.25, SumUncertainty: 1.5, CountUncertain: 3}
	assert.Equal(t, 0.25, MeanUncertainty.Value(c))
	assert.Equal(t, 1.5, SumUncertainty.Value(c))
	assert.Equal(t, 3.0, CountUncertain.Value(c))
	assert.True(t, CaseMetrics{}.IsBinary())
}

package dashboard

import (
	"bytes"
	"testing"

	"github.com/mchmarny/fraudboard/pkg/fraud"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func TestRenderScores(t *testing.T) {
	s, err := Init(testEngine(t), fraud.WithoutAnomaly, 0.3)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, RenderScores(&buf, s))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}

func TestRenderScores_SingleRecord(t *testing.T) {
	s := State{
		Model:     fraud.WithAnomaly,
		Threshold: 0.5,
		Results:   []fraud.Row{{Index: 0, Probability: 0.7, Predicted: 1}},
	}
	var buf bytes.Buffer
	require.NoError(t, RenderScores(&buf, s))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}

func TestRenderRatio(t *testing.T) {
	for _, ratio := range []float64{0.25, 0, 1} {
		var buf bytes.Buffer
		require.NoError(t, RenderRatio(&buf, ratio), "ratio %v", ratio)
		assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
	}
}

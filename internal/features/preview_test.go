package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResponseRange(t *testing.T) {
	lo, hi := responseRange(nil)
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 0.0, hi)

	fs := []Feature{
		{Keypoint: Keypoint{Response: 0.3}},
		{Keypoint: Keypoint{Response: 0.05}},
		{Keypoint: Keypoint{Response: 0.9}},
	}
	lo, hi = responseRange(fs)
	assert.Equal(t, 0.05, lo)
	assert.Equal(t, 0.9, hi)
}

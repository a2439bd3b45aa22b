package conv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntToUint64(t *testing.T) {
	got, err := IntToUint64(1 << 20)
	assert.NoError(t, err)
	assert.Equal(t, uint64(1<<20), got)

	got, err = IntToUint64(math.MaxInt)
	assert.NoError(t, err)
	assert.Equal(t, uint64(math.MaxInt), got)

	_, err = IntToUint64(-5)
	assert.Error(t, err)
}

func TestIntToInt64(t *testing.T) {
	assert.Equal(t, int64(0), IntToInt64(0))
	assert.Equal(t, int64(-3), IntToInt64(-3))
	assert.Equal(t, int64(math.MaxInt), IntToInt64(math.MaxInt))
}

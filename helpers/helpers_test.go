package helpers

import (
	"fmt"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

func TestFoldErrors(t *testing.T) {
	t.Parallel()
	assert.NoError(t, FoldErrors(nil))
	assert.NoError(t, FoldErrors([]error{nil, nil}))

	single := errors.NotValidf("url")
	got := FoldErrors([]error{nil, single})
	assert.True(t, errors.IsNotValid(got))

	got = FoldErrors([]error{fmt.Errorf("first"), nil, fmt.Errorf("second")})
	assert.EqualError(t, got, "first\nsecond")
}

func TestDurations(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 200*time.Millisecond, IntMillisecondDefault(0, 200*time.Millisecond))
	assert.Equal(t, 50*time.Millisecond, IntMillisecondDefault(50, 200*time.Millisecond))

	assert.Equal(t, 0, DurationMs(-time.Second))
	assert.Equal(t, 1234, DurationMs(1234*time.Millisecond+999*time.Microsecond))
}

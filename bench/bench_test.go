package bench

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.wyat.me/zwagit/object"
	"git.wyat.me/zwagit/store/loose"
)

func TestPercentileStats(t *testing.T) {
	latencies := make([]time.Duration, 100)
	for i := range latencies {
		latencies[i] = time.Duration(100-i) * time.Millisecond
	}
	res := percentileStats(100, latencies)
	assert.Equal(t, 51*time.Millisecond, res.P50)
	assert.Equal(t, 100*time.Millisecond, res.P99)
	assert.InDelta(t, 100/5.05, res.OpsPerSec, 0.01)
}

func TestMeasureStopsOnError(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	_, err := measure(10, func() error {
		calls++
		if calls == 3 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestMeasureConcurrent(t *testing.T) {
	res, err := measureConcurrent(20, func() error {
		time.Sleep(time.Millisecond)
		return nil
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.P50, time.Millisecond)
}

func TestNewSize(t *testing.T) {
	assert.Equal(t, "1.0 KiB", NewSize(1024).Name)
	assert.Equal(t, "1.0 MiB", NewSize(1024*1024).Name)
}

func TestRunLooseStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "objects")
	require.NoError(t, os.Mkdir(dir, 0o755))
	s := loose.New(dir, nil)

	res := Run("loose", s, []Size{NewSize(16), NewSize(512)}, 5)
	require.Empty(t, res.Error)
	require.Len(t, res.Results, 2)
	for _, sr := range res.Results {
		assert.Positive(t, sr.Put.P99)
		assert.Positive(t, sr.Get.P99)
	}
}

type failingStore struct{}

func (failingStore) Put(*object.Object) (string, error) { return "", errors.New("disk on fire") }
func (failingStore) Get(string) ([]byte, error)         { return nil, nil }
func (failingStore) Exists(string) (bool, error)        { return false, nil }

func TestRunReportsSetupFailure(t *testing.T) {
	res := Run("broken", failingStore{}, []Size{NewSize(8)}, 2)
	assert.Contains(t, res.Error, "setup Put failed")
	assert.Empty(t, res.Results)

	res = Run("broken", failingStore{}, nil, 0)
	assert.Contains(t, res.Error, "iterations must be positive")
}

package runlog

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"fjacquet/budget-sync/internal/logging"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time {
	return time.Date(2026, 3, 1, 9, 15, 30, 0, time.UTC)
}

func TestLog_PrintfKeepsOrderAndMirrors(t *testing.T) {
	mock := logging.NewMockLogger()
	log := New(mock)
	log.now = fixedClock

	log.Printf("Loaded %d records", 3)
	log.Warnf("Category %s not found", "Rent")

	lines := log.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "[09:15:30] Loaded 3 records", lines[0])
	assert.Equal(t, "[09:15:30] Category Rent not found", lines[1])

	assert.True(t, mock.HasEntry("INFO", "Loaded 3 records"))
	assert.True(t, mock.HasEntry("WARN", "Category Rent not found"))
}

func TestLog_RedactsSecrets(t *testing.T) {
	mock := logging.NewMockLogger()
	log := New(mock)
	log.Redact("hunter2")
	log.Redact("")

	log.Printf("typed hunter2 into the form")

	assert.NotContains(t, log.Lines()[0], "hunter2")
	assert.Contains(t, log.Lines()[0], "[REDACTED]")
	for _, e := range mock.GetEntries() {
		assert.NotContains(t, e.Message, "hunter2")
	}
}

func TestLog_RedactsInApplicationLogger(t *testing.T) {
	var buf bytes.Buffer
	base := logrus.New()
	base.SetOutput(&buf)
	logger := logging.NewLogrusAdapterFromLogger(base)

	log := New(logger)
	log.Redact("hunter2")
	logger.WithError(errors.New("bad password hunter2")).Warn("login failed")
	assert.NotContains(t, buf.String(), "hunter2")

	log.Release()
	buf.Reset()
	logger.Info("hunter2")
	assert.Contains(t, buf.String(), "hunter2")
}

func TestLog_LinesIsACopy(t *testing.T) {
	log := New(logging.NewMockLogger())
	log.Printf("one")

	lines := log.Lines()
	lines[0] = "changed"

	assert.NotEqual(t, "changed", log.Lines()[0])
	assert.Equal(t, 1, log.Len())
}

func TestLog_ConcurrentAppend(t *testing.T) {
	log := New(logging.NewMockLogger())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			log.Printf("line %d", n)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 20, log.Len())
}

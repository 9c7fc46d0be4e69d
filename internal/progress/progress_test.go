package progress_test

import (
	"bytes"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/techsola/tfvc-migrator/internal/progress"
)

func TestReporter_EmitsAtMostOncePerInterval(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)
	r := progress.New(logger, 10, time.Hour)

	r.Advance(1)
	r.Advance(2)
	r.Advance(3)

	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("\n")))
}

func TestReporter_Done(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)
	r := progress.New(logger, 0, time.Hour)
	r.Advance(1)
	r.Done()
	assert.Contains(t, buf.String(), "done:")
}

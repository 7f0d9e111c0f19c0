package logging

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLevel(t *testing.T) {
	t.Cleanup(func() { _ = SetLevel("info") })

	require.NoError(t, SetLevel("debug"))
	assert.Equal(t, logrus.DebugLevel, Log.GetLevel())
	require.NoError(t, SetLevel("WARN"))
	assert.Equal(t, logrus.WarnLevel, Log.GetLevel())
	assert.Error(t, SetLevel("verbose"))
}

func TestLeveled_DemotesAndKeepsFields(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetLevel(logrus.WarnLevel)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	leveled := Leveled{Logger: logger}
	leveled.Info("retrying", "url", "https://example.org")
	assert.Empty(t, buf.String())

	leveled.Error("giving up", "url", "https://example.org", "attempt")
	assert.Contains(t, buf.String(), "giving up")
	assert.Contains(t, buf.String(), "url=")
}

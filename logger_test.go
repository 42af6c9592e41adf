package videocopy

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/slackhq/videocopy/config"
	"github.com/slackhq/videocopy/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigLogger(t *testing.T) {
	l := test.NewLogger()

	c := config.NewC(l)
	require.NoError(t, configLogger(l, c))
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, l.Formatter)

	require.NoError(t, c.LoadString("logging:\n  level: debug\n  format: json\n  disable_timestamp: true"))
	require.NoError(t, configLogger(l, c))
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
	require.IsType(t, &logrus.JSONFormatter{}, l.Formatter)
	assert.True(t, l.Formatter.(*logrus.JSONFormatter).DisableTimestamp)

	require.NoError(t, c.LoadString("logging:\n  timestamp_format: \"2006-01-02\""))
	require.NoError(t, configLogger(l, c))
	f := l.Formatter.(*logrus.TextFormatter)
	assert.True(t, f.FullTimestamp)
	assert.Equal(t, "2006-01-02", f.TimestampFormat)

	require.NoError(t, c.LoadString("logging:\n  level: loud"))
	assert.ErrorContains(t, configLogger(l, c), "possible levels")

	require.NoError(t, c.LoadString("logging:\n  format: xml"))
	assert.EqualError(t, configLogger(l, c), "unknown log format `xml`. possible formats: [text json]")
}

package videocopy

import (
	"testing"

	"github.com/slackhq/videocopy/config"
	"github.com/slackhq/videocopy/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartStats(t *testing.T) {
	l := test.NewLogger()

	tests := []struct {
		name string
		conf string
		err  string
	}{
		{name: "disabled", conf: "stats:\n  type: none"},
		{name: "missing interval", conf: "stats:\n  type: graphite", err: "stats.interval was an invalid duration: "},
		{name: "unknown type", conf: "stats:\n  type: statsd\n  interval: 10s", err: "stats.type was not understood: statsd"},
		{name: "graphite without host", conf: "stats:\n  type: graphite\n  interval: 10s", err: "stats.host can not be empty"},
		{name: "graphite", conf: "stats:\n  type: graphite\n  interval: 10s\n  host: 127.0.0.1:2003"},
		{name: "prometheus without listen", conf: "stats:\n  type: prometheus\n  interval: 10s\n  path: /metrics", err: "stats.listen should not be empty"},
		{name: "prometheus without path", conf: "stats:\n  type: prometheus\n  interval: 10s\n  listen: 127.0.0.1:8080", err: "stats.path should not be empty"},
		{name: "prometheus", conf: "stats:\n  type: prometheus\n  interval: 10s\n  listen: 127.0.0.1:8080\n  path: /metrics"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := config.NewC(l)
			require.NoError(t, c.LoadString(tt.conf))

			err := startStats(l, c, "1.2.3", true)
			if tt.err == "" {
				assert.NoError(t, err)
			} else {
				assert.EqualError(t, err, tt.err)
			}
		})
	}
}

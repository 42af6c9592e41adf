package videocopy

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/slackhq/videocopy/config"
	"github.com/slackhq/videocopy/guestmem"
	"github.com/slackhq/videocopy/protocol"
	"github.com/slackhq/videocopy/util"
	"go.yaml.in/yaml/v3"
)

type m = map[string]any

// restartKeys are read once at startup. Reloading them only warns.
var restartKeys = []string{"device", "memory", "resources", "stats"}

// Main builds a device from config: guest memory, negotiated features and the
// preconfigured resources. When configTest is set the config is printed and
// checked but no stats are exported.
func Main(c *config.C, configTest bool, buildVersion string, logger *logrus.Logger) (*Control, error) {
	l := logger
	l.Formatter = &logrus.TextFormatter{
		FullTimestamp: true,
	}

	// Print the config if in test, the exit comes later
	if configTest {
		b, err := yaml.Marshal(c.Settings)
		if err != nil {
			return nil, err
		}

		// Print the final config
		l.Println(string(b))
	}

	err := configLogger(l, c)
	if err != nil {
		return nil, util.ContextualizeIfNeeded("Failed to configure the logger", err)
	}

	c.RegisterReloadCallback(func(c *config.C) {
		if !c.HasChanged("logging") {
			return
		}
		err := configLogger(l, c)
		if err != nil {
			l.WithError(err).Error("Failed to configure the logger")
		}
	})

	c.RegisterReloadCallback(func(c *config.C) {
		for _, k := range restartKeys {
			if c.HasChanged(k) {
				l.WithField("config", k).Warn("Configuration change requires a restart to take effect")
			}
		}
	})

	features, err := loadFeatures(c)
	if err != nil {
		return nil, util.NewContextualError("Failed to load device features", nil, err)
	}

	formats, err := loadFormats(c)
	if err != nil {
		return nil, util.NewContextualError("Failed to load queue formats", nil, err)
	}

	mem := guestmem.New()
	if err := loadMemory(c, mem); err != nil {
		closeMemory(l, mem)
		return nil, util.NewContextualError("Failed to allocate guest memory", nil, err)
	}

	if !c.IsSet("resources") {
		l.Info("No resources configured, starting with empty queues")
	}
	resources, err := parseResources(c)
	if err != nil {
		closeMemory(l, mem)
		return nil, util.NewContextualError("Failed to parse resources", nil, err)
	}

	ctrl := newControl(context.Background(), l, mem, features, c.GetUint32("device.stream_id", 1))
	ctrl.formats = formats
	for _, q := range []protocol.QueueType{protocol.QueueInput, protocol.QueueOutput} {
		caps, _ := ctrl.QueryCapability(q)
		for _, cp := range caps {
			l.WithFields(logrus.Fields{
				"queue":    q,
				"format":   cp.Format,
				"profiles": len(cp.Profiles),
				"levels":   len(cp.Levels),
			}).Debug("Queue capability")
		}
	}
	for _, rc := range resources {
		if err := ctrl.CreateResource(rc.req, rc.params); err != nil {
			ctrl.Stop()
			return nil, util.NewContextualError(
				"Failed to create resource",
				m{"queue": rc.req.Queue, "resource": rc.req.ID},
				err,
			)
		}
	}

	if err := startStats(l, c, buildVersion, configTest); err != nil {
		ctrl.Stop()
		return nil, util.NewContextualError("Failed to start stats emitter", nil, err)
	}

	c.CatchHUP(ctrl.Context())

	l.WithFields(logrus.Fields{
		"version":  buildVersion,
		"features": fmt.Sprintf("%#x", uint64(features)),
		"input":    len(ctrl.Resources(protocol.QueueInput)),
		"output":   len(ctrl.Resources(protocol.QueueOutput)),
	}).Info("Device ready")

	return ctrl, nil
}

// closeMemory releases guest memory, logging instead of returning a failure.
func closeMemory(l *logrus.Logger, mem io.Closer) {
	if err := mem.Close(); err != nil {
		l.WithError(err).Error("Failed to release guest memory")
	}
}

package videocopy

import (
	"fmt"

	"github.com/slackhq/videocopy/config"
	"github.com/slackhq/videocopy/format"
	"github.com/slackhq/videocopy/protocol"
)

// Capability is one format a queue accepts, with the profiles and levels a
// QUERY_CONTROL for it would report. Raw formats have neither.
type Capability struct {
	format.Desc
	Profiles []format.Profile
	Levels   []format.Level
}

func newCapability(f format.Format) Capability {
	c := Capability{Desc: format.InitDesc(f)}
	if lo, hi, ok := f.ProfileRange(); ok {
		for p := lo; p <= hi; p++ {
			c.Profiles = append(c.Profiles, p)
		}
	}
	if lo, hi, ok := f.LevelRange(); ok {
		for l := lo; l <= hi; l++ {
			c.Levels = append(c.Levels, l)
		}
	}
	return c
}

// QueryCapability lists the formats advertised on a queue, in config order.
func (c *Control) QueryCapability(q protocol.QueueType) ([]Capability, error) {
	if _, err := c.queue(q); err != nil {
		return nil, err
	}

	formats := c.formats[q]
	caps := make([]Capability, len(formats))
	for i, f := range formats {
		caps[i] = newCapability(f)
	}
	return caps, nil
}

var defaultFormats = map[protocol.QueueType][]string{
	protocol.QueueInput:  {"mpeg2", "mpeg4", "h264", "hevc", "vp8", "vp9"},
	protocol.QueueOutput: {"nv12", "yuv420", "yvu420", "argb8888", "bgra8888"},
}

// loadFormats reads device.input_formats and device.output_formats. By
// default the device decodes: bitstreams in, raw frames out.
func loadFormats(c *config.C) (map[protocol.QueueType][]format.Format, error) {
	out := make(map[protocol.QueueType][]format.Format, len(defaultFormats))
	for q, d := range defaultFormats {
		k := fmt.Sprintf("device.%s_formats", q)
		seen := make(map[format.Format]bool)
		for _, name := range c.GetStringSlice(k, d) {
			f, ok := format.Parse(name)
			if !ok {
				return nil, fmt.Errorf("%s has unknown format %q", k, name)
			}
			if seen[f] {
				continue
			}
			seen[f] = true
			out[q] = append(out[q], f)
		}
	}
	return out, nil
}

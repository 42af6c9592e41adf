package videocopy

import (
	"errors"
	"fmt"
	"os"

	"github.com/slackhq/videocopy/config"
	"github.com/slackhq/videocopy/format"
	"github.com/slackhq/videocopy/guestmem"
	"github.com/slackhq/videocopy/protocol"
	"github.com/slackhq/videocopy/resource"
)

// resourceConfig is one entry of the resources list.
type resourceConfig struct {
	req    resource.CreateRequest
	params format.Params
}

func loadFeatures(c *config.C) (protocol.Feature, error) {
	names := c.GetStringSlice("device.features", []string{"resource_guest_pages"})
	f, unknown := protocol.ParseFeatures(names)
	if len(unknown) > 0 {
		return 0, fmt.Errorf("device.features has unknown entries: %v", unknown)
	}
	return f, nil
}

// loadMemory allocates the guest memory regions listed in memory.regions.
func loadMemory(c *config.C, mem *guestmem.Memory) error {
	for i, raw := range c.GetSlice("memory.regions", nil) {
		m, ok := raw.(map[string]any)
		if !ok {
			return fmt.Errorf("memory.regions[%d] is not a map", i)
		}

		addr, err := config.Uint64(m["guest_address"])
		if err != nil {
			return fmt.Errorf("memory.regions[%d].guest_address: %w", i, err)
		}
		size, err := config.Uint64(m["size"])
		if err != nil {
			return fmt.Errorf("memory.regions[%d].size: %w", i, err)
		}

		if err := mem.AddAnonymous(addr, size); err != nil {
			return fmt.Errorf("memory.regions[%d]: %w", i, err)
		}
	}
	return nil
}

func parseResources(c *config.C) ([]resourceConfig, error) {
	var out []resourceConfig
	for i, raw := range c.GetSlice("resources", nil) {
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("resources[%d] is not a map", i)
		}

		rc, err := parseResource(m)
		if err != nil {
			return nil, fmt.Errorf("resources[%d]: %w", i, err)
		}
		out = append(out, rc)
	}
	return out, nil
}

func parseResource(m map[string]any) (resourceConfig, error) {
	var rc resourceConfig

	id, err := toUint32(m["id"])
	if err != nil {
		return rc, fmt.Errorf("id: %w", err)
	}
	rc.req.ID = id

	queue, ok := protocol.ParseQueueType(fmt.Sprintf("%v", m["queue"]))
	if !ok {
		return rc, fmt.Errorf("queue %v is not input or output", m["queue"])
	}
	rc.req.Queue = queue

	rc.req.Layout = resource.SingleBuffer
	if v, ok := m["layout"]; ok {
		if rc.req.Layout, ok = resource.ParseLayout(fmt.Sprintf("%v", v)); !ok {
			return rc, fmt.Errorf("layout %v is not single_buffer or per_plane", v)
		}
	}

	f, ok := format.Parse(fmt.Sprintf("%v", m["format"]))
	if !ok {
		return rc, fmt.Errorf("unknown format %v", m["format"])
	}
	width, err := toUint32(m["width"])
	if err != nil && !f.IsCodec() {
		return rc, fmt.Errorf("width: %w", err)
	}
	height, err := toUint32(m["height"])
	if err != nil && !f.IsCodec() {
		return rc, fmt.Errorf("height: %w", err)
	}
	rc.params = format.Geometry(f, width, height)

	if path, ok := m["entries_file"]; ok {
		if rc.req.Entries, err = loadEntryTable(fmt.Sprintf("%v", path)); err != nil {
			return rc, fmt.Errorf("entries_file: %w", err)
		}
	}

	rawEntries, _ := m["entries"].([]any)
	if len(rawEntries) == 0 && len(rc.req.Entries) == 0 {
		return rc, errors.New("entries can not be empty")
	}
	for j, re := range rawEntries {
		em, ok := re.(map[string]any)
		if !ok {
			return rc, fmt.Errorf("entries[%d] is not a map", j)
		}
		addr, err := config.Uint64(em["addr"])
		if err != nil {
			return rc, fmt.Errorf("entries[%d].addr: %w", j, err)
		}
		length, err := toUint32(em["length"])
		if err != nil {
			return rc, fmt.Errorf("entries[%d].length: %w", j, err)
		}
		rc.req.Entries = append(rc.req.Entries, protocol.MemEntry{Addr: addr, Length: length})
	}

	numPlanes := int(rc.params.NumPlanes)
	if rc.req.NumEntries, err = toUint32s(m["num_entries"]); err != nil {
		return rc, fmt.Errorf("num_entries: %w", err)
	}
	if rc.req.NumEntries == nil {
		rc.req.NumEntries = defaultNumEntries(rc.req.Layout, numPlanes, len(rc.req.Entries))
	}

	if rc.req.PlaneOffsets, err = toUint32s(m["plane_offsets"]); err != nil {
		return rc, fmt.Errorf("plane_offsets: %w", err)
	}
	if rc.req.PlaneOffsets == nil && rc.req.Layout == resource.SingleBuffer {
		rc.req.PlaneOffsets = packedOffsets(rc.params)
	}

	return rc, nil
}

// loadEntryTable reads memory entries in the layout a driver attaches to
// RESOURCE_CREATE, as captured from a guest.
func loadEntryTable(path string) ([]protocol.MemEntry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 || len(b)%protocol.MemEntrySize != 0 {
		return nil, fmt.Errorf("%s holds %d bytes, not a whole number of %d byte entries", path, len(b), protocol.MemEntrySize)
	}
	return protocol.DecodeMemEntries(b, len(b)/protocol.MemEntrySize)
}

// defaultNumEntries gives a single buffer all entries through plane 0 and
// spreads per plane entries one to a plane.
func defaultNumEntries(layout resource.Layout, numPlanes, entries int) []uint32 {
	n := make([]uint32, numPlanes)
	if layout == resource.SingleBuffer {
		n[0] = uint32(entries)
		return n
	}
	for i := range n {
		n[i] = 1
	}
	return n
}

// packedOffsets places every plane directly behind the previous one.
func packedOffsets(p format.Params) []uint32 {
	offsets := make([]uint32, p.NumPlanes)
	var off uint32
	for i := range offsets {
		offsets[i] = off
		off += p.PlaneFormats[i].PlaneSize
	}
	return offsets
}

func toUint32(v any) (uint32, error) {
	n, err := config.Uint64(v)
	if err != nil {
		return 0, err
	}
	if n > 1<<32-1 {
		return 0, fmt.Errorf("%d does not fit in 32 bits", n)
	}
	return uint32(n), nil
}

// toUint32s converts a yaml list, returning nil when v is absent.
func toUint32s(v any) ([]uint32, error) {
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%v is not a list", v)
	}

	out := make([]uint32, len(list))
	for i, e := range list {
		n, err := toUint32(e)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = n
	}
	return out, nil
}

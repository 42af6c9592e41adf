package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/slackhq/videocopy/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Load(t *testing.T) {
	l := test.NewLogger()
	dir := t.TempDir()

	// invalid yaml
	c := NewC(l)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "01.yml"), []byte(" invalid yaml"), 0644))
	assert.ErrorContains(t, c.Load(dir), "cannot unmarshal !!str `invalid...`")

	// simple multi config merge, lists are appended
	require.NoError(t, os.WriteFile(filepath.Join(dir, "01.yml"), []byte("outer:\n  inner: hi\nresources:\n  - id: 1\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "02.yml"), []byte("outer:\n  inner: override\nnew: hi\nresources:\n  - id: 2\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("not: config"), 0644))

	c = NewC(l)
	require.NoError(t, c.Load(dir))
	assert.Equal(t, "override", c.GetString("outer.inner", ""))
	assert.Equal(t, "hi", c.GetString("new", ""))
	assert.False(t, c.IsSet("not"))

	resources := c.GetSlice("resources", nil)
	require.Len(t, resources, 2)

	// a missing path
	c = NewC(l)
	assert.EqualError(t, c.Load(filepath.Join(dir, "nope")), "no config files found at "+filepath.Join(dir, "nope"))

	assert.EqualError(t, c.LoadString(""), "empty configuration")
}

func TestConfig_Get(t *testing.T) {
	l := test.NewLogger()
	// test simple type
	c := NewC(l)
	c.Settings["stats"] = map[string]any{"type": "prometheus"}
	assert.Equal(t, "prometheus", c.Get("stats.type"))

	// test complex type
	inner := []any{map[string]any{"addr": 4096, "length": 64}}
	c.Settings["resources"] = inner
	assert.EqualValues(t, inner, c.Get("resources"))

	// test missing
	assert.Nil(t, c.Get("stats.nope"))
	assert.Nil(t, c.Get("resources.addr"))
}

func TestConfig_GetNumbers(t *testing.T) {
	l := test.NewLogger()
	c := NewC(l)
	require.NoError(t, c.LoadString(`
memory:
  guest_address: 0x10000
  quoted: "0x2000"
  size: 65536
  negative: -1
  broken: 12ab
  big: 0x100000000
`))

	assert.EqualValues(t, 65536, c.GetUint32("memory.size", 0))
	assert.EqualValues(t, 0x2000, c.GetUint32("memory.quoted", 0))
	assert.EqualValues(t, 3, c.GetUint32("memory.negative", 3))
	assert.EqualValues(t, 7, c.GetUint32("memory.broken", 7))
	assert.EqualValues(t, 7, c.GetUint32("memory.big", 7))
	assert.EqualValues(t, 0x100000000, c.GetUint64("memory.big", 0))

	assert.EqualValues(t, 0x10000, c.GetUint64("memory.guest_address", 0))
	assert.EqualValues(t, 0x2000, c.GetUint64("memory.quoted", 0))
	assert.EqualValues(t, 9, c.GetUint64("memory.negative", 9))
	assert.EqualValues(t, 9, c.GetUint64("memory.missing", 9))
}

func TestUint64(t *testing.T) {
	tests := []struct {
		in   any
		want uint64
		err  string
	}{
		{in: 4096, want: 4096},
		{in: uint64(1) << 63, want: 1 << 63},
		{in: "0x1000", want: 0x1000},
		{in: "64", want: 64},
		{in: -1, err: "-1 is negative"},
		{in: nil, err: "missing value"},
		{in: 1.5, err: "1.5 is not a number"},
		{in: "page", err: "invalid syntax"},
	}

	for _, tt := range tests {
		got, err := Uint64(tt.in)
		if tt.err != "" {
			assert.ErrorContains(t, err, tt.err, "%v", tt.in)
			continue
		}
		require.NoError(t, err, "%v", tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestConfig_GetStringSlice(t *testing.T) {
	l := test.NewLogger()
	c := NewC(l)
	c.Settings["slice"] = []any{"one", "two"}
	assert.Equal(t, []string{"one", "two"}, c.GetStringSlice("slice", []string{}))

	c.Settings["slice"] = "one"
	assert.Equal(t, []string{"default"}, c.GetStringSlice("slice", []string{"default"}))
	assert.Nil(t, c.GetSlice("slice", nil))
}

func TestConfig_GetBool(t *testing.T) {
	l := test.NewLogger()
	c := NewC(l)
	c.Settings["bool"] = true
	assert.True(t, c.GetBool("bool", false))

	c.Settings["bool"] = "true"
	assert.True(t, c.GetBool("bool", false))

	c.Settings["bool"] = false
	assert.False(t, c.GetBool("bool", true))

	c.Settings["bool"] = "false"
	assert.False(t, c.GetBool("bool", true))

	c.Settings["bool"] = "Y"
	assert.True(t, c.GetBool("bool", false))

	c.Settings["bool"] = "yEs"
	assert.True(t, c.GetBool("bool", false))

	c.Settings["bool"] = "N"
	assert.False(t, c.GetBool("bool", true))

	c.Settings["bool"] = "nO"
	assert.False(t, c.GetBool("bool", true))
}

func TestConfig_GetDuration(t *testing.T) {
	l := test.NewLogger()
	c := NewC(l)
	c.Settings["stats"] = map[string]any{"interval": "15s", "bad": "soon"}
	assert.Equal(t, 15*time.Second, c.GetDuration("stats.interval", time.Second))
	assert.Equal(t, time.Second, c.GetDuration("stats.bad", time.Second))
	assert.Equal(t, time.Minute, c.GetDuration("stats.missing", time.Minute))
}

func TestConfig_HasChanged(t *testing.T) {
	l := test.NewLogger()
	// No reload has occurred, return false
	c := NewC(l)
	c.Settings["test"] = "hi"
	assert.False(t, c.HasChanged(""))

	// Test key change
	c = NewC(l)
	c.Settings["test"] = "hi"
	c.oldSettings = map[string]any{"test": "no"}
	assert.True(t, c.HasChanged("test"))
	assert.True(t, c.HasChanged(""))

	// No key change
	c = NewC(l)
	c.Settings["test"] = "hi"
	c.oldSettings = map[string]any{"test": "hi"}
	assert.False(t, c.HasChanged("test"))
	assert.False(t, c.HasChanged(""))
}

func TestConfig_ReloadConfig(t *testing.T) {
	l := test.NewLogger()
	done := make(chan bool, 1)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")

	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: info"), 0644))

	c := NewC(l)
	require.NoError(t, c.Load(dir))

	assert.False(t, c.HasChanged("logging.level"))
	assert.False(t, c.HasChanged("logging"))
	assert.False(t, c.HasChanged(""))

	c.RegisterReloadCallback(func(c *C) {
		done <- true
	})

	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: debug"), 0644))
	c.ReloadConfig()
	assert.Equal(t, "debug", c.GetString("logging.level", ""))
	assert.True(t, c.HasChanged("logging.level"))
	assert.True(t, c.HasChanged("logging"))
	assert.True(t, c.HasChanged(""))

	// Make sure we call the callbacks
	select {
	case <-done:
	case <-time.After(1 * time.Second):
		panic("timeout")
	}
}

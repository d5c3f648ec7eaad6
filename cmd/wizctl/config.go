package main

import (
	"maps"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const configFile = "wizctl.yaml"

// config holds friendly names for known devices, keyed by MAC as discovery
// reports it,
// persisted as a flat YAML mapping. Unlike a hub connection's pairing state,
// wizctl has nothing worth preserving beyond the name a user assigned, so the
// file is a plain map written back in full each run rather than a
// comment-preserving document.
type config struct {
	mu    sync.RWMutex
	names map[string]string // MAC -> friendly name, e.g. "aabbccddeeff" -> "Living Room"
}

func (c *config) load(fn string) error {
	data, err := os.ReadFile(fn)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return yaml.Unmarshal(data, &c.names)
}

func (c *config) write(fn string) error {
	c.mu.RLock()
	names := maps.Clone(c.names)
	c.mu.RUnlock()

	if len(names) == 0 {
		return nil
	}

	data, err := yaml.Marshal(names)
	if err != nil {
		return err
	}

	f, err := os.CreateTemp(".", strings.Join([]string{".", fn, "*"}, ""))
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	return os.Rename(f.Name(), fn)
}

// nameFor returns the friendly name recorded for mac, or "" if unknown.
func (c *config) nameFor(mac string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.names[mac]
}

// remember records mac as seen, adding a placeholder name if it has none
// yet.
func (c *config) remember(mac string) {
	if mac == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.names == nil {
		c.names = map[string]string{}
	}
	if _, found := c.names[mac]; !found {
		c.names[mac] = "[New]"
	}
}

package pipeline

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/Alia5/keypipe/key"
)

// PluginContext is handed to a Factory when a plugin is instantiated.
type PluginContext struct {
	Geometry key.Geometry
	Logger   *slog.Logger
	// Config is the plugin's own section from the keymap description.
	Config map[string]any
}

// Decode copies the plugin's config section into v, which should be a
// pointer to a struct with json tags.
func (c PluginContext) Decode(v any) error {
	if len(c.Config) == 0 {
		return nil
	}
	data, err := json.Marshal(c.Config)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// Factory builds a hook from its configuration.
type Factory func(ctx PluginContext) (Hook, error)

var (
	pluginRegistry   = make(map[string]Factory)
	pluginRegistryMu sync.RWMutex
)

// RegisterPlugin registers a hook factory. This should be called from plugin
// package init() functions. The name is case-insensitive.
func RegisterPlugin(name string, f Factory) {
	pluginRegistryMu.Lock()
	defer pluginRegistryMu.Unlock()
	pluginRegistry[strings.ToLower(name)] = f
}

// NewPlugin instantiates a registered plugin by name.
func NewPlugin(name string, ctx PluginContext) (Hook, error) {
	pluginRegistryMu.RLock()
	f := pluginRegistry[strings.ToLower(name)]
	pluginRegistryMu.RUnlock()
	if f == nil {
		return nil, fmt.Errorf("unknown plugin %q", name)
	}
	return f(ctx)
}

// Plugins returns the names of all registered plugins, sorted.
func Plugins() []string {
	pluginRegistryMu.RLock()
	defer pluginRegistryMu.RUnlock()
	names := make([]string, 0, len(pluginRegistry))
	for name := range pluginRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// File: adapters/control_adapter.go
// Package adapters
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Control adapter implementing api.Control over control package
// primitives, including the Prometheus gauge set.

package adapters

import (
	"github.com/momentics/fixp-ws-client/api"
	"github.com/momentics/fixp-ws-client/control"
)

// ControlAdapter bridges api.Control to the control package's
// config store, metrics registry, debug probes, and Prometheus
// gauges.
type ControlAdapter struct {
	config  *control.ConfigStore
	metrics *control.MetricsRegistry
	debug   *control.DebugProbes
	prom    *control.PrometheusMetrics
}

// NewControlAdapter constructs a ControlAdapter with its own private
// Prometheus registry.
func NewControlAdapter() *ControlAdapter {
	adapter := &ControlAdapter{
		config:  control.NewConfigStore(),
		metrics: control.NewMetricsRegistry(),
		debug:   control.NewDebugProbes(),
		prom:    control.NewPrometheusMetrics(),
	}
	control.RegisterPlatformProbes(adapter.debug)
	return adapter
}

// Prometheus exposes the gauge set for the session/dispatcher/pool to
// update directly on their hot paths.
func (c *ControlAdapter) Prometheus() *control.PrometheusMetrics {
	return c.prom
}

// GetConfig returns a snapshot of the current configuration.
func (c *ControlAdapter) GetConfig() map[string]any {
	return c.config.GetSnapshot()
}

// SetConfig merges and applies new configuration, then triggers reload hooks.
func (c *ControlAdapter) SetConfig(cfg map[string]any) error {
	c.config.SetConfig(cfg)
	control.TriggerHotReload()
	return nil
}

// Stats returns merged config, metrics, Prometheus gauge, and debug
// probe snapshots.
func (c *ControlAdapter) Stats() map[string]any {
	combined := make(map[string]any)
	for k, v := range c.config.GetSnapshot() {
		combined[k] = v
	}
	for k, v := range c.metrics.GetSnapshot() {
		combined["metrics."+k] = v
	}
	for k, v := range c.prom.Snapshot() {
		combined["metrics."+k] = v
	}
	for k, v := range c.debug.DumpState() {
		combined["debug."+k] = v
	}
	return combined
}

// OnReload registers a callback invoked on configuration changes.
func (c *ControlAdapter) OnReload(fn func()) {
	c.config.OnReload(fn)
	control.RegisterReloadHook(fn)
}

// RegisterDebugProbe registers a named debug probe function.
func (c *ControlAdapter) RegisterDebugProbe(name string, fn func() any) {
	c.debug.RegisterProbe(name, fn)
}

var _ api.Control = (*ControlAdapter)(nil)

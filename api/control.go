// File: api/control.go
// Package api

package api

// Control is the configuration/metrics/debug contract every long-lived
// dataplane component (the gateway, the glue engine) implements so an
// operator has one surface to read counters, push config, and hook
// hot-reload regardless of which component they're talking to.
type Control interface {
    // GetConfig returns a snapshot of the component's live configuration.
    GetConfig() map[string]any

    // SetConfig atomically merges cfg into the live configuration.
    SetConfig(cfg map[string]any) error

    // Stats returns the component's current counters and gauges.
    Stats() map[string]any

    // OnReload registers a callback fired after a successful SetConfig.
    OnReload(fn func())

    // RegisterDebugProbe registers a named probe invoked by debug dumps.
    RegisterDebugProbe(name string, fn func() any)
}

// Package metrics collects Prometheus series for the HTTP surface, the
// three pipeline stages, the streaming connections, and the session store.
// The collector is registered once at startup and exported on a dedicated
// metrics port.
package metrics

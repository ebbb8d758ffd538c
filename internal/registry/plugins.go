// Package registry links every bundled plugin into the binary. Plugins
// register themselves with the pipeline from init.
package registry

import (
	_ "github.com/Alia5/keypipe/plugin/eventlog" // Register event tracing hook
	_ "github.com/Alia5/keypipe/plugin/qukeys"   // Register dual-use key hook
)

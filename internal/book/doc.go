// Package book walks book directories, classifies chapters against their
// persisted translations and dispatches the resulting queue to the unit
// processor, sequentially or over a small worker pool. It owns the run
// tallies, the audit mode and the tolerated site-regeneration side effect.
package book

package engine

import "sync/atomic"

// Progress is the engine's fan-out of running counters (spec §4.G
// "progress fan-out"), generalized from the teacher's notify.Var[hlc.Time]
// single-value broadcast (internal/source/cdc/resolver.go's marked/
// retirements fields) into three independent atomic counters — a
// pipeline run has no single consistent-point value to broadcast, just
// monotonically increasing row tallies the CLI's progress UI polls.
type Progress struct {
	read        atomic.Int64
	transformed atomic.Int64
	written     atomic.Int64
}

// Snapshot is a point-in-time read of a Progress.
type Snapshot struct {
	Read        int64
	Transformed int64
	Written     int64
}

// Get returns the current counter values.
func (p *Progress) Get() Snapshot {
	return Snapshot{
		Read:        p.read.Load(),
		Transformed: p.transformed.Load(),
		Written:     p.written.Load(),
	}
}

func (p *Progress) addRead(n int64)        { p.read.Add(n) }
func (p *Progress) addTransformed(n int64) { p.transformed.Add(n) }
func (p *Progress) addWritten(n int64)     { p.written.Add(n) }

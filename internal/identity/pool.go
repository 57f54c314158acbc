// Package identity hands out (uid, gid) pairs for sandboxed child
// processes from a bounded, rotating range. It is lock-free and never
// fails: one atomic cursor per range, reduced modulo the range size on
// each call, over two independently configured uid and gid ranges.
package identity

import "sync/atomic"

// Range is an inclusive [Min, Max] bound for uid or gid allocation.
type Range struct {
	Min int
	Max int
}

func (r Range) size() uint64 {
	return uint64(r.Max-r.Min) + 1
}

// Pool rotates monotonically through a configured uid/gid range. Two
// concurrent jobs may receive identical ids once concurrency exceeds the
// range size; this is tolerated by design because workspaces are
// UUID-keyed and process-group kills are pid-keyed, not uid-keyed.
type Pool struct {
	uidRange Range
	gidRange Range

	uidCursor uint64
	gidCursor uint64
}

// New creates a Pool over the given uid/gid ranges. Both ranges must
// satisfy Max >= Min.
func New(uidRange, gidRange Range) *Pool {
	return &Pool{uidRange: uidRange, gidRange: gidRange}
}

// Allocate returns the next (uid, gid) pair and advances both counters
// modulo their respective range sizes. Never blocks, never fails.
func (p *Pool) Allocate() (uid, gid int) {
	uc := atomic.AddUint64(&p.uidCursor, 1) - 1
	gc := atomic.AddUint64(&p.gidCursor, 1) - 1
	uid = p.uidRange.Min + int(uc%p.uidRange.size())
	gid = p.gidRange.Min + int(gc%p.gidRange.size())
	return uid, gid
}

// Package checkloop implements the periodic eviction and master-election
// cycle: walk the node table evicting stale peers, then demote or promote
// this instance based on the weights of surviving master-eligible peers.
package checkloop

import (
	"sync"
	"time"

	"github.com/lanpeer/discover/node"
)

// Options is the subset of the option store the check loop reads on every
// cycle. IntervalMs is re-read fresh each iteration, allowing live
// reconfiguration.
type Options struct {
	IntervalMs      int
	NodeTimeoutMs   int
	MasterTimeoutMs int
	MastersRequired int
	Weight          float64
}

// GetOptionsFunc returns the options to use for one cycle. Implementations
// must acquire the options lock internally.
type GetOptionsFunc func() Options

// Loop runs the periodic eviction and election task. It never holds
// any lock itself; all shared-state access goes through the supplied
// closures, which callers must implement honoring the nodes→options lock
// ordering (acquire the node table's lock before the option store's, never
// the reverse).
type Loop struct {
	table  *node.Table
	getOpt GetOptionsFunc

	isMaster         func() bool
	setMaster        func(bool)
	isMasterEligible func() bool

	onRemoved   func(node.Node)
	onDemotion  func()
	onPromotion func()
	onCheck     func()

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New builds a check loop. Any of the observer callbacks may be nil.
func New(
	table *node.Table,
	getOpt GetOptionsFunc,
	isMaster func() bool,
	setMaster func(bool),
	isMasterEligible func() bool,
	onRemoved func(node.Node),
	onDemotion func(),
	onPromotion func(),
	onCheck func(),
) *Loop {
	noop := func() {}
	if onDemotion == nil {
		onDemotion = noop
	}
	if onPromotion == nil {
		onPromotion = noop
	}
	if onCheck == nil {
		onCheck = noop
	}
	if onRemoved == nil {
		onRemoved = func(node.Node) {}
	}
	return &Loop{
		table:            table,
		getOpt:           getOpt,
		isMaster:         isMaster,
		setMaster:        setMaster,
		isMasterEligible: isMasterEligible,
		onRemoved:        onRemoved,
		onDemotion:       onDemotion,
		onPromotion:      onPromotion,
		onCheck:          onCheck,
		stopCh:           make(chan struct{}),
	}
}

// Start launches the periodic task.
func (l *Loop) Start() {
	l.wg.Add(1)
	go l.loop()
}

// Stop halts the task and waits for it to exit.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
	l.wg.Wait()
}

func (l *Loop) loop() {
	defer l.wg.Done()

	for {
		opt := l.getOpt()
		timer := time.NewTimer(time.Duration(opt.IntervalMs) * time.Millisecond)
		select {
		case <-l.stopCh:
			timer.Stop()
			return
		case <-timer.C:
		}

		l.Cycle(node.Now())
	}
}

// Cycle runs one check-loop iteration at the given timestamp (seconds). It
// is exported so callers can drive it deterministically in tests.
func (l *Loop) Cycle(now int64) {
	opt := l.getOpt()

	evicted := l.table.EvictStale(now, opt.NodeTimeoutMs, opt.MasterTimeoutMs)
	for _, n := range evicted {
		l.onRemoved(n)
	}

	masterTimeoutSec := int64(opt.MasterTimeoutMs / 1000)
	mastersHigherWeightFound := 0
	mastersEligibleHigherWeightFound := false

	l.table.Iterate(func(n node.Node) {
		if n.Data.IsMaster {
			if now-n.LastSeen < masterTimeoutSec && n.Data.Weight > opt.Weight {
				mastersHigherWeightFound++
			}
			return
		}
		if n.Data.IsMasterEligible && n.Data.Weight > opt.Weight {
			mastersEligibleHigherWeightFound = true
		}
	})

	wasMaster := l.isMaster()

	if wasMaster && mastersHigherWeightFound >= opt.MastersRequired {
		l.setMaster(false)
		l.onDemotion()
	} else if !wasMaster && l.isMasterEligible() &&
		mastersHigherWeightFound < opt.MastersRequired &&
		!mastersEligibleHigherWeightFound {
		l.setMaster(true)
		l.onPromotion()
	}

	l.onCheck()
}

// Package hello implements the periodic presence announcement task.
package hello

import (
	"sync"
	"time"

	"github.com/lanpeer/discover/wire"
)

// State is read fresh on every tick so live option changes (weight, master
// flags, advertisement) take effect immediately. The interval is read
// separately, through IntervalFunc.
type State struct {
	PID, IID, Hostname string
	IsMaster           bool
	IsMasterEligible   bool
	Weight             float64
	Address            string
	Advertisement      []byte // raw JSON, nil if unset
}

// StateFunc returns the current state to announce.
type StateFunc func() State

// IntervalFunc returns the current hello interval as a duration,
// re-read on every iteration to allow live reconfiguration.
type IntervalFunc func() time.Duration

// Sender transmits an encoded hello datagram.
type Sender func(buf []byte)

// OnEmitted is invoked after each successful emission.
type OnEmitted func()

// Emitter runs the periodic hello task. It is not started in client mode;
// callers simply never call Start for a client instance.
type Emitter struct {
	state    StateFunc
	interval IntervalFunc
	send     Sender
	emitted  OnEmitted

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New creates an emitter. emitted may be nil.
func New(state StateFunc, interval IntervalFunc, send Sender, emitted OnEmitted) *Emitter {
	if emitted == nil {
		emitted = func() {}
	}
	return &Emitter{
		state:    state,
		interval: interval,
		send:     send,
		emitted:  emitted,
		stopCh:   make(chan struct{}),
	}
}

// Start launches the periodic task.
func (e *Emitter) Start() {
	e.wg.Add(1)
	go e.loop()
}

// Stop halts the task and waits for it to exit.
func (e *Emitter) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
	e.wg.Wait()
}

func (e *Emitter) loop() {
	defer e.wg.Done()

	for {
		interval := e.interval()
		timer := time.NewTimer(interval)
		select {
		case <-e.stopCh:
			timer.Stop()
			return
		case <-timer.C:
		}

		e.emitOnce()
	}
}

func (e *Emitter) emitOnce() {
	s := e.state()

	buf, err := wire.EncodeHello(s.PID, s.IID, s.Hostname, wire.HelloData{
		IsMaster:         s.IsMaster,
		IsMasterEligible: s.IsMasterEligible,
		Weight:           s.Weight,
		Address:          s.Address,
		Advertisement:    s.Advertisement,
	})
	if err != nil {
		return
	}

	e.send(buf)
	e.emitted()
}

// Package discover is the facade that wires the node table, channel table,
// transport endpoint, hello emitter, and check loop into a single running
// instance.
package discover

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/lanpeer/discover/channel"
	"github.com/lanpeer/discover/checkloop"
	"github.com/lanpeer/discover/config"
	"github.com/lanpeer/discover/dispatch"
	"github.com/lanpeer/discover/hello"
	"github.com/lanpeer/discover/node"
	"github.com/lanpeer/discover/transport"
	"github.com/lanpeer/discover/uid"
	"github.com/lanpeer/discover/wire"
)

// Instance is one running discovery agent: one bound UDP endpoint, one node
// table, one channel table, and the two periodic tasks (hello emitter,
// check loop) layered on top. The zero value is not usable; build one with
// Create.
type Instance struct {
	pid, iid, hostname string

	nodes    *node.Table
	channels *channel.Table
	ep       *transport.Endpoint
	emitter  *hello.Emitter
	checker  *checkloop.Loop

	// optMu is the "options lock": every field below it is read by the
	// hello emitter and check loop through closures, and written by the
	// Set* methods below. Callers of the closures (this package) must
	// never hold optMu while acquiring the node table's lock — the
	// ordering is nodes, then options, never the reverse.
	optMu            sync.Mutex
	helloIntervalMs  int
	checkIntervalMs  int
	nodeTimeoutMs    int
	masterTimeoutMs  int
	mastersRequired  int
	weight           float64
	address          string
	advertisement    json.RawMessage
	isMaster         bool
	isMasterEligible bool
	ignoreProcess    bool
	ignoreInstance   bool
	client           bool

	obsMu           sync.Mutex
	onHelloReceived func(node.Node)
	onHelloEmitted  func()
	onPromotion     func()
	onDemotion      func()
	onCheck         func()
	onAdded         func(node.Node)
	onMaster        func(node.Node)
	onRemoved       func(node.Node)
	onError         func(string)
}

// Create builds and binds an instance from cfg but does not start its
// periodic tasks; call Start to begin announcing and checking.
func Create(cfg *config.Config) (*Instance, error) {
	weight := cfg.Weight
	if !cfg.WeightSet {
		weight = config.DefaultWeight()
	}

	hostname := cfg.Hostname
	if hostname == "" {
		hostname = uid.Hostname()
	}

	inst := &Instance{
		pid:              uid.ProcessID(),
		iid:              uid.New(),
		hostname:         hostname,
		nodes:            node.New(),
		channels:         channel.New(),
		helloIntervalMs:  cfg.HelloInterval,
		checkIntervalMs:  cfg.CheckInterval,
		nodeTimeoutMs:    cfg.NodeTimeout,
		masterTimeoutMs:  cfg.MasterTimeout,
		mastersRequired:  cfg.MastersRequired,
		weight:           weight,
		address:          cfg.Address,
		isMasterEligible: true,
		ignoreProcess:    cfg.IgnoreProcess,
		ignoreInstance:   cfg.IgnoreInstance,
		client:           cfg.Client,
		advertisement:    cfg.Advertisement,
	}

	inst.ep = transport.New(func(msg string) { inst.fireError(msg) })
	inst.ep.SetHandler(inst.buildDispatcher().Handle)

	if err := inst.bind(cfg); err != nil {
		return nil, err
	}

	inst.emitter = hello.New(inst.helloState, inst.helloInterval, inst.ep.Send, inst.fireHelloEmitted)
	inst.checker = checkloop.New(
		inst.nodes,
		inst.checkOptions,
		inst.getIsMaster,
		inst.setIsMaster,
		inst.getIsMasterEligible,
		inst.fireRemoved,
		inst.fireDemotion,
		inst.firePromotion,
		inst.fireCheck,
	)

	return inst, nil
}

func (i *Instance) bind(cfg *config.Config) error {
	switch {
	case cfg.Unicast != "":
		return i.ep.BindUnicast(cfg.Address, cfg.Port, cfg.ReuseAddr, cfg.Unicast)
	case cfg.Multicast != "":
		ttl := cfg.MulticastTTL
		if ttl == 0 {
			ttl = config.DefaultMulticastTTL
		}
		return i.ep.BindMulticast(cfg.Address, cfg.Port, cfg.ReuseAddr, cfg.Multicast, ttl)
	default:
		broadcast := cfg.Broadcast
		if broadcast == "" {
			broadcast = config.DefaultBroadcast
		}
		return i.ep.BindBroadcast(cfg.Address, cfg.Port, cfg.ReuseAddr, broadcast)
	}
}

func (i *Instance) buildDispatcher() *dispatch.Dispatcher {
	return dispatch.New(i.nodes, i.channels, i.dispatchFilter, i.fireAdded, i.fireMaster, i.fireHelloReceived)
}

func (i *Instance) dispatchFilter() dispatch.Filter {
	i.optMu.Lock()
	defer i.optMu.Unlock()
	return dispatch.Filter{PID: i.pid, IID: i.iid, IgnoreProcess: i.ignoreProcess, IgnoreInstance: i.ignoreInstance}
}

func (i *Instance) helloState() hello.State {
	i.optMu.Lock()
	defer i.optMu.Unlock()
	return hello.State{
		PID: i.pid, IID: i.iid, Hostname: i.hostname,
		IsMaster: i.isMaster, IsMasterEligible: i.isMasterEligible,
		Weight: i.weight, Address: i.address, Advertisement: i.advertisement,
	}
}

func (i *Instance) helloInterval() time.Duration {
	i.optMu.Lock()
	defer i.optMu.Unlock()
	return time.Duration(i.helloIntervalMs) * time.Millisecond
}

func (i *Instance) checkOptions() checkloop.Options {
	i.optMu.Lock()
	defer i.optMu.Unlock()
	return checkloop.Options{
		IntervalMs:      i.checkIntervalMs,
		NodeTimeoutMs:   i.nodeTimeoutMs,
		MasterTimeoutMs: i.masterTimeoutMs,
		MastersRequired: i.mastersRequired,
		Weight:          i.weight,
	}
}

func (i *Instance) getIsMaster() bool {
	i.optMu.Lock()
	defer i.optMu.Unlock()
	return i.isMaster
}

func (i *Instance) setIsMaster(v bool) {
	i.optMu.Lock()
	i.isMaster = v
	i.optMu.Unlock()
}

func (i *Instance) getIsMasterEligible() bool {
	i.optMu.Lock()
	defer i.optMu.Unlock()
	return i.isMasterEligible
}

// Start launches the periodic tasks. A client instance never announces
// itself: the hello emitter stays off and only the check loop and the
// receive path run.
func (i *Instance) Start() {
	i.ep.Start()
	i.checker.Start()
	i.optMu.Lock()
	client := i.client
	i.optMu.Unlock()
	if !client {
		i.emitter.Start()
	}
}

// Release stops every periodic task, closes the socket, and empties both
// tables. The instance is not reusable afterward.
func (i *Instance) Release() error {
	i.optMu.Lock()
	client := i.client
	i.optMu.Unlock()
	if !client {
		i.emitter.Stop()
	}
	i.checker.Stop()
	err := i.ep.Close()
	i.nodes.Clear()
	i.channels.Clear()
	return err
}

// Send publishes a user event to every configured destination.
func (i *Instance) Send(event string, payload interface{}) error {
	i.optMu.Lock()
	pid, iid, hostname := i.pid, i.iid, i.hostname
	i.optMu.Unlock()

	buf, err := wire.EncodeUserEvent(pid, iid, hostname, event, payload)
	if err != nil {
		return fmt.Errorf("send %s: %w", event, err)
	}
	i.ep.Send(buf)
	return nil
}

// Join subscribes handler to every event whose name matches pattern
// (a regular expression). See channel.Table.Join for replace-on-duplicate
// semantics.
func (i *Instance) Join(pattern string, handler channel.Handler, user interface{}) {
	i.channels.Join(pattern, handler, user)
}

// Leave removes the subscription registered under the exact pattern string.
func (i *Instance) Leave(pattern string) {
	i.channels.Leave(pattern)
}

// Promote forces this instance into the master role, bypassing the normal
// election cycle, and marks it master-eligible in the same step.
func (i *Instance) Promote() {
	i.optMu.Lock()
	i.isMasterEligible = true
	i.isMaster = true
	i.optMu.Unlock()
}

// Demote forces this instance out of the master role. If permanent is true
// it also clears master-eligibility, so the check loop will not re-promote
// it on a later pass.
func (i *Instance) Demote(permanent bool) {
	i.optMu.Lock()
	i.isMaster = false
	if permanent {
		i.isMasterEligible = false
	}
	i.optMu.Unlock()
}

// IsMaster reports whether this instance currently holds the master role.
func (i *Instance) IsMaster() bool { return i.getIsMaster() }

// Nodes returns a snapshot of every currently known peer, in insertion
// order.
func (i *Instance) Nodes() []node.Node {
	var out []node.Node
	i.nodes.Iterate(func(n node.Node) { out = append(out, n) })
	return out
}

// PID and IID identify this instance on the wire; Hostname is the name
// advertised in every hello.
func (i *Instance) PID() string { return i.pid }
func (i *Instance) IID() string { return i.iid }

func (i *Instance) Hostname() string {
	i.optMu.Lock()
	defer i.optMu.Unlock()
	return i.hostname
}

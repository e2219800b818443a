// Package dispatch routes inbound datagrams to either the node table (hello
// messages) or matching channel subscriptions (user events).
package dispatch

import (
	"github.com/lanpeer/discover/channel"
	"github.com/lanpeer/discover/node"
	"github.com/lanpeer/discover/wire"
)

// Filter is the subset of the option store the dispatcher reads for every
// inbound datagram. Implementations must acquire the options lock
// internally.
type Filter struct {
	PID, IID                      string
	IgnoreProcess, IgnoreInstance bool
}

// GetFilterFunc returns the current filtering options.
type GetFilterFunc func() Filter

// Dispatcher parses and routes inbound datagrams.
type Dispatcher struct {
	table    *node.Table
	channels *channel.Table
	getFilt  GetFilterFunc

	onAdded         func(node.Node)
	onMaster        func(node.Node)
	onHelloReceived func(node.Node)
}

// New builds a dispatcher. Any observer callback may be nil.
func New(table *node.Table, channels *channel.Table, getFilt GetFilterFunc,
	onAdded, onMaster, onHelloReceived func(node.Node)) *Dispatcher {
	noop := func(node.Node) {}
	if onAdded == nil {
		onAdded = noop
	}
	if onMaster == nil {
		onMaster = noop
	}
	if onHelloReceived == nil {
		onHelloReceived = noop
	}
	return &Dispatcher{
		table:           table,
		channels:        channels,
		getFilt:         getFilt,
		onAdded:         onAdded,
		onMaster:        onMaster,
		onHelloReceived: onHelloReceived,
	}
}

// Handle is the transport.Handler entry point: parse as JSON, drop silently
// on any malformed or filtered datagram, otherwise route.
func (d *Dispatcher) Handle(senderIP string, senderPort int, payload []byte) {
	env, err := wire.Decode(payload)
	if err != nil {
		return
	}
	if env.PID == "" {
		return
	}
	filt := d.getFilt()
	if filt.IgnoreProcess && env.PID == filt.PID {
		return
	}
	if env.IID == "" {
		return
	}
	if filt.IgnoreInstance && env.IID == filt.IID {
		return
	}

	if env.Event == wire.HelloEvent {
		d.handleHello(env, senderIP, senderPort)
		return
	}

	d.channels.Dispatch(env.Event, env.Data)
}

func (d *Dispatcher) handleHello(env wire.Envelope, senderIP string, senderPort int) {
	if len(env.Data) == 0 || env.HostName == "" {
		return
	}
	data, err := wire.DecodeHelloData(env.Data)
	if err != nil {
		return
	}

	key := node.Key{PID: env.PID, IID: env.IID}
	n, wasNew, wasMasterBefore := d.table.Upsert(key, senderIP, senderPort, env.HostName, node.Data{
		IsMaster:         data.IsMaster,
		IsMasterEligible: data.IsMasterEligible,
		Weight:           data.Weight,
		Address:          data.Address,
		Advertisement:    data.Advertisement,
	}, node.Now())

	if wasNew {
		d.onAdded(n)
	}
	if data.IsMaster && (wasNew || !wasMasterBefore) {
		d.onMaster(n)
	}
	d.onHelloReceived(n)
}

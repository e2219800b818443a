package discover

import "github.com/lanpeer/discover/node"

// The On* setters each occupy a single overwritable slot: a second call
// replaces the first rather than appending. A nil callback clears the slot.

func (i *Instance) OnHelloReceived(fn func(node.Node)) { i.obsMu.Lock(); i.onHelloReceived = fn; i.obsMu.Unlock() }
func (i *Instance) OnHelloEmitted(fn func())           { i.obsMu.Lock(); i.onHelloEmitted = fn; i.obsMu.Unlock() }
func (i *Instance) OnPromotion(fn func())              { i.obsMu.Lock(); i.onPromotion = fn; i.obsMu.Unlock() }
func (i *Instance) OnDemotion(fn func())               { i.obsMu.Lock(); i.onDemotion = fn; i.obsMu.Unlock() }
func (i *Instance) OnCheck(fn func())                  { i.obsMu.Lock(); i.onCheck = fn; i.obsMu.Unlock() }
func (i *Instance) OnAdded(fn func(node.Node))         { i.obsMu.Lock(); i.onAdded = fn; i.obsMu.Unlock() }
func (i *Instance) OnMaster(fn func(node.Node))        { i.obsMu.Lock(); i.onMaster = fn; i.obsMu.Unlock() }
func (i *Instance) OnRemoved(fn func(node.Node))       { i.obsMu.Lock(); i.onRemoved = fn; i.obsMu.Unlock() }
func (i *Instance) OnError(fn func(string))            { i.obsMu.Lock(); i.onError = fn; i.obsMu.Unlock() }

func (i *Instance) fireHelloReceived(n node.Node) {
	i.obsMu.Lock()
	fn := i.onHelloReceived
	i.obsMu.Unlock()
	if fn != nil {
		fn(n)
	}
}

func (i *Instance) fireHelloEmitted() {
	i.obsMu.Lock()
	fn := i.onHelloEmitted
	i.obsMu.Unlock()
	if fn != nil {
		fn()
	}
}

func (i *Instance) firePromotion() {
	i.obsMu.Lock()
	fn := i.onPromotion
	i.obsMu.Unlock()
	if fn != nil {
		fn()
	}
}

func (i *Instance) fireDemotion() {
	i.obsMu.Lock()
	fn := i.onDemotion
	i.obsMu.Unlock()
	if fn != nil {
		fn()
	}
}

func (i *Instance) fireCheck() {
	i.obsMu.Lock()
	fn := i.onCheck
	i.obsMu.Unlock()
	if fn != nil {
		fn()
	}
}

func (i *Instance) fireAdded(n node.Node) {
	i.obsMu.Lock()
	fn := i.onAdded
	i.obsMu.Unlock()
	if fn != nil {
		fn(n)
	}
}

func (i *Instance) fireMaster(n node.Node) {
	i.obsMu.Lock()
	fn := i.onMaster
	i.obsMu.Unlock()
	if fn != nil {
		fn(n)
	}
}

func (i *Instance) fireRemoved(n node.Node) {
	i.obsMu.Lock()
	fn := i.onRemoved
	i.obsMu.Unlock()
	if fn != nil {
		fn(n)
	}
}

func (i *Instance) fireError(msg string) {
	i.obsMu.Lock()
	fn := i.onError
	i.obsMu.Unlock()
	if fn != nil {
		fn(msg)
	}
}

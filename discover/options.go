package discover

import "encoding/json"

// SetHelloInterval changes the hello period in milliseconds, effective on
// the next tick. Rejects non-positive values.
func (i *Instance) SetHelloInterval(ms int) bool {
	if ms <= 0 {
		return false
	}
	i.optMu.Lock()
	i.helloIntervalMs = ms
	i.optMu.Unlock()
	return true
}

// SetCheckInterval changes the check period in milliseconds. Rejected if it
// would violate checkInterval <= nodeTimeout.
func (i *Instance) SetCheckInterval(ms int) bool {
	if ms <= 0 {
		return false
	}
	i.optMu.Lock()
	defer i.optMu.Unlock()
	if ms > i.nodeTimeoutMs {
		return false
	}
	i.checkIntervalMs = ms
	return true
}

// SetNodeTimeout changes the peer eviction timeout in milliseconds.
// Rejected if it would violate checkInterval <= nodeTimeout <= masterTimeout.
func (i *Instance) SetNodeTimeout(ms int) bool {
	if ms <= 0 {
		return false
	}
	i.optMu.Lock()
	defer i.optMu.Unlock()
	if ms < i.checkIntervalMs || ms > i.masterTimeoutMs {
		return false
	}
	i.nodeTimeoutMs = ms
	return true
}

// SetMasterTimeout changes the master-peer eviction grace in milliseconds.
// Rejected if it would violate nodeTimeout <= masterTimeout.
func (i *Instance) SetMasterTimeout(ms int) bool {
	if ms <= 0 {
		return false
	}
	i.optMu.Lock()
	defer i.optMu.Unlock()
	if ms < i.nodeTimeoutMs {
		return false
	}
	i.masterTimeoutMs = ms
	return true
}

// SetWeight changes this instance's election weight, effective on the next
// hello and check cycle.
func (i *Instance) SetWeight(w float64) {
	i.optMu.Lock()
	i.weight = w
	i.optMu.Unlock()
}

// Weight returns the current election weight.
func (i *Instance) Weight() float64 {
	i.optMu.Lock()
	defer i.optMu.Unlock()
	return i.weight
}

// SetMastersRequired changes how many higher-weight masters must be seen
// before this instance demotes itself. Rejects values below 1.
func (i *Instance) SetMastersRequired(n int) bool {
	if n < 1 {
		return false
	}
	i.optMu.Lock()
	i.mastersRequired = n
	i.optMu.Unlock()
	return true
}

// SetMasterEligible changes whether this instance may ever hold the master
// role. Setting it false also clears a currently-held master role.
func (i *Instance) SetMasterEligible(eligible bool) {
	i.optMu.Lock()
	i.isMasterEligible = eligible
	if !eligible {
		i.isMaster = false
	}
	i.optMu.Unlock()
}

// SetAddress changes the advertised reachability address carried in hello
// messages (informational only; does not rebind the socket).
func (i *Instance) SetAddress(addr string) {
	i.optMu.Lock()
	i.address = addr
	i.optMu.Unlock()
}

// SetIgnoreProcess changes whether datagrams carrying this process's own
// pid are dropped before routing.
func (i *Instance) SetIgnoreProcess(ignore bool) {
	i.optMu.Lock()
	i.ignoreProcess = ignore
	i.optMu.Unlock()
}

// SetIgnoreInstance changes whether datagrams carrying this instance's own
// iid are dropped before routing.
func (i *Instance) SetIgnoreInstance(ignore bool) {
	i.optMu.Lock()
	i.ignoreInstance = ignore
	i.optMu.Unlock()
}

// SetHostname overrides the hostname advertised in every subsequent hello.
func (i *Instance) SetHostname(name string) {
	i.optMu.Lock()
	i.hostname = name
	i.optMu.Unlock()
}

// Advertise sets the free-form advertisement payload carried in every
// subsequent hello. A nil value clears it.
func (i *Instance) Advertise(payload interface{}) error {
	if payload == nil {
		i.optMu.Lock()
		i.advertisement = nil
		i.optMu.Unlock()
		return nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	i.optMu.Lock()
	i.advertisement = raw
	i.optMu.Unlock()
	return nil
}

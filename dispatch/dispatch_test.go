package dispatch

import (
	"encoding/json"
	"testing"

	"github.com/lanpeer/discover/channel"
	"github.com/lanpeer/discover/node"
	"github.com/lanpeer/discover/wire"
)

func noFilter() Filter { return Filter{PID: "self-pid", IID: "self-iid", IgnoreProcess: true, IgnoreInstance: true} }

func TestHandle_Hello_AddsNode(t *testing.T) {
	tbl := node.New()
	chTbl := channel.New()

	var added []node.Node
	d := New(tbl, chTbl, noFilter, func(n node.Node) { added = append(added, n) }, nil, nil)

	buf, _ := wire.EncodeHello("peer-pid", "peer-iid", "peer-host", wire.HelloData{
		IsMaster: false, IsMasterEligible: true, Weight: 1.0, Address: "0.0.0.0",
	})
	d.Handle("10.0.0.5", 12345, buf)

	if len(added) != 1 {
		t.Fatalf("added = %d, want 1", len(added))
	}
	if added[0].Address != "10.0.0.5" || added[0].Port != 12345 {
		t.Errorf("node should carry observed source address, got %+v", added[0])
	}
	if tbl.Len() != 1 {
		t.Errorf("table Len() = %d, want 1", tbl.Len())
	}
}

func TestHandle_Hello_AddedBeforeMaster(t *testing.T) {
	tbl := node.New()
	chTbl := channel.New()

	var events []string
	d := New(tbl, chTbl, noFilter,
		func(node.Node) { events = append(events, "added") },
		func(node.Node) { events = append(events, "master") },
		nil)

	buf, _ := wire.EncodeHello("peer-pid", "peer-iid", "peer-host", wire.HelloData{IsMaster: true, Weight: 5.0})
	d.Handle("10.0.0.5", 1, buf)

	if len(events) != 2 || events[0] != "added" || events[1] != "master" {
		t.Fatalf("expected [added master], got %v", events)
	}
}

func TestHandle_Hello_IgnoresSelfPid(t *testing.T) {
	tbl := node.New()
	chTbl := channel.New()
	called := false
	d := New(tbl, chTbl, noFilter, func(node.Node) { called = true }, nil, nil)

	buf, _ := wire.EncodeHello("self-pid", "other-iid", "h", wire.HelloData{})
	d.Handle("10.0.0.5", 1, buf)

	if called {
		t.Error("should have dropped message from own pid")
	}
	if tbl.Len() != 0 {
		t.Errorf("table Len() = %d, want 0", tbl.Len())
	}
}

func TestHandle_Hello_AcceptsSelfPidWhenFilterOff(t *testing.T) {
	tbl := node.New()
	chTbl := channel.New()
	filt := func() Filter {
		return Filter{PID: "self-pid", IID: "self-iid", IgnoreProcess: false, IgnoreInstance: false}
	}
	d := New(tbl, chTbl, filt, nil, nil, nil)

	buf, _ := wire.EncodeHello("self-pid", "other-iid", "h", wire.HelloData{Address: "0.0.0.0"})
	d.Handle("10.0.0.5", 1, buf)

	if tbl.Len() != 1 {
		t.Errorf("table Len() = %d, want 1 with filters off", tbl.Len())
	}
}

func TestHandle_MalformedJSON_Dropped(t *testing.T) {
	tbl := node.New()
	chTbl := channel.New()
	d := New(tbl, chTbl, noFilter, nil, nil, nil)

	d.Handle("10.0.0.5", 1, []byte("not json"))
	if tbl.Len() != 0 {
		t.Errorf("malformed datagram should not add a node")
	}
}

func TestHandle_UserEvent_DispatchesToChannel(t *testing.T) {
	tbl := node.New()
	chTbl := channel.New()

	var gotEvent string
	var gotPayload json.RawMessage
	chTbl.Join("te.*", func(event string, payload json.RawMessage, user interface{}) {
		gotEvent = event
		gotPayload = payload
	}, nil)

	d := New(tbl, chTbl, noFilter, nil, nil, nil)
	buf, _ := wire.EncodeUserEvent("peer-pid", "peer-iid", "h", "test", map[string]int{"x": 42})
	d.Handle("10.0.0.5", 1, buf)

	if gotEvent != "test" {
		t.Fatalf("gotEvent = %q, want test", gotEvent)
	}
	var payload map[string]int
	json.Unmarshal(gotPayload, &payload)
	if payload["x"] != 42 {
		t.Errorf("payload round-trip mismatch: %v", payload)
	}
}

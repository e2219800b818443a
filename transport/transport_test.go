package transport

import (
	"sync"
	"testing"
	"time"
)

func TestUnicast_SendAndReceive(t *testing.T) {
	var errA, errB []string
	a := New(func(msg string) { errA = append(errA, msg) })
	b := New(func(msg string) { errB = append(errB, msg) })

	if err := a.BindUnicast("127.0.0.1", 0, true, ""); err != nil {
		t.Fatalf("bind a: %v", err)
	}
	defer a.Close()

	bPort := 20123
	if err := b.BindUnicast("127.0.0.1", bPort, true, ""); err != nil {
		t.Fatalf("bind b: %v", err)
	}
	defer b.Close()

	a.SetUnicastTargets("127.0.0.1")
	a.port = bPort // deliver straight to b's bound port for this test

	var mu sync.Mutex
	received := make(chan []byte, 1)
	b.SetHandler(func(senderIP string, senderPort int, payload []byte) {
		mu.Lock()
		defer mu.Unlock()
		select {
		case received <- payload:
		default:
		}
	})
	b.Start()

	a.Send([]byte("hello"))

	select {
	case got := <-received:
		if string(got) != "hello" {
			t.Errorf("payload = %q, want hello", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for datagram")
	}

	if len(errA) != 0 || len(errB) != 0 {
		t.Errorf("unexpected transport errors: a=%v b=%v", errA, errB)
	}
}

func TestDestinationsFor_Unicast_ParsesCommaList(t *testing.T) {
	dests := destinationsFor(ModeUnicast, 9999, "", "", "10.0.0.1, 10.0.0.2,10.0.0.3")
	if len(dests) != 3 {
		t.Fatalf("len(dests) = %d, want 3", len(dests))
	}
	for _, d := range dests {
		if d.Port != 9999 {
			t.Errorf("port = %d, want 9999", d.Port)
		}
	}
}

func TestDestinationsFor_Broadcast(t *testing.T) {
	dests := destinationsFor(ModeBroadcast, 12345, "255.255.255.255", "", "")
	if len(dests) != 1 || dests[0].IP.String() != "255.255.255.255" {
		t.Fatalf("unexpected broadcast destination: %+v", dests)
	}
}

func TestDestinationsFor_Multicast(t *testing.T) {
	dests := destinationsFor(ModeMulticast, 12345, "", "239.1.1.1", "")
	if len(dests) != 1 || dests[0].IP.String() != "239.1.1.1" {
		t.Fatalf("unexpected multicast destination: %+v", dests)
	}
}

func TestClose_StopsReceiveLoop(t *testing.T) {
	e := New(nil)
	if err := e.BindUnicast("127.0.0.1", 0, true, ""); err != nil {
		t.Fatalf("bind: %v", err)
	}
	e.Start()
	if err := e.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

// Package transport owns a single multi-mode UDP socket: broadcast,
// multicast, or unicast-list delivery. It demultiplexes inbound datagrams to
// a handler and serialises outbound sends, one per configured destination.
package transport

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/net/ipv4"
)

// Mode selects which of the three mutually exclusive delivery strategies a
// bound Endpoint uses.
type Mode int

const (
	// ModeBroadcast sends to a fixed broadcast address (default mode).
	ModeBroadcast Mode = iota
	// ModeMulticast joins a multicast group and sends to it.
	ModeMulticast
	// ModeUnicast sends to an explicit, comma-separated target list.
	ModeUnicast
)

// recvDeadline bounds how long the receive loop blocks waiting for
// readability before re-checking for shutdown. A timeout with no data
// simply re-enters the wait; it has no other effect.
const recvDeadline = 5 * time.Second

// maxDatagram is sized to the largest possible UDP payload so a single read
// never truncates a datagram.
const maxDatagram = 65535

// Handler processes one inbound datagram. It is invoked on its own
// goroutine so a slow handler cannot stall the receive loop.
type Handler func(senderIP string, senderPort int, payload []byte)

// ErrorHandler reports creation/option/bind failures. It never terminates
// the receive loop once started.
type ErrorHandler func(message string)

// Endpoint is the single UDP socket an instance binds, in exactly one mode.
type Endpoint struct {
	onError ErrorHandler

	mu             sync.Mutex // guards the fields below ("transport clients lock")
	conn           *net.UDPConn
	pc             *ipv4.PacketConn // non-nil only in multicast mode
	mode           Mode
	port           int
	broadcastAddr  string
	multicastGroup string
	unicastTargets string

	handler Handler

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New creates an unbound endpoint. onError may be nil.
func New(onError ErrorHandler) *Endpoint {
	if onError == nil {
		onError = func(string) {}
	}
	return &Endpoint{onError: onError, stopCh: make(chan struct{})}
}

// SetHandler registers the inbound-datagram handler. Must be called before
// Start.
func (e *Endpoint) SetHandler(h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handler = h
}

func listenWithOptions(ctx context.Context, address string, port int, reuseAddr, broadcast bool) (*net.UDPConn, error) {
	lc := net.ListenConfig{
		Control: func(network, addr string, c syscall.RawConn) error {
			var sockErr error
			ctrlErr := c.Control(func(fd uintptr) {
				if reuseAddr {
					if err := syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1); err != nil {
						sockErr = fmt.Errorf("SO_REUSEADDR: %w", err)
						return
					}
				}
				if broadcast {
					if err := syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_BROADCAST, 1); err != nil {
						sockErr = fmt.Errorf("SO_BROADCAST: %w", err)
						return
					}
				}
			})
			if ctrlErr != nil {
				return ctrlErr
			}
			return sockErr
		},
	}

	pc, err := lc.ListenPacket(ctx, "udp4", net.JoinHostPort(address, strconv.Itoa(port)))
	if err != nil {
		return nil, err
	}
	conn, ok := pc.(*net.UDPConn)
	if !ok {
		pc.Close()
		return nil, fmt.Errorf("unexpected packet conn type %T", pc)
	}
	return conn, nil
}

// BindBroadcast binds the endpoint in broadcast mode: SO_BROADCAST is set on
// the socket, and Send transmits to broadcastAddr.
func (e *Endpoint) BindBroadcast(address string, port int, reuseAddr bool, broadcastAddr string) error {
	conn, err := listenWithOptions(context.Background(), address, port, reuseAddr, true)
	if err != nil {
		e.onError(fmt.Sprintf("bind broadcast: %v", err))
		return err
	}

	e.mu.Lock()
	e.conn = conn
	e.mode = ModeBroadcast
	e.port = port
	e.broadcastAddr = broadcastAddr
	e.mu.Unlock()
	return nil
}

// BindMulticast binds the endpoint in multicast mode: after bind, the
// socket joins group on the system-assigned multicast interface and sets
// the outbound TTL.
func (e *Endpoint) BindMulticast(address string, port int, reuseAddr bool, groupAddr string, ttl int) error {
	conn, err := listenWithOptions(context.Background(), address, port, reuseAddr, false)
	if err != nil {
		e.onError(fmt.Sprintf("bind multicast: %v", err))
		return err
	}

	pc := ipv4.NewPacketConn(conn)
	group := &net.UDPAddr{IP: net.ParseIP(groupAddr)}
	if err := pc.JoinGroup(nil, group); err != nil {
		conn.Close()
		e.onError(fmt.Sprintf("join multicast group %s: %v", groupAddr, err))
		return err
	}
	if err := pc.SetMulticastTTL(ttl); err != nil {
		e.onError(fmt.Sprintf("set multicast ttl: %v", err))
	}

	e.mu.Lock()
	e.conn = conn
	e.pc = pc
	e.mode = ModeMulticast
	e.port = port
	e.multicastGroup = groupAddr
	e.mu.Unlock()
	return nil
}

// BindUnicast binds the endpoint in unicast mode; targets is a
// comma-separated peer address list, used only at send time and re-parsed
// fresh on every send so live option changes take effect immediately.
func (e *Endpoint) BindUnicast(address string, port int, reuseAddr bool, targets string) error {
	conn, err := listenWithOptions(context.Background(), address, port, reuseAddr, false)
	if err != nil {
		e.onError(fmt.Sprintf("bind unicast: %v", err))
		return err
	}

	e.mu.Lock()
	e.conn = conn
	e.mode = ModeUnicast
	e.port = port
	e.unicastTargets = targets
	e.mu.Unlock()
	return nil
}

// SetUnicastTargets updates the live target list for unicast mode.
func (e *Endpoint) SetUnicastTargets(targets string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.unicastTargets = targets
}

// Start launches the receive loop. Must be called after a successful Bind*.
func (e *Endpoint) Start() {
	e.wg.Add(1)
	go e.recvLoop()
}

func (e *Endpoint) recvLoop() {
	defer e.wg.Done()

	e.mu.Lock()
	conn := e.conn
	e.mu.Unlock()
	if conn == nil {
		return
	}

	buf := make([]byte, maxDatagram)
	for {
		select {
		case <-e.stopCh:
			return
		default:
		}

		conn.SetReadDeadline(time.Now().Add(recvDeadline))
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			// Socket closed or other fatal error: stop quietly.
			return
		}
		if n <= 0 {
			continue
		}

		payload := make([]byte, n)
		copy(payload, buf[:n])

		e.mu.Lock()
		handler := e.handler
		e.mu.Unlock()

		if handler != nil {
			e.wg.Add(1)
			go func(ip string, port int, data []byte) {
				defer e.wg.Done()
				handler(ip, port, data)
			}(addr.IP.String(), addr.Port, payload)
		}
	}
}

// Send transmits buf once per configured destination. Failures for
// individual destinations are swallowed (best-effort); the caller is never
// notified. Each send runs on its own goroutine, matching the one-shot
// send-task model.
func (e *Endpoint) Send(buf []byte) {
	e.mu.Lock()
	conn := e.conn
	mode := e.mode
	port := e.port
	broadcastAddr := e.broadcastAddr
	multicastGroup := e.multicastGroup
	targets := e.unicastTargets
	e.mu.Unlock()

	if conn == nil {
		return
	}

	dests := destinationsFor(mode, port, broadcastAddr, multicastGroup, targets)
	for _, dst := range dests {
		e.wg.Add(1)
		go func(addr *net.UDPAddr) {
			defer e.wg.Done()
			conn.WriteToUDP(buf, addr) //nolint:errcheck // best-effort per destination
		}(dst)
	}
}

func destinationsFor(mode Mode, port int, broadcastAddr, multicastGroup, targets string) []*net.UDPAddr {
	switch mode {
	case ModeUnicast:
		var dests []*net.UDPAddr
		for _, t := range strings.Split(targets, ",") {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			ip := net.ParseIP(t)
			if ip == nil {
				continue
			}
			dests = append(dests, &net.UDPAddr{IP: ip, Port: port})
		}
		return dests
	case ModeMulticast:
		ip := net.ParseIP(multicastGroup)
		if ip == nil {
			return nil
		}
		return []*net.UDPAddr{{IP: ip, Port: port}}
	default: // ModeBroadcast
		ip := net.ParseIP(broadcastAddr)
		if ip == nil {
			return nil
		}
		return []*net.UDPAddr{{IP: ip, Port: port}}
	}
}

// Close stops the receive loop and closes the socket, waiting for
// in-flight send/handler goroutines to observe shutdown.
func (e *Endpoint) Close() error {
	e.stopOnce.Do(func() { close(e.stopCh) })

	e.mu.Lock()
	conn := e.conn
	e.mu.Unlock()

	var err error
	if conn != nil {
		err = conn.Close()
	}
	e.wg.Wait()
	return err
}

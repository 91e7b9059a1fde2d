package main

import (
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"
)

const (
	defaultMulticastAddr = "239.255.255.250:9868"

	// maxFrameSize is the largest LoRa payload.
	maxFrameSize = 255
)

var (
	// ErrNoFrame means nothing was heard before the timeout.
	ErrNoFrame = errors.New("no frame")
	// ErrFrameTooLarge is returned by Send for payloads over maxFrameSize.
	ErrFrameTooLarge = errors.New("frame too large")
	// ErrRadioClosed is returned after Close.
	ErrRadioClosed = errors.New("radio closed")
)

// Radio is a shared broadcast medium. Every device on it hears every frame,
// possibly including its own.
type Radio interface {
	Send(data []byte) error
	Receive(timeout time.Duration) (Frame, error)
	Close() error
}

// MulticastRadio emulates the LoRa channel with a UDP multicast group.
type MulticastRadio struct {
	group  *net.UDPAddr
	rx     *net.UDPConn
	tx     *net.UDPConn
	buf    []byte
	mu     sync.Mutex
	closed bool
}

// OpenMulticastRadio joins the group at addr.
func OpenMulticastRadio(addr string) (*MulticastRadio, error) {
	group, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve multicast addr %s: %w", addr, err)
	}
	if !group.IP.IsMulticast() {
		return nil, fmt.Errorf("%s is not a multicast address", addr)
	}

	rx, err := net.ListenMulticastUDP("udp4", nil, group)
	if err != nil {
		return nil, fmt.Errorf("failed to join multicast group %s: %w", addr, err)
	}
	tx, err := net.DialUDP("udp4", nil, group)
	if err != nil {
		rx.Close()
		return nil, fmt.Errorf("failed to open sender for %s: %w", addr, err)
	}

	log.Printf("Radio joined multicast group %s", addr)
	return &MulticastRadio{
		group: group,
		rx:    rx,
		tx:    tx,
		buf:   make([]byte, 1024),
	}, nil
}

func (r *MulticastRadio) Send(data []byte) error {
	if len(data) > maxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(data))
	}
	if r.isClosed() {
		return ErrRadioClosed
	}
	_, err := r.tx.Write(data)
	return err
}

// Receive waits up to timeout for one datagram. RSSI is not observable over
// UDP and is reported as 0.
func (r *MulticastRadio) Receive(timeout time.Duration) (Frame, error) {
	if r.isClosed() {
		return Frame{}, ErrRadioClosed
	}

	r.rx.SetReadDeadline(time.Now().Add(timeout))
	n, _, err := r.rx.ReadFromUDP(r.buf)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return Frame{}, ErrNoFrame
		}
		if r.isClosed() {
			return Frame{}, ErrRadioClosed
		}
		return Frame{}, err
	}

	data := make([]byte, n)
	copy(data, r.buf[:n])
	return Frame{Data: data}, nil
}

func (r *MulticastRadio) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	return errors.Join(r.rx.Close(), r.tx.Close())
}

func (r *MulticastRadio) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

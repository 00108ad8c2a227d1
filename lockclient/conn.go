// Package lockclient is the client side of the lock daemon's wire
// protocol: dialing, request/response multiplexing over one connection,
// and a Context handle for acquiring and releasing named locks.
package lockclient

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/mgdigital/resolvelock/ipc"
	"github.com/mgdigital/resolvelock/logger"
)

// Conn is a single multiplexed connection to a lock daemon: many Contexts
// may share one Conn, each outstanding request tracked by its requestId.
type Conn struct {
	conn net.Conn
	log  logger.Logger

	nextRequestID atomic.Uint32

	mu      sync.Mutex
	writeMu sync.Mutex
	pending map[uint32]chan ipc.Frame
	closed  bool
	closeErr error
}

// Dial opens a Conn to a daemon already listening at network/address. Use
// AutoConnect to additionally start the daemon if nothing answers.
func Dial(ctx context.Context, network, address string, log logger.Logger) (*Conn, error) {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	d := net.Dialer{}
	nc, err := d.DialContext(ctx, network, address)
	if err != nil {
		return nil, &IpcUnavailableError{Address: address, Cause: err}
	}
	return newConn(nc, log), nil
}

func newConn(nc net.Conn, log logger.Logger) *Conn {
	c := &Conn{
		conn:    nc,
		log:     log.WithComponent("lockclient"),
		pending: make(map[uint32]chan ipc.Frame),
	}
	go c.readLoop()
	return c
}

// Close closes the underlying connection and fails every outstanding
// request with IpcUnavailableError.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.conn.Close()
}

func (c *Conn) readLoop() {
	for {
		frame, err := ipc.ReadFrame(c.conn)
		if err != nil {
			c.failAllPending(err)
			return
		}

		c.mu.Lock()
		ch, ok := c.pending[frame.RequestID]
		if ok {
			delete(c.pending, frame.RequestID)
		}
		c.mu.Unlock()

		if !ok {
			c.log.Warnw("received response for unknown request id", "requestId", frame.RequestID)
			continue
		}
		ch <- frame
	}
}

func (c *Conn) failAllPending(cause error) {
	c.mu.Lock()
	c.closed = true
	c.closeErr = cause
	pending := c.pending
	c.pending = make(map[uint32]chan ipc.Frame)
	c.mu.Unlock()

	for _, ch := range pending {
		close(ch)
	}
}

// call sends req with a freshly allocated request id and waits for the
// matching response, or for ctx to be done, or for the connection to be
// lost.
func (c *Conn) call(ctx context.Context, args []string) (ipc.Frame, error) {
	id := c.nextRequestID.Add(1)
	req := ipc.Frame{RequestID: id, Args: args}

	respCh := make(chan ipc.Frame, 1)
	c.mu.Lock()
	if c.closed {
		err := c.closeErr
		c.mu.Unlock()
		if err == nil {
			err = fmt.Errorf("connection closed")
		}
		return ipc.Frame{}, &IpcUnavailableError{Cause: err}
	}
	c.pending[id] = respCh
	c.mu.Unlock()

	c.writeMu.Lock()
	err := ipc.WriteFrame(c.conn, req)
	c.writeMu.Unlock()
	if err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return ipc.Frame{}, &IpcUnavailableError{Cause: err}
	}

	select {
	case resp, ok := <-respCh:
		if !ok {
			return ipc.Frame{}, &IpcUnavailableError{Cause: c.closeErr}
		}
		if resp.Command() == ipc.RespError {
			msg := ""
			if len(resp.Args) > 1 {
				msg = resp.Args[1]
			}
			return ipc.Frame{}, &IpcProtocolError{Message: msg}
		}
		return resp, nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return ipc.Frame{}, ctx.Err()
	}
}

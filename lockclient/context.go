package lockclient

import (
	"context"
	"fmt"
	"time"

	"github.com/mgdigital/resolvelock/ipc"
)

// Context is a client-side handle to a lock context opened on the daemon.
// Its shared/exclusive mode is fixed when it is opened and applies to
// every key it acquires; all keys acquired through it are released
// together when it is closed.
type Context struct {
	conn *Conn
	id   string
}

// Open opens a new lock context on the daemon conn is connected to, fixed
// to the given shared/exclusive mode for every key it will acquire.
func Open(ctx context.Context, conn *Conn, shared bool) (*Context, error) {
	resp, err := conn.call(ctx, []string{ipc.CmdContext, ipc.BoolArg(shared)})
	if err != nil {
		return nil, err
	}
	if len(resp.Args) < 2 {
		return nil, &IpcProtocolError{Message: "CONTEXT response missing context id"}
	}
	return &Context{conn: conn, id: resp.Args[1]}, nil
}

// ID returns the daemon-assigned context id.
func (c *Context) ID() string {
	return c.id
}

// Acquire blocks until every key in keys is held, in this context's fixed
// mode. It retries transient IpcUnavailableError failures with exponential
// backoff until ctx is done.
func (c *Context) Acquire(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	args := make([]string, 0, len(keys)+2)
	args = append(args, ipc.CmdAcquire, c.id)
	args = append(args, keys...)

	backoff := 50 * time.Millisecond
	const maxBackoff = 2 * time.Second
	for {
		_, err := c.conn.call(ctx, args)
		if err == nil {
			return nil
		}
		var unavailable *IpcUnavailableError
		if !asIpcUnavailableError(err, &unavailable) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < maxBackoff {
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}
}

// Close releases this context and every key it still holds.
func (c *Context) Close(ctx context.Context) error {
	_, err := c.conn.call(ctx, []string{ipc.CmdClose, c.id})
	return err
}

func asIpcUnavailableError(err error, target **IpcUnavailableError) bool {
	if e, ok := err.(*IpcUnavailableError); ok {
		*target = e
		return true
	}
	return false
}

// Stop asks the daemon to shut down after flushing this response. Intended
// for administrative use (e.g. cmd/lockctl), not ordinary lock usage.
func Stop(ctx context.Context, conn *Conn) error {
	resp, err := conn.call(ctx, []string{ipc.CmdStop})
	if err != nil {
		return err
	}
	if resp.Command() != ipc.CmdStop {
		return fmt.Errorf("lockclient: unexpected STOP response %q", resp.Command())
	}
	return nil
}

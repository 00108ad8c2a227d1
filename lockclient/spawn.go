package lockclient

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"time"

	"github.com/mgdigital/resolvelock/ipc"
	"github.com/mgdigital/resolvelock/logger"
)

// SpawnConfig describes how to auto-start a daemon when none answers at
// the configured address.
type SpawnConfig struct {
	// DaemonPath is the lockd binary to exec, e.g. via exec.LookPath.
	DaemonPath string

	// Args are extra arguments passed to the daemon, appended after the
	// flags AutoConnect generates for the listen address and handshake.
	Args []string

	// HandshakeTimeout bounds how long AutoConnect waits for the spawned
	// daemon to dial back with its real address.
	HandshakeTimeout time.Duration
}

// AutoConnect dials network/address; if that fails, it spawns a daemon per
// spawnCfg and connects to the address the daemon reports back over the
// rendezvous handshake.
func AutoConnect(ctx context.Context, network, address string, spawnCfg SpawnConfig, log logger.Logger) (*Conn, error) {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	log = log.WithComponent("lockclient")

	conn, err := Dial(ctx, network, address, log)
	if err == nil {
		return conn, nil
	}
	log.Infow("no daemon answered, spawning one", "network", network, "address", address, "cause", err)

	return spawnAndConnect(ctx, network, address, spawnCfg, log)
}

func spawnAndConnect(ctx context.Context, network, address string, cfg SpawnConfig, log logger.Logger) (*Conn, error) {
	rendezvous, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("lockclient: open rendezvous listener: %w", err)
	}
	defer rendezvous.Close()

	nonce := ipc.NewNonce()

	args := append([]string{
		"--listen-network", network,
		"--listen-address", address,
		"--handshake-network", "tcp",
		"--handshake-address", rendezvous.Addr().String(),
		"--handshake-nonce", nonce,
	}, cfg.Args...)

	cmd := exec.CommandContext(ctx, cfg.DaemonPath, args...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("lockclient: spawn daemon: %w", err)
	}

	timeout := cfg.HandshakeTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if err := rendezvous.(*net.TCPListener).SetDeadline(time.Now().Add(timeout)); err != nil {
		return nil, fmt.Errorf("lockclient: set rendezvous deadline: %w", err)
	}

	hsConn, err := rendezvous.Accept()
	if err != nil {
		return nil, fmt.Errorf("lockclient: waiting for spawned daemon handshake: %w", err)
	}
	defer hsConn.Close()

	hs, err := ipc.ReadHandshake(hsConn)
	if err != nil {
		return nil, fmt.Errorf("lockclient: read handshake: %w", err)
	}
	if hs.Nonce != nonce {
		return nil, fmt.Errorf("lockclient: handshake nonce mismatch")
	}

	log.Infow("daemon announced address", "address", hs.Address)
	return Dial(ctx, network, hs.Address, log)
}

// Command lockctl is a small CLI client for the lock daemon, useful for
// scripting and for exercising the daemon manually. It connects (spawning
// a daemon if none is listening), opens one context, and either acquires
// keys and waits to be interrupted, or sends an administrative STOP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/mgdigital/resolvelock/lockclient"
	"github.com/mgdigital/resolvelock/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "lockctl: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		return fmt.Errorf("usage: lockctl <acquire|stop> [flags] [keys...]")
	}
	cmd := os.Args[1]
	switch cmd {
	case "acquire":
		return runAcquire(os.Args[2:])
	case "stop":
		return runStop(os.Args[2:])
	default:
		return fmt.Errorf("unknown command %q; expected acquire or stop", cmd)
	}
}

func commonFlags(name string) (*pflag.FlagSet, *string, *string, *time.Duration) {
	network := new(string)
	address := new(string)
	timeout := new(time.Duration)
	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flags.StringVar(network, "network", "unix", `daemon network: "unix" or "tcp"`)
	flags.StringVar(address, "address", defaultSocketPath(), "daemon address")
	flags.DurationVar(timeout, "timeout", 30*time.Second, "overall operation timeout")
	return flags, network, address, timeout
}

func runAcquire(args []string) error {
	flags, network, address, timeout := commonFlags("lockctl acquire")
	shared := flags.Bool("shared", false, "acquire in shared (read) mode rather than exclusive")
	hold := flags.Duration("hold", 0, "how long to hold the lock before releasing (0 = until interrupted)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	keys := flags.Args()
	if len(keys) == 0 {
		return fmt.Errorf("acquire requires at least one key")
	}

	log := logger.NewStdLogger("info").WithComponent("lockctl")

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, err := lockclient.AutoConnect(ctx, *network, *address, lockclient.SpawnConfig{
		DaemonPath: resolveDaemonPath(),
	}, log)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	lc, err := lockclient.Open(ctx, conn, *shared)
	if err != nil {
		return fmt.Errorf("open context: %w", err)
	}

	if err := lc.Acquire(ctx, keys...); err != nil {
		return fmt.Errorf("acquire: %w", err)
	}
	fmt.Printf("acquired %v (context %s)\n", keys, lc.ID())

	if *hold > 0 {
		time.Sleep(*hold)
	} else {
		waitForInterrupt()
	}

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCancel()
	if err := lc.Close(closeCtx); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}

func runStop(args []string) error {
	flags, network, address, timeout := commonFlags("lockctl stop")
	if err := flags.Parse(args); err != nil {
		return err
	}

	log := logger.NewStdLogger("info").WithComponent("lockctl")
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, err := lockclient.Dial(ctx, *network, *address, log)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	if err := lockclient.Stop(ctx, conn); err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	fmt.Println("daemon stopping")
	return nil
}

func waitForInterrupt() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	<-ctx.Done()
}

func defaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir + "/lockd.sock"
	}
	return os.TempDir() + "/lockd.sock"
}

// resolveDaemonPath returns the lockd binary to spawn when AutoConnect
// finds nothing listening. exec.Command resolves a bare name like "lockd"
// against PATH, so LOCKD_PATH only needs to be set when it isn't there.
func resolveDaemonPath() string {
	if p := os.Getenv("LOCKD_PATH"); p != "" {
		return p
	}
	return "lockd"
}

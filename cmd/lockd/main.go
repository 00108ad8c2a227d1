// Command lockd runs the lock daemon: it accepts CONTEXT/ACQUIRE/CLOSE/STOP
// requests over a unix socket or TCP connection and serializes access to
// named locks across whatever processes connect to it.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/mgdigital/resolvelock/clock"
	"github.com/mgdigital/resolvelock/lockd"
	"github.com/mgdigital/resolvelock/logger"
	"github.com/mgdigital/resolvelock/metrics"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "lockd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile       string
		network          string
		address          string
		idleTimeout      time.Duration
		maxRPS           int
		burst            int
		metricsAddr      string
		logLevel         string
		handshakeNetwork string
		handshakeAddress string
		handshakeNonce   string
	)

	flags := pflag.NewFlagSet("lockd", pflag.ContinueOnError)
	flags.StringVar(&configFile, "config", "", "optional YAML config file; flags below override its values")
	flags.StringVar(&network, "listen-network", "", `listener family: "unix" or "tcp" (default "unix")`)
	flags.StringVar(&address, "listen-address", "", "listener address: a socket path for unix, host:port for tcp")
	flags.DurationVar(&idleTimeout, "idle-timeout", 0, "how long an unused context may sit open before it is closed")
	flags.IntVar(&maxRPS, "max-requests-per-second", 0, "cap on requests accepted per second across all connections (0 disables)")
	flags.IntVar(&burst, "request-burst", 0, "burst capacity for --max-requests-per-second")
	flags.StringVar(&metricsAddr, "metrics-address", "", "if set, serve Prometheus metrics on this host:port")
	flags.StringVar(&logLevel, "log-level", "info", "minimum log level: debug, info, warn, error")
	flags.StringVar(&handshakeNetwork, "handshake-network", "", "rendezvous network to dial back on after listening (auto-spawn only)")
	flags.StringVar(&handshakeAddress, "handshake-address", "", "rendezvous address to dial back to (auto-spawn only)")
	flags.StringVar(&handshakeNonce, "handshake-nonce", "", "nonce to echo back during the rendezvous handshake (auto-spawn only)")
	flags.BoolP("help", "h", false, "show help")

	if err := flags.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if help, _ := flags.GetBool("help"); help {
		flags.PrintDefaults()
		return nil
	}

	log := logger.NewStdLogger(logLevel).WithComponent("lockd")

	cfg := lockd.DefaultConfig()
	cfg.Address = defaultSocketPath()
	if configFile != "" {
		var err error
		cfg, err = lockd.LoadConfigFile(configFile, cfg)
		if err != nil {
			return err
		}
	}

	if flags.Changed("listen-network") {
		cfg.Network = network
	}
	if flags.Changed("listen-address") {
		cfg.Address = address
	}
	if flags.Changed("idle-timeout") {
		cfg.IdleTimeout = idleTimeout
	}
	if flags.Changed("max-requests-per-second") {
		cfg.MaxRequestsPerSecond = maxRPS
	}
	if flags.Changed("request-burst") {
		cfg.RequestBurst = burst
	}
	cfg.HandshakeNetwork = handshakeNetwork
	cfg.HandshakeAddress = handshakeAddress
	cfg.HandshakeNonce = handshakeNonce

	if err := cfg.Validate(); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	daemonMetrics := metrics.NewPrometheusDaemonMetrics(reg)
	cfg.Clock = clock.New()
	cfg.Logger = log
	cfg.Metrics = daemonMetrics

	if metricsAddr != "" {
		go serveMetrics(metricsAddr, reg, log)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv := lockd.NewServer(cfg)

	log.Infow("starting lock daemon", "network", cfg.Network, "address", cfg.Address)
	if err := srv.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry, log logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	log.Infow("serving metrics", "address", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Errorw("metrics server stopped", "error", err)
	}
}

func defaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir + "/lockd.sock"
	}
	return os.TempDir() + "/lockd.sock"
}

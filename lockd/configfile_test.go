package lockd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mgdigital/resolvelock/testutil"
)

func TestLoadConfigFile_MergesOntoBase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lockd.yaml")
	contents := "network: tcp\naddress: 127.0.0.1:9999\nidle_timeout: 5m\nmax_requests_per_second: 50\nrequest_burst: 10\n"
	testutil.RequireNoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := LoadConfigFile(path, DefaultConfig())
	testutil.RequireNoError(t, err, "LoadConfigFile failed")

	testutil.AssertEqual(t, "tcp", cfg.Network)
	testutil.AssertEqual(t, "127.0.0.1:9999", cfg.Address)
	testutil.AssertEqual(t, 5*time.Minute, cfg.IdleTimeout)
	testutil.AssertEqual(t, 50, cfg.MaxRequestsPerSecond)
	testutil.AssertEqual(t, 10, cfg.RequestBurst)
}

func TestLoadConfigFile_LeavesUnsetFieldsAtBase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lockd.yaml")
	testutil.RequireNoError(t, os.WriteFile(path, []byte("address: /tmp/custom.sock\n"), 0o644))

	base := DefaultConfig()
	cfg, err := LoadConfigFile(path, base)
	testutil.RequireNoError(t, err, "LoadConfigFile failed")

	testutil.AssertEqual(t, base.Network, cfg.Network, "expected network to remain at base default")
	testutil.AssertEqual(t, "/tmp/custom.sock", cfg.Address, "expected overridden address")
}

func TestLoadConfigFile_MissingFileErrors(t *testing.T) {
	_, err := LoadConfigFile("/nonexistent/lockd.yaml", DefaultConfig())
	testutil.AssertError(t, err, "expected an error for a missing file")
}

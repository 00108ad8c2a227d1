package lockd

import (
	"testing"

	"github.com/mgdigital/resolvelock/clock"
	"github.com/mgdigital/resolvelock/metrics"
	"github.com/mgdigital/resolvelock/testutil"
)

func TestConnectionManager_ConnectDisconnect(t *testing.T) {
	cm := NewConnectionManager(metrics.NewNoOpDaemonMetrics(), nil, clock.New())

	cm.OnConnect("127.0.0.1:1")
	cm.OnConnect("127.0.0.1:2")
	testutil.AssertEqual(t, 2, cm.ActiveConnections())

	cm.OnRequest("127.0.0.1:1")
	cm.OnRequest("127.0.0.1:1")
	snap := cm.Snapshot()
	testutil.AssertEqual(t, int64(2), snap["127.0.0.1:1"].RequestCount)

	cm.OnDisconnect("127.0.0.1:1")
	testutil.AssertEqual(t, 1, cm.ActiveConnections())
}

func TestConnectionManager_RequestForUnknownConnectionIsNoop(t *testing.T) {
	cm := NewConnectionManager(metrics.NewNoOpDaemonMetrics(), nil, clock.New())
	cm.OnRequest("never-connected")
}

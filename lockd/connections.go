package lockd

import (
	"sync"
	"time"

	"github.com/mgdigital/resolvelock/clock"
	"github.com/mgdigital/resolvelock/logger"
	"github.com/mgdigital/resolvelock/metrics"
)

// ConnectionInfo holds metadata about one client TCP/unix connection.
type ConnectionInfo struct {
	RemoteAddr   string
	ConnectedAt  time.Time
	LastActive   time.Time
	RequestCount int64
}

// ConnectionManager tracks a Server's live client connections for
// observability: active count, per-connection request rates, idle
// detection independent of the lock-level idle timeout.
type ConnectionManager interface {
	OnConnect(remoteAddr string)
	OnDisconnect(remoteAddr string)
	OnRequest(remoteAddr string)
	ActiveConnections() int
	Snapshot() map[string]ConnectionInfo
}

type connectionManager struct {
	mu          sync.RWMutex
	connections map[string]*ConnectionInfo

	metrics metrics.DaemonMetrics
	log     logger.Logger
	clock   clock.Clock
}

// NewConnectionManager builds a ConnectionManager reporting to m (may be
// metrics.NewNoOpDaemonMetrics()).
func NewConnectionManager(m metrics.DaemonMetrics, log logger.Logger, c clock.Clock) ConnectionManager {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	if c == nil {
		c = clock.New()
	}
	if m == nil {
		m = metrics.NewNoOpDaemonMetrics()
	}
	return &connectionManager{
		connections: make(map[string]*ConnectionInfo),
		metrics:     m,
		log:         log.WithComponent("lockd.connections"),
		clock:       c,
	}
}

func (cm *connectionManager) OnConnect(remoteAddr string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if _, exists := cm.connections[remoteAddr]; exists {
		cm.log.Warnw("connection already tracked", "remoteAddr", remoteAddr)
		return
	}
	now := cm.clock.Now()
	cm.connections[remoteAddr] = &ConnectionInfo{RemoteAddr: remoteAddr, ConnectedAt: now, LastActive: now}
	cm.metrics.SetActiveConnections(len(cm.connections))
	cm.log.Debugw("client connected", "remoteAddr", remoteAddr, "total", len(cm.connections))
}

func (cm *connectionManager) OnDisconnect(remoteAddr string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if _, exists := cm.connections[remoteAddr]; !exists {
		return
	}
	delete(cm.connections, remoteAddr)
	cm.metrics.SetActiveConnections(len(cm.connections))
	cm.log.Debugw("client disconnected", "remoteAddr", remoteAddr, "total", len(cm.connections))
}

func (cm *connectionManager) OnRequest(remoteAddr string) {
	now := cm.clock.Now()
	cm.mu.Lock()
	defer cm.mu.Unlock()

	info, exists := cm.connections[remoteAddr]
	if !exists {
		return
	}
	info.LastActive = now
	info.RequestCount++
}

func (cm *connectionManager) ActiveConnections() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.connections)
}

func (cm *connectionManager) Snapshot() map[string]ConnectionInfo {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	out := make(map[string]ConnectionInfo, len(cm.connections))
	for addr, info := range cm.connections {
		out[addr] = *info
	}
	return out
}

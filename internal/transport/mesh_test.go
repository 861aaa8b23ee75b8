package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trailsentry/trailsentry-go/internal/alert"
	"github.com/trailsentry/trailsentry-go/internal/conf"
)

func testMesh() *Mesh {
	return NewMesh(&conf.MeshSettings{
		Enabled:    true,
		Broker:     "tcp://localhost:1883",
		Topic:      "trailsentry/alerts",
		NodeWindow: 3 * time.Minute,
	}, "test-node")
}

func TestMesh_ActiveNodes_Window(t *testing.T) {
	t.Parallel()

	mesh := testMesh()
	now := time.Now()

	mesh.markNodeSeen("node-a", now)
	mesh.markNodeSeen("node-b", now.Add(-time.Minute))
	mesh.markNodeSeen("node-c", now.Add(-10*time.Minute)) // stale

	assert.Equal(t, 2, mesh.ActiveNodes(), "only nodes heard within the window count")

	// The stale node must have been pruned.
	mesh.nodesMu.Lock()
	_, exists := mesh.lastSeen["node-c"]
	mesh.nodesMu.Unlock()
	assert.False(t, exists)
}

func TestMesh_ActiveNodes_Empty(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, testMesh().ActiveNodes())
}

func TestMesh_MarkNodeSeen_IgnoresEmptyID(t *testing.T) {
	t.Parallel()

	mesh := testMesh()
	mesh.markNodeSeen("", time.Now())
	assert.Equal(t, 0, mesh.ActiveNodes())
}

func TestMesh_PresenceTopic(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "trailsentry/nodes/+", testMesh().presenceTopic())
}

func TestMesh_Send_NotConnected(t *testing.T) {
	t.Parallel()

	outcome := testMesh().Send(t.Context(), testRecord())
	assert.Equal(t, alert.OutcomeFailure, outcome, "send without a gateway connection fails fast")
}

func TestMesh_IsAvailable_NotConnected(t *testing.T) {
	t.Parallel()

	assert.False(t, testMesh().IsAvailable())
}

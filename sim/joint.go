package sim

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/localphysics/localsim/assert"
)

// JointConfig is the constraint configuration carried by a joint. The scene
// treats it as opaque beyond what constraint assembly needs: two anchor
// points and the linear play allowed before the joint pulls the anchors back
// together.
type JointConfig struct {
	// LocalAnchorA and LocalAnchorB are anchor points in each actor's local
	// frame. When the corresponding actor is nil (a world joint), the anchor
	// is interpreted in world space.
	LocalAnchorA mgl32.Vec3
	LocalAnchorB mgl32.Vec3
	// LinearLimit is the anchor separation tolerated before the constraint
	// engages. Zero makes a hard ball-socket.
	LinearLimit float32
}

type jointInfo struct {
	cfg    JointConfig
	actorA *ActorHandle
	actorB *ActorHandle

	// warmImpulse is the accumulated impulse from the previous step, fed
	// back to the solver for warm starting. Reset whenever joint processing
	// order changes.
	warmImpulse mgl32.Vec3
}

// CreateJoint adds a constraint between two actors and returns its handle.
// Either handle may be nil, anchoring that side to the world.
func (s *Scene) CreateJoint(cfg JointConfig, actorA, actorB *ActorHandle) *JointHandle {
	assert.IsTrue(!s.terminated, "scene used after Terminate")
	assert.IsTrue(actorA.Valid() || actorB.Valid(), "joint requires at least one live actor")

	idx := len(s.joints)
	s.joints = append(s.joints, jointInfo{cfg: cfg, actorA: actorA, actorB: actorB})

	s.handleID++
	h := &JointHandle{scene: s, id: s.handleID, index: idx}
	s.jointHandles = append(s.jointHandles, h)

	s.dirtyJointData = true
	s.recreateIterationCache = true
	return h
}

// RemoveJoint swap-compacts the joint out of the joint array and invalidates
// the handle. Joint processing order is marked dirty so the next step
// re-batches.
func (s *Scene) RemoveJoint(h *JointHandle) {
	assert.IsTrue(!s.terminated, "scene used after Terminate")
	assert.IsTrue(h.Valid() && h.scene == s, "stale joint handle passed to RemoveJoint")

	idx := h.index
	last := len(s.joints) - 1
	s.swapJointData(idx, last)
	s.joints = s.joints[:last]
	s.jointHandles = s.jointHandles[:last]

	h.index = -1
	s.dirtyJointData = true
	s.recreateIterationCache = true
}

// swapJointData moves all data associated with the two joint slots,
// including the handle back-links. Safe when i == j.
func (s *Scene) swapJointData(i, j int) {
	if i == j {
		return
	}
	s.joints[i], s.joints[j] = s.joints[j], s.joints[i]
	s.jointHandles[i], s.jointHandles[j] = s.jointHandles[j], s.jointHandles[i]
	s.jointHandles[i].index = i
	s.jointHandles[j].index = j
}

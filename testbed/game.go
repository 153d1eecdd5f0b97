package testbed

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/anima-pipeline/engine"
	"github.com/spaghettifunk/anima-pipeline/engine/config"
	"github.com/spaghettifunk/anima-pipeline/engine/core"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer/framegraph"
)

// TestGame orbits a camera around the origin and feeds it to the global
// render data of the frame every update.
type TestGame struct {
	*engine.Game
}

type gameState struct {
	// radians per second
	OrbitSpeed  float32
	OrbitRadius float32
	Height      float32
	FovY        float32
	Aspect      float32

	angle float32
}

func NewTestGame(cfg *config.Config) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			Config: cfg,
			State: &gameState{
				OrbitSpeed:  0.5,
				OrbitRadius: 10,
				Height:      4,
				FovY:        mgl32.DegToRad(45),
				Aspect:      16.0 / 9.0,
			},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnShutdown = tg.Shutdown

	return tg
}

func (g *TestGame) Initialize(frame *framegraph.Frame) error {
	core.LogDebug("TestGame Initialize fn....")
	return g.Update(frame, 0)
}

// Update moves the camera along its orbit. Constants the loaded layouts do
// not declare are skipped.
func (g *TestGame) Update(frame *framegraph.Frame, deltaTime time.Duration) error {
	state := g.State.(*gameState)
	state.angle += state.OrbitSpeed * float32(deltaTime.Seconds())
	state.angle = float32(math.Mod(float64(state.angle), 2*math.Pi))

	eye := mgl32.Vec3{
		state.OrbitRadius * float32(math.Cos(float64(state.angle))),
		state.Height,
		state.OrbitRadius * float32(math.Sin(float64(state.angle))),
	}
	view := mgl32.LookAtV(eye, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	proj := mgl32.Perspective(state.FovY, state.Aspect, 0.1, 1000)

	global := frame.RenderGraph.Global()
	if id, ok := frame.Layouts.ConstantID("cc_matView"); ok {
		global.SetMat4(id, view)
	}
	if id, ok := frame.Layouts.ConstantID("cc_matProj"); ok {
		global.SetMat4(id, proj)
	}
	if id, ok := frame.Layouts.ConstantID("cc_cameraPos"); ok {
		global.SetFloats(id, eye.X(), eye.Y(), eye.Z(), 1)
	}
	return nil
}

func (g *TestGame) Shutdown() error {
	core.LogDebug("TestGame Shutdown fn....")
	return nil
}

package engine

import (
	"time"

	"github.com/spaghettifunk/anima-pipeline/engine/config"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer/framegraph"
)

// Game is what an application plugs into the engine. Every hook is
// optional.
type Game struct {
	Config       *config.Config
	State        interface{}
	FnInitialize Initialize
	FnUpdate     Update
	FnShutdown   Shutdown
}

// Initialize runs once the first frame graph is loaded.
type Initialize func(frame *framegraph.Frame) error

// Update runs before the descriptor sets of a frame are prepared. It may
// change render data, it must not add or remove nodes.
type Update func(frame *framegraph.Frame, deltaTime time.Duration) error
type Shutdown func() error

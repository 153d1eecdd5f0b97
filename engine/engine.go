package engine

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/anima-pipeline/engine/config"
	"github.com/spaghettifunk/anima-pipeline/engine/core"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer/framegraph"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer/headless"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer/layoutgraph"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer/pipeline"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

type Engine struct {
	currentStage Stage
	gameInstance *Game
	cfg          *config.Config
	isRunning    atomic.Bool

	device   *headless.Device
	cmd      *headless.CommandBuffer
	pipeline *pipeline.Pipeline
	frame    *framegraph.Frame
	watcher  *layoutgraph.Watcher

	clock       *core.Clock
	lastTime    time.Duration
	frameNumber uint64
}

func New(g *Game) (*Engine, error) {
	if g == nil {
		return nil, errors.New("engine needs a game")
	}
	if g.Config == nil {
		g.Config = config.Default()
	}
	if err := g.Config.Validate(); err != nil {
		return nil, err
	}
	cfg := g.Config
	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		cfg:          cfg,
		device: headless.NewDevice(headless.Config{
			FramesInFlight:         cfg.Pipeline.FramesInFlight,
			DescriptorSetsPerFrame: cfg.Device.DescriptorSetsPerFrame,
			BuffersPerFrame:        cfg.Device.BuffersPerFrame,
			BufferAlignment:        cfg.Device.BufferAlignment,
			NoDefaultSampler:       cfg.Device.NoDefaultSampler,
		}),
		cmd:   headless.NewCommandBuffer(),
		clock: core.NewClock(),
	}, nil
}

func (e *Engine) Initialize(ctx context.Context) error {
	e.currentStage = EngineStageInitializing

	if err := core.LogConfigure(e.cfg.Log.Level, e.cfg.Log.Prefix); err != nil {
		return err
	}

	core.EventInitialize()
	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)

	layouts, err := layoutgraph.LoadDir(ctx, e.cfg.Assets.LayoutsDir)
	if err != nil {
		return err
	}
	e.pipeline, err = pipeline.New(e.device, layouts, pipeline.Options{LayoutCacheSize: e.cfg.Pipeline.LayoutCacheSize})
	if err != nil {
		return err
	}
	e.frame, err = framegraph.LoadFrameFile(e.cfg.Assets.FrameFile, layouts, e.device)
	if err != nil {
		return err
	}
	core.LogInfo("loaded %d layouts from %s and %d nodes from %s",
		layouts.Len(), e.cfg.Assets.LayoutsDir, e.frame.RenderGraph.Len(), e.cfg.Assets.FrameFile)

	if e.cfg.Assets.Watch {
		if e.watcher, err = layoutgraph.NewWatcher(e.cfg.Assets.LayoutsDir); err != nil {
			return err
		}
	}

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(e.frame); err != nil {
			return err
		}
	}
	e.currentStage = EngineStageInitialized
	return nil
}

// Run prepares frames until the context is done, the configured frame count
// is reached or the application quits.
func (e *Engine) Run(ctx context.Context) error {
	if e.currentStage != EngineStageInitialized {
		return errors.New("engine is not initialized")
	}
	e.currentStage = EngineStageRunning
	e.isRunning.Store(true)

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.isRunning.Load() {
		if ctx.Err() != nil {
			break
		}
		if n := e.cfg.Pipeline.Frames; n > 0 && e.frameNumber >= n {
			break
		}
		if err := e.RunFrame(); err != nil {
			core.LogError("frame %d failed, shutting down: %v", e.frameNumber, err)
			e.isRunning.Store(false)
			return err
		}
	}
	e.isRunning.Store(false)

	m := e.pipeline.Metrics()
	core.LogInfo("ran %d frames: %d descriptor sets, %d uploads, %d bytes of uniform buffers, average prepare time %s",
		m.Frames, m.Total.DescriptorSetsBuilt, m.Total.UniformUploads, e.device.BufferMemory(), m.FrameTime())
	return nil
}

// RunFrame prepares the descriptor sets of every pass of the frame graph.
func (e *Engine) RunFrame() error {
	e.pollLayouts()

	e.clock.Update()
	currentTime := e.clock.Elapsed()
	delta := currentTime - e.lastTime
	e.lastTime = currentTime

	e.pipeline.BeginFrame()
	e.cmd.Reset()

	if e.gameInstance.FnUpdate != nil {
		if err := e.gameInstance.FnUpdate(e.frame, delta); err != nil {
			return errors.Wrap(err, "game update failed")
		}
	}

	rg := e.frame.RenderGraph
	e.frame.Dispatcher.Run()
	metrics := e.pipeline.Metrics()
	for _, pass := range rg.Roots() {
		if err := e.pipeline.PrepareDescriptorSets(e.cmd, e.frame.Dispatcher, pass); err != nil {
			return err
		}
		core.EventFire(core.EVENT_CODE_PASS_PREPARED, e, core.EventContext{
			Frame: e.frameNumber,
			Name:  rg.Name(pass),
			Stats: metrics.Frame,
		})
	}
	core.LogDebug("frame %d: %d descriptor sets, %d uploads", e.frameNumber,
		metrics.Frame.DescriptorSetsBuilt, len(e.cmd.Uploads()))
	core.EventFire(core.EVENT_CODE_FRAME_COMPLETED, e, core.EventContext{
		Frame: e.frameNumber,
		Stats: metrics.Frame,
	})
	e.frameNumber++
	return nil
}

// pollLayouts swaps in a reloaded layout graph. The frame graph refers to
// layouts by id, so it is reloaded too; on failure the current graphs stay.
func (e *Engine) pollLayouts() {
	if e.watcher == nil {
		return
	}
	select {
	case err := <-e.watcher.Errors():
		core.LogError("reloading layouts failed: %v", err)
		core.EventFire(core.EVENT_CODE_LAYOUTS_RELOAD_FAILED, e, core.EventContext{Name: e.cfg.Assets.LayoutsDir, Err: err})
	case g := <-e.watcher.Graphs():
		frame, err := framegraph.LoadFrameFile(e.cfg.Assets.FrameFile, g, e.device)
		if err != nil {
			core.LogError("frame does not load against the new layouts: %v", err)
			core.EventFire(core.EVENT_CODE_LAYOUTS_RELOAD_FAILED, e, core.EventContext{Name: e.cfg.Assets.LayoutsDir, Err: err})
			return
		}
		e.pipeline.SetLayoutGraph(g)
		e.frame = frame
		core.EventFire(core.EVENT_CODE_LAYOUTS_RELOADED, e, core.EventContext{Name: e.cfg.Assets.LayoutsDir})
	default:
	}
}

func (e *Engine) Pipeline() *pipeline.Pipeline {
	return e.pipeline
}

func (e *Engine) Frame() *framegraph.Frame {
	return e.frame
}

// FrameNumber is the number of frames prepared so far.
func (e *Engine) FrameNumber() uint64 {
	return e.frameNumber
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

func (e *Engine) Stop() {
	e.isRunning.Store(false)
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	e.isRunning.Store(false)

	var errs error
	if e.watcher != nil {
		if err := e.watcher.Close(); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
		e.watcher = nil
	}
	if e.gameInstance.FnShutdown != nil {
		if err := e.gameInstance.FnShutdown(); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
	}
	core.EventUnregister(core.EVENT_CODE_APPLICATION_QUIT, e)
	if err := core.EventShutdown(); err != nil {
		errs = errors.CombineErrors(errs, err)
	}
	e.currentStage = EngineStageUninitialized
	return errs
}

func (e *Engine) onEvent(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	switch code {
	case core.EVENT_CODE_APPLICATION_QUIT:
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.Stop()
		return true
	}
	return false
}

/*
anima-descset loads a layout directory and a frame file, then prepares the
descriptor sets of every pass for a number of frames on the headless
device.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spaghettifunk/anima-pipeline/engine"
	"github.com/spaghettifunk/anima-pipeline/engine/config"
	"github.com/spaghettifunk/anima-pipeline/engine/core"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer/vulkan"
	"github.com/spaghettifunk/anima-pipeline/testbed"
)

func main() {
	configPath := flag.String("config", "pipeline.toml", "path of the configuration file")
	frames := flag.Int64("frames", -1, "number of frames to prepare, 0 runs until interrupted (overrides the config)")
	watch := flag.Bool("watch", false, "reload layouts when their files change")
	logLevel := flag.String("log-level", "", "log level (overrides the config)")
	dump := flag.Bool("dump", false, "print the descriptor sets of the last frame")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *frames >= 0 {
		cfg.Pipeline.Frames = uint64(*frames)
	}
	if *watch {
		cfg.Assets.Watch = true
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	tb := testbed.NewTestGame(cfg)
	e, err := engine.New(tb.Game)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx := context.Background()
	if err := e.Initialize(ctx); err != nil {
		core.LogError("initialization failed: %v", err)
		_ = e.Shutdown()
		os.Exit(1)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	go func() {
		<-sigCh
		core.EventFire(core.EVENT_CODE_APPLICATION_QUIT, nil, core.EventContext{})
	}()

	runErr := e.Run(ctx)
	if runErr == nil && *dump {
		dumpDescriptorSets(e)
	}
	if err := e.Shutdown(); err != nil {
		core.LogError("shutdown: %v", err)
	}
	if runErr != nil {
		core.LogError("%+v", runErr)
		os.Exit(1)
	}
}

// loadConfig falls back to the defaults when the default configuration file
// does not exist.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) && path == "pipeline.toml" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func dumpDescriptorSets(e *engine.Engine) {
	sets := e.Pipeline().DescriptorSets()
	rg := e.Frame().RenderGraph
	lines := make([]string, 0, len(sets))
	for key, ds := range sets {
		lines = append(lines, fmt.Sprintf("%-24s %-10s set=%d %s", rg.Name(key.Node), key.Frequency, vulkan.SetIndex(key.Frequency), ds))
	}
	sort.Strings(lines)
	for _, l := range lines {
		fmt.Println(l)
	}
}

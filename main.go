package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/videoloop/cmd"
	"github.com/smazurov/videoloop/internal/api"
	"github.com/smazurov/videoloop/internal/config"
	"github.com/smazurov/videoloop/internal/devices"
	"github.com/smazurov/videoloop/internal/events"
	"github.com/smazurov/videoloop/internal/led"
	"github.com/smazurov/videoloop/internal/logging"
	"github.com/smazurov/videoloop/internal/metrics"
	"github.com/smazurov/videoloop/internal/pipeline"
	"github.com/smazurov/videoloop/internal/systemd"
	"github.com/smazurov/videoloop/internal/version"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"videoloop.toml"`

	// Device settings
	Source      string `help:"Capture device (path, node name or stable ID)" short:"s" default:"/dev/video0" toml:"devices.source" env:"DEVICES_SOURCE"`
	Sink        string `help:"Output device (path, node name or stable ID)" short:"o" default:"/dev/video20" toml:"devices.sink" env:"DEVICES_SINK"`
	WaitTimeout string `help:"How long to wait for missing device nodes (0 = fail at once)" default:"10s" toml:"devices.wait_timeout" env:"DEVICES_WAIT_TIMEOUT"`

	// Stream settings
	BufferCount int    `help:"Buffers to request per device" default:"4" toml:"stream.buffer_count" env:"STREAM_BUFFER_COUNT"`
	Transform   string `help:"Frame transform (mirror, passthrough)" default:"mirror" toml:"stream.transform" env:"STREAM_TRANSFORM"`

	// Server settings
	Listen     string `help:"Address of the status API, empty disables it" default:"" toml:"server.listen" env:"SERVER_LISTEN"`
	CORSOrigin string `help:"Origin allowed to call the status API" default:"" toml:"server.cors_origin" env:"SERVER_CORS_ORIGIN"`

	// Auth settings
	AuthUsername string `help:"Basic auth username, empty disables auth" default:"" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"" toml:"auth.password" env:"AUTH_PASSWORD"`

	// systemd settings
	SystemdNotify bool `help:"Send sd_notify readiness and watchdog messages" default:"true" toml:"systemd.notify" env:"SYSTEMD_NOTIFY"`

	// Status LED settings
	LEDEnabled bool   `help:"Show the pipeline state on a board LED" default:"false" toml:"led.enabled" env:"LED_ENABLED"`
	LEDName    string `help:"LED under /sys/class/leds, empty picks the board status LED" default:"" toml:"led.name" env:"LED_NAME"`

	// Logging settings
	LoggingLevel    string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat   string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingPipeline string `help:"Pipeline logging level" default:"info" toml:"logging.pipeline" env:"LOGGING_PIPELINE"`
	LoggingDevices  string `help:"Devices logging level" default:"info" toml:"logging.devices" env:"LOGGING_DEVICES"`
	LoggingAPI      string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		ctx, cancel := context.WithCancel(context.Background())
		stopped := make(chan struct{})
		var stopOnce sync.Once

		hooks.OnStart(func() {
			code := run(ctx, cli, opts)
			close(stopped)
			os.Exit(code)
		})

		hooks.OnStop(func() {
			stopOnce.Do(cancel)
			select {
			case <-stopped:
			case <-time.After(5 * time.Second):
				slog.Warn("Shutdown timed out")
			}
		})
	})

	cli.Root().Use = "videoloop"
	cli.Root().Short = "Pipe frames from a V4L2 capture device to a V4L2 output device"
	cli.Root().Version = version.String()

	cli.Root().AddCommand(cmd.CreateInfoCmd())
	cli.Root().AddCommand(cmd.CreateDevicesCmd())

	cli.Run()
}

// run wires the pipeline and its satellites and blocks until the pipeline
// stops. It returns the process exit status.
func run(ctx context.Context, cli humacli.CLI, opts *Options) int {
	configErr := config.LoadConfig(opts, cli.Root())

	logging.Initialize(logging.Config{
		Level:  opts.LoggingLevel,
		Format: opts.LoggingFormat,
		Modules: map[string]string{
			"pipeline": opts.LoggingPipeline,
			"devices":  opts.LoggingDevices,
			"api":      opts.LoggingAPI,
		},
	})
	logger := logging.GetLogger("main")
	if configErr != nil {
		logger.Error("Failed to load config", "config", opts.Config, "error", configErr)
		return 1
	}
	build := version.Get()
	logger.Info("Starting videoloop", "version", build.String(), "config", opts.Config)
	metrics.SetBuildInfo(build.Version, build.GitCommit)

	waitTimeout, err := time.ParseDuration(opts.WaitTimeout)
	if err != nil {
		logger.Error("Invalid devices.wait_timeout", "value", opts.WaitTimeout, "error", err)
		return 1
	}

	source, err := resolveDevice(ctx, logger, devices.RoleSource, opts.Source, waitTimeout)
	if err != nil {
		return exitStatus(ctx, logger, err)
	}
	sink, err := resolveDevice(ctx, logger, devices.RoleSink, opts.Sink, waitTimeout)
	if err != nil {
		return exitStatus(ctx, logger, err)
	}

	eventBus := events.New()

	p, err := pipeline.New(pipeline.Config{
		Source:      source,
		Sink:        sink,
		BufferCount: opts.BufferCount,
		Transform:   opts.Transform,
	}, pipeline.V4L2Opener{}, eventBus)
	if err != nil {
		logger.Error("Invalid pipeline configuration", "error", err)
		return 1
	}

	notifier := systemd.NewNotifier(opts.SystemdNotify)
	defer notifier.Attach(eventBus)()

	if opts.LEDEnabled {
		ledManager := led.NewManager(led.New(opts.LEDName, logging.GetLogger("led")), eventBus, logging.GetLogger("led"))
		ledManager.Start()
		defer ledManager.Stop()
	}

	var wg sync.WaitGroup
	defer wg.Wait()
	bgCtx, stopBackground := context.WithCancel(ctx)
	defer stopBackground()

	wg.Add(2)
	go func() {
		defer wg.Done()
		notifier.RunWatchdog(bgCtx, func() uint64 { return p.Status().FramesForwarded })
	}()
	go func() {
		defer wg.Done()
		watcher := devices.NewWatcher(source, sink, eventBus)
		if watchErr := watcher.Run(bgCtx); watchErr != nil && !errors.Is(watchErr, context.Canceled) {
			logger.Warn("Hotplug monitoring unavailable", "error", watchErr)
		}
	}()

	if stopWatch := watchConfig(bgCtx, logger, opts.Config, p); stopWatch != nil {
		defer stopWatch()
	}

	if opts.Listen != "" {
		server := api.NewServer(&api.Options{
			Pipeline:       p,
			EventBus:       eventBus,
			ListDevices:    devices.List,
			MetricsHandler: metrics.Handler(),
			AuthUsername:   opts.AuthUsername,
			AuthPassword:   opts.AuthPassword,
			CORSOrigin:     opts.CORSOrigin,
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if startErr := server.Start(opts.Listen); startErr != nil {
				logger.Error("Failed to start HTTP server", "error", startErr)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if stopErr := server.Stop(shutdownCtx); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}
		}()
	}

	return exitStatus(ctx, logger, p.Run(ctx))
}

// resolveDevice turns a configured device name into a node path, waiting
// for the node to appear when it is given as a path.
func resolveDevice(ctx context.Context, logger *slog.Logger, role, name string, timeout time.Duration) (string, error) {
	path, err := devices.ResolvePath(name)
	if err != nil {
		return "", pipeline.NewError(pipeline.ErrCodeDeviceOpen, name, "cannot resolve "+role+" device", err)
	}
	if err := devices.WaitFor(ctx, path, 0); err == nil {
		return path, nil
	}

	logger.Info("Waiting for device", "role", role, "device", path, "timeout", timeout)
	if err := devices.WaitFor(ctx, path, timeout); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", pipeline.NewError(pipeline.ErrCodeDeviceOpen, path, role+" device did not appear", err)
	}
	return path, nil
}

// watchConfig applies transform and log level changes from the config file
// while the pipeline runs. It returns nil when the file cannot be watched.
func watchConfig(ctx context.Context, logger *slog.Logger, path string, p *pipeline.Pipeline) func() {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		logger.Debug("Config file not present, live reload disabled", "config", path)
		return nil
	}

	watcher := config.NewConfigWatcher(path, config.LoadReloadable, logging.GetLogger("config"))
	watcher.OnReload(func(r config.Reloadable) {
		if r.Transform != "" {
			if err := p.SetTransform(r.Transform); err != nil {
				logger.Warn("Ignoring stream.transform from reloaded config", "error", err)
			}
		}
		for module, level := range r.Logging.Modules {
			if err := logging.SetModuleLevel(module, level); err != nil {
				logger.Warn("Ignoring log level from reloaded config", "module", module, "error", err)
			}
		}
	})
	if err := watcher.Start(ctx); err != nil {
		logger.Warn("Config watcher unavailable", "config", path, "error", err)
		return nil
	}
	return func() { _ = watcher.Stop() }
}

// exitStatus logs why the pipeline stopped and maps it to an exit status.
// Cancellation through a signal is a clean exit.
func exitStatus(ctx context.Context, logger *slog.Logger, err error) int {
	if err == nil || (ctx.Err() != nil && errors.Is(err, ctx.Err())) {
		logger.Info("Stopped")
		return 0
	}

	attrs := []any{"error", err, "code", pipeline.ErrorCode(err)}
	var mismatch *pipeline.FormatMismatchError
	if errors.As(err, &mismatch) {
		attrs = append(attrs, "source_format", mismatch.Source.String(), "sink_format", mismatch.Sink.String())
	}
	logger.Error("Exiting after pipeline failure", attrs...)
	return 1
}

// Package main provides the sdplay entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/osa030/sdplay/internal/app/notification"
	"github.com/osa030/sdplay/internal/app/playback"
	"github.com/osa030/sdplay/internal/app/session"
	"github.com/osa030/sdplay/internal/infra/config"
	"github.com/osa030/sdplay/internal/infra/logger"
	"github.com/osa030/sdplay/internal/infra/output"
	"github.com/osa030/sdplay/internal/infra/storage"
)

var (
	app        = kingpin.New("sdplay", "Stream raw PCM files from block storage to a PWM output")
	configPath = app.Flag("config", "Path to config file").Default("config/sdplay.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stderr)").String()

	playCmd  = app.Command("play", "Play a file to the end (default)").Default()
	playFile = playCmd.Arg("file", "File name on storage").Required().String()

	dirCmd = app.Command("dir", "List the files on storage")

	renderCmd  = app.Command("render", "Render a file to a WAV file")
	renderFile = renderCmd.Arg("file", "File name on storage").Required().String()
	renderOut  = renderCmd.Arg("out", "Output WAV path (default: output.wav_path)").String()
)

var errInterrupted = errors.New("interrupted")

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Initialize logger
	loggerConfig := logger.Config{Level: "info"}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	loggerConfig.File = *logfile
	closeLog, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer closeLog()

	// Load config
	zlog.Debug().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if err := run(cfg, command); err != nil {
		if errors.Is(err, errInterrupted) {
			zlog.Info().Msg("Interrupted")
			return
		}
		zlog.Error().Msgf("%v", err)
		closeLog()
		os.Exit(1)
	}
}

// run executes the selected command. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config, command string) error {
	mode, err := playback.ParseMode(cfg.Player.Rate, cfg.Player.Layout)
	if err != nil {
		return errors.Wrap(err, "invalid player config")
	}

	dev, err := storage.New(cfg.Storage)
	if err != nil {
		return errors.Wrap(err, "failed to create storage")
	}

	out, err := newOutput(cfg, command, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	player := playback.New(dev, out, out)
	player.SetChipSelect(cfg.Player.ChipSelect)
	if cfg.Player.BufferSize > 0 {
		player.SetWorkBuffer(make([]byte, cfg.Player.BufferSize))
	}
	if err := playback.Bind(player); err != nil {
		return err
	}
	defer playback.Unbind(player)

	if err := player.Initialize(mode); err != nil {
		return errors.Wrapf(err, "failed to initialize player (code %s)", playback.CodeOf(err))
	}
	defer func() {
		if err := player.Deinitialize(); err != nil {
			zlog.Error().Msgf("Failed to deinitialize player: %v", err)
		}
	}()

	sessionMgr := session.NewManager(cfg, player)
	defer sessionMgr.Close()

	if command == dirCmd.FullCommand() {
		names, err := sessionMgr.List()
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	}

	// A WAV device renders offline, for render or for play with output.type wav.
	if wav, ok := out.(*output.WAV); ok {
		path := cfg.Output.WAVPath
		file := *playFile
		if command == renderCmd.FullCommand() {
			path, file = *renderOut, *renderFile
		}
		path, err := cfg.RenderPath(path)
		if err != nil {
			return err
		}
		f, err := os.Create(path)
		if err != nil {
			return errors.Wrap(err, "failed to create output file")
		}
		defer f.Close()
		zlog.Info().Msgf("Rendering %s to %s", file, path)
		return supervise(func(ctx context.Context) error {
			return sessionMgr.Render(ctx, file, wav, f)
		})
	}

	sessionMgr.GetNotificationManager().Subscribe(consoleStream{})
	return supervise(func(ctx context.Context) error {
		return sessionMgr.Run(ctx, *playFile)
	})
}

// newOutput creates the output device for command. render always renders to
// WAV; dir never ticks.
func newOutput(cfg *config.Config, command string, mode playback.Mode) (output.Device, error) {
	mono := mode.Layout == playback.LayoutMono

	switch command {
	case dirCmd.FullCommand():
		return &output.Null{}, nil
	case renderCmd.FullCommand():
		wavCfg := *cfg
		wavCfg.Output.Type = "wav"
		cfg = &wavCfg
	}

	out, err := output.New(cfg, mono, playback.HandleTick)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create output")
	}
	return out, nil
}

// supervise runs fn until it returns or a shutdown signal arrives.
func supervise(fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		return fn(gctx)
	})

	g.Go(func() error {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			zlog.Info().Msgf("Received %s, stopping...", sig)
			return errInterrupted
		case <-gctx.Done():
			return nil
		}
	})

	return g.Wait()
}

// consoleStream prints session events.
type consoleStream struct{}

func (consoleStream) Send(ev *notification.Event) error {
	switch ev.Type {
	case notification.EventError:
		_, err := fmt.Printf("[%d] %s %s: code=0x%02x %s\n", ev.SequenceNo, ev.Type, ev.File, ev.Code, ev.Message)
		return err
	case notification.EventUnderrun:
		return nil
	default:
		_, err := fmt.Printf("[%d] %s %s\n", ev.SequenceNo, ev.Type, ev.File)
		return err
	}
}

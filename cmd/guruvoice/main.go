// Command guruvoice is the voice tutoring client: it reads tutor answers
// aloud, runs duplex live voice sessions, and asks the tutoring backend
// questions from the command line.
//
// Usage:
//
//	guruvoice [-config config.yaml] speak <text>
//	guruvoice [-config config.yaml] ask [-quiet] <question>
//	guruvoice [-config config.yaml] live
//
// Live mode reads raw PCM16 mono microphone audio at 16 kHz from stdin, for
// example:
//
//	arecord -f S16_LE -r 16000 -c 1 -t raw | guruvoice live
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eklavya-ai/guruvoice/internal/config"
	"github.com/eklavya-ai/guruvoice/internal/livesession"
	"github.com/eklavya-ai/guruvoice/internal/observe"
	"github.com/eklavya-ai/guruvoice/internal/playback"
	"github.com/eklavya-ai/guruvoice/internal/resilience"
	"github.com/eklavya-ai/guruvoice/internal/tutor"
	"github.com/eklavya-ai/guruvoice/pkg/audio"
	"github.com/eklavya-ai/guruvoice/pkg/audio/speaker"
	"github.com/eklavya-ai/guruvoice/pkg/provider/live"
	livegemini "github.com/eklavya-ai/guruvoice/pkg/provider/live/gemini"
	"github.com/eklavya-ai/guruvoice/pkg/provider/tts"
	ttsgemini "github.com/eklavya-ai/guruvoice/pkg/provider/tts/gemini"
	ttsopenai "github.com/eklavya-ai/guruvoice/pkg/provider/tts/openai"
)

const version = "0.1.0"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	quiet := flag.Bool("quiet", false, "ask mode: print the answer without reading it aloud")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		return 2
	}
	mode := flag.Arg(0)

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "guruvoice: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "guruvoice: %v\n", err)
		}
		return 1
	}

	slog.SetDefault(newLogger(cfg.Log.Level))

	// The global meter provider must be in place before any engine asks for
	// the default metrics instance.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownMetrics(flushCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	if cfg.Metrics.ListenAddr != "" {
		stopServer := startMetricsServer(cfg.Metrics.ListenAddr)
		defer stopServer()
	}

	slog.Info("guruvoice starting", "mode", mode, "config", *configPath, "log_level", cfg.Log.Level)

	switch mode {
	case "speak":
		text := strings.Join(flag.Args()[1:], " ")
		if strings.TrimSpace(text) == "" {
			fmt.Fprintln(os.Stderr, "guruvoice: speak requires text to read aloud")
			return 2
		}
		return runSpeak(ctx, cfg, text)
	case "ask":
		question := strings.Join(flag.Args()[1:], " ")
		if strings.TrimSpace(question) == "" {
			fmt.Fprintln(os.Stderr, "guruvoice: ask requires a question")
			return 2
		}
		return runAsk(ctx, cfg, question, *quiet)
	case "live":
		return runLive(ctx, cfg)
	default:
		fmt.Fprintf(os.Stderr, "guruvoice: unknown mode %q\n", mode)
		usage()
		return 2
	}
}

// ── Engine wiring ─────────────────────────────────────────────────────────────

// newSynthesisProvider builds one synthesis backend from a config entry.
func newSynthesisProvider(entry config.ProviderEntry) (tts.Provider, error) {
	switch entry.Name {
	case "gemini":
		var opts []ttsgemini.Option
		if entry.Model != "" {
			opts = append(opts, ttsgemini.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, ttsgemini.WithBaseURL(entry.BaseURL))
		}
		return ttsgemini.New(entry.APIKey, opts...)
	case "openai":
		var opts []ttsopenai.Option
		if entry.Model != "" {
			opts = append(opts, ttsopenai.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, ttsopenai.WithBaseURL(entry.BaseURL))
		}
		return ttsopenai.New(entry.APIKey, opts...)
	default:
		return nil, fmt.Errorf("unknown synthesis backend %q", entry.Name)
	}
}

// newSynthesizer builds the synthesis chain: the primary backend, wrapped in
// a fallback group when fallbacks are configured.
func newSynthesizer(cfg *config.Config) (tts.Provider, error) {
	primary, err := newSynthesisProvider(cfg.Synthesis.Primary)
	if err != nil {
		return nil, fmt.Errorf("synthesis primary: %w", err)
	}
	if len(cfg.Synthesis.Fallbacks) == 0 {
		return primary, nil
	}

	group := resilience.NewSynthesisFallback(primary, cfg.Synthesis.Primary.Name, resilience.FallbackConfig{})
	for _, entry := range cfg.Synthesis.Fallbacks {
		fb, err := newSynthesisProvider(entry)
		if err != nil {
			return nil, fmt.Errorf("synthesis fallback %q: %w", entry.Name, err)
		}
		group.AddFallback(entry.Name, fb)
	}
	return group, nil
}

// newSpeechEngine builds the playback engine on the real speaker sink.
func newSpeechEngine(cfg *config.Config) (*playback.Engine, error) {
	synth, err := newSynthesizer(cfg)
	if err != nil {
		return nil, err
	}
	opts := []playback.Option{
		playback.WithSpeed(cfg.PlaybackSpeed()),
		playback.WithPrefetch(cfg.PlaybackPrefetch()),
	}
	if cfg.Playback.Voice != "" {
		opts = append(opts, playback.WithVoice(tts.VoiceProfile{ID: cfg.Playback.Voice}))
	}
	if cfg.Playback.ChunkTimeoutSeconds > 0 {
		opts = append(opts, playback.WithChunkTimeout(time.Duration(cfg.Playback.ChunkTimeoutSeconds)*time.Second))
	}
	sinkFactory := func(rate int) (audio.Sink, error) { return speaker.Open(rate) }
	return playback.New(synth, sinkFactory, opts...), nil
}

// ── Modes ─────────────────────────────────────────────────────────────────────

func runSpeak(ctx context.Context, cfg *config.Config, text string) int {
	engine, err := newSpeechEngine(cfg)
	if err != nil {
		slog.Error("failed to build speech engine", "err", err)
		return 1
	}
	defer engine.Stop()

	if err := speakAndWait(ctx, engine, text); err != nil {
		slog.Error("speak failed", "err", err)
		return 1
	}
	return 0
}

func runAsk(ctx context.Context, cfg *config.Config, question string, quiet bool) int {
	client, err := newTutorClient(cfg)
	if err != nil {
		slog.Error("failed to build tutor client", "err", err)
		return 1
	}

	answer, err := client.Ask(ctx, question, nil, nil)
	if err != nil {
		slog.Error("ask failed", "err", err)
		return 1
	}

	fmt.Println(answer.Text)
	for _, c := range answer.Citations {
		fmt.Printf("  source: %s (%s)\n", c.Title, c.URI)
	}

	if quiet {
		return 0
	}
	engine, err := newSpeechEngine(cfg)
	if err != nil {
		slog.Error("failed to build speech engine", "err", err)
		return 1
	}
	defer engine.Stop()

	if err := speakAndWait(ctx, engine, answer.Text); err != nil {
		slog.Error("read-aloud failed", "err", err)
		return 1
	}
	return 0
}

func runLive(ctx context.Context, cfg *config.Config) int {
	// Each invocation runs a single mode, so no read-aloud utterance can be
	// in flight here. A host embedding both engines must Stop the playback
	// engine before starting a live session.
	var liveOpts []livegemini.Option
	if cfg.Live.Model != "" {
		liveOpts = append(liveOpts, livegemini.WithModel(cfg.Live.Model))
	}
	provider := livegemini.New(cfg.LiveAPIKey(), liveOpts...)

	sessionCfg := live.SessionConfig{
		Voice:        tts.VoiceProfile{ID: cfg.Live.Voice},
		Instructions: tutor.SystemInstruction(cfg.Tutor.GradeLevel),
	}
	engine := livesession.New(provider,
		func() (audio.CaptureSource, error) { return audio.NewReaderCapture(os.Stdin), nil },
		func(rate int) (audio.Sink, error) { return speaker.Open(rate) },
		livesession.WithConfig(sessionCfg),
		livesession.WithErrorHandler(func(err error) {
			slog.Warn("live session error", "err", err)
		}),
	)

	if err := engine.Start(ctx); err != nil {
		slog.Error("failed to start live session", "err", err)
		return 1
	}
	fmt.Fprintln(os.Stderr, "live session running — press Ctrl+C to end")

	<-ctx.Done()

	transcript, err := engine.Close()
	if err != nil {
		slog.Error("failed to close live session", "err", err)
		return 1
	}
	for _, turn := range transcript {
		fmt.Printf("%s: %s\n", turn.Role, turn.Content)
	}
	return 0
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// speakAndWait reads text aloud and blocks until playback finishes or ctx is
// cancelled.
func speakAndWait(ctx context.Context, engine *playback.Engine, text string) error {
	done := make(chan struct{})
	if err := engine.Speak(ctx, "cli", text, func() { close(done) }); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		engine.Stop()
		return nil
	}
}

func newTutorClient(cfg *config.Config) (*tutor.Client, error) {
	var opts []tutor.Option
	if cfg.Tutor.Model != "" {
		opts = append(opts, tutor.WithModel(cfg.Tutor.Model))
	}
	if cfg.Tutor.ImageModel != "" {
		opts = append(opts, tutor.WithImageModel(cfg.Tutor.ImageModel))
	}
	if cfg.Tutor.GradeLevel != "" {
		opts = append(opts, tutor.WithGradeLevel(cfg.Tutor.GradeLevel))
	}
	return tutor.New(cfg.TutorAPIKey(), opts...)
}

// startMetricsServer exposes the Prometheus scrape endpoint. The returned
// function shuts the server down.
func startMetricsServer(addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		slog.Info("metrics endpoint listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Warn("metrics server error", "err", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("metrics server shutdown error", "err", err)
		}
	}
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func usage() {
	fmt.Fprintf(os.Stderr, `guruvoice — voice tutoring client

Usage:
  guruvoice [-config config.yaml] speak <text>      read text aloud
  guruvoice [-config config.yaml] ask [-quiet] <question>
                                                    ask the tutor (and read the answer)
  guruvoice [-config config.yaml] live              duplex voice session (mic on stdin)

Flags:
`)
	flag.PrintDefaults()
}

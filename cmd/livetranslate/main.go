package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/voceware/livetranslate/internal/config"
	"github.com/voceware/livetranslate/internal/dotenv"
	"github.com/voceware/livetranslate/internal/metrics"
	"github.com/voceware/livetranslate/pkg/core/audio"
	"github.com/voceware/livetranslate/pkg/core/capture"
	"github.com/voceware/livetranslate/pkg/core/display"
	"github.com/voceware/livetranslate/pkg/core/duplex"
	"github.com/voceware/livetranslate/pkg/core/plan"
	"github.com/voceware/livetranslate/pkg/core/playback"
	"github.com/voceware/livetranslate/pkg/core/recognize"
	"github.com/voceware/livetranslate/pkg/core/session"
	"github.com/voceware/livetranslate/pkg/core/transcript"
	"github.com/voceware/livetranslate/pkg/core/translate"
)

type options struct {
	configPath  string
	source      string
	device      string
	inputLang   string
	outputLang  string
	listDevices bool
	dumpCapture string
	metricsAddr string
	noSpeaker   bool
}

func main() {
	os.Exit(runMain())
}

func runMain() int {
	if err := dotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "load .env:", err)
	}

	var opt options
	flag.StringVar(&opt.configPath, "config", "", "Path to YAML config file (optional)")
	flag.StringVar(&opt.source, "source", "mic", "Audio source: mic or system")
	flag.StringVar(&opt.device, "device", "default", "Microphone device id or name, or ask to choose interactively (see -list-devices)")
	flag.StringVar(&opt.inputLang, "in", "auto", "Input language code, or auto")
	flag.StringVar(&opt.outputLang, "out", "none", "Output language code, or none to disable translation")
	flag.BoolVar(&opt.listDevices, "list-devices", false, "List capture devices and exit")
	flag.StringVar(&opt.dumpCapture, "dump-capture", "", "If set, also write captured audio to this WAV file")
	flag.StringVar(&opt.metricsAddr, "metrics-addr", "", "Serve /metrics on this address (overrides config)")
	flag.BoolVar(&opt.noSpeaker, "no-speaker", false, "Do not spawn ffplay; discard synthesized audio")
	flag.Parse()

	cfg := config.Default()
	if opt.configPath != "" {
		loaded, err := config.Load(opt.configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "config:", err)
			return 2
		}
		cfg = loaded
	}

	log := newLogger(cfg.Logging)
	m := metrics.New()

	pipeline, err := capture.New(log, m)
	if err != nil {
		log.Error("audio backend init failed", "error", err)
		return 1
	}
	defer pipeline.Close()

	if opt.listDevices {
		return listDevices(pipeline)
	}

	var src plan.Source
	switch opt.source {
	case "mic":
		device := opt.device
		if device == "ask" {
			chosen, err := chooseDevice(pipeline)
			if err != nil {
				fmt.Fprintln(os.Stderr, "device selection:", err)
				return 2
			}
			device = chosen
		}
		src = plan.Microphone(device)
	case "system":
		src = plan.SystemAudio()
	default:
		fmt.Fprintln(os.Stderr, "-source must be mic or system")
		return 2
	}
	langs := plan.LanguagePair{Input: opt.inputLang, Output: opt.outputLang}

	apiKey := cfg.Cloud.APIKey
	if apiKey == "" {
		apiKey = dotenv.Lookup("GEMINI_API_KEY", "GOOGLE_API_KEY")
	}
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "no API key: set GEMINI_API_KEY or cloud.api_key in the config")
		return 2
	}

	if opt.dumpCapture != "" {
		dump, err := capture.NewDump(opt.dumpCapture)
		if err != nil {
			log.Error("capture dump unavailable", "error", err)
			return 1
		}
		pipeline.SetDump(dump)
	}

	metricsAddr := ""
	if cfg.Metrics.Enabled {
		metricsAddr = cfg.Metrics.Address
	}
	if opt.metricsAddr != "" {
		metricsAddr = opt.metricsAddr
	}
	if metricsAddr != "" {
		go serveMetrics(metricsAddr, m, log)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	translator, err := translate.NewGemini(ctx, apiKey, cfg.Cloud.TranslationModel, log)
	if err != nil {
		log.Error("translation client init failed", "error", err)
		return 1
	}

	var recognizer session.Recognition
	if cfg.Recognizer.Endpoint != "" {
		client := recognize.NewStreamingClient(recognize.StreamingConfig{
			Endpoint: cfg.Recognizer.Endpoint,
			APIKey:   cfg.Recognizer.APIKey,
			Model:    cfg.Recognizer.Model,
			Language: langs.Input,
		})
		recognizer = recognize.NewAdapter(client, log, m)
	}

	var sink playback.Sink
	if opt.noSpeaker {
		sink = discardSink{}
	} else {
		sink = playback.NewSpeaker(audio.PlaybackConfig(), "", log)
	}
	player := playback.NewScheduler(playback.NewMonotonicClock(), sink, audio.PlaybackConfig(), log, m)

	board := transcript.NewBoard()
	deps := session.Deps{
		Capture:    pipeline,
		Recognizer: recognizer,
		Cloud:      duplex.NewManager(duplex.Dial, log, m),
		Translator: translator,
		Player:     player,
		Board:      board,
		Sink: display.Multi{
			display.NewConsole(os.Stdout),
			display.NewBoardSink(board),
		},
		Logger:  log,
		Metrics: m,
		CloudConfig: duplex.Config{
			Endpoint: cfg.Cloud.Endpoint,
			APIKey:   apiKey,
			Model:    cfg.Cloud.Model,
			Voice:    cfg.Cloud.Voice,
		},
	}

	s, err := session.Start(ctx, src, langs, deps)
	if err != nil {
		log.Error("session start failed", "error", err)
		return 1
	}

	<-ctx.Done()
	s.Stop()
	return 0
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func listDevices(pipeline *capture.Capture) int {
	devices, err := pipeline.Devices()
	if err != nil {
		fmt.Fprintln(os.Stderr, "list devices:", err)
		return 1
	}
	for _, d := range devices {
		marker := " "
		if d.IsDefault {
			marker = "*"
		}
		fmt.Printf("%s %s  %s\n", marker, d.ID, strings.TrimSpace(d.Name))
	}
	return 0
}

// chooseDevice prompts for a microphone. An empty answer or closed stdin
// cancels selection.
func chooseDevice(pipeline *capture.Capture) (string, error) {
	devices, err := pipeline.Devices()
	if err != nil {
		return "", err
	}
	for i, d := range devices {
		fmt.Printf("%2d) %s\n", i+1, strings.TrimSpace(d.Name))
	}
	fmt.Print("device number (empty to cancel): ")

	var answer string
	if _, err := fmt.Scanln(&answer); err != nil {
		return "", capture.ErrSelectionCancelled
	}
	n, err := strconv.Atoi(strings.TrimSpace(answer))
	if err != nil || n < 1 || n > len(devices) {
		return "", capture.ErrSelectionCancelled
	}
	return devices[n-1].ID, nil
}

func serveMetrics(addr string, m *metrics.Metrics, log *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	log.Info("metrics listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Warn("metrics server stopped", "error", err)
	}
}

// discardSink drops synthesized audio while still letting the scheduler
// keep its cursor math.
type discardSink struct{}

func (discardSink) Play(startAt float64, samples []float32, sampleRate int) error { return nil }

func (discardSink) Close() error { return nil }

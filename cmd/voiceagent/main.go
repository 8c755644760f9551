// voiceagent: conversational voice assistant backend.
// Speech in, speech out, with per-session conversation memory.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/teslashibe/go-voiceagent/internal/config"
	"github.com/teslashibe/go-voiceagent/internal/log"
	"github.com/teslashibe/go-voiceagent/pkg/hub"
	"github.com/teslashibe/go-voiceagent/pkg/metrics"
	"github.com/teslashibe/go-voiceagent/pkg/pipeline"
	"github.com/teslashibe/go-voiceagent/pkg/stt"
	"github.com/teslashibe/go-voiceagent/pkg/web"
)

var (
	envFile  string
	logLevel string

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "voiceagent",
		Short:         "Voice query pipeline: transcribe, reply, speak",
		Version:       web.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "dotenv file to seed configuration from")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL")

	rootCmd.AddCommand(serveCmd(), askCmd(), healthCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("✗ "+err.Error()))
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	log.Init(cfg.LogLevel)
	return cfg, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := log.Component("main")

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := os.MkdirAll(cfg.UploadFolder, 0o755); err != nil {
				return fmt.Errorf("create upload folder: %w", err)
			}

			m := metrics.New(prometheus.DefaultRegisterer)
			events := hub.New(log.L())
			go events.Run(ctx)

			svc := buildServices(ctx, cfg, log.L())
			orch := svc.orchestrator(log.L(),
				pipeline.WithObserver(m),
				pipeline.WithObserver(events),
			)

			srv := web.NewServer(orch, svc.transcriber, svc.synthesizer,
				web.WithDebug(cfg.Debug),
				web.WithUploadFolder(cfg.UploadFolder),
				web.WithBodyLimit(cfg.MaxContentLength),
				web.WithMissingKeys(cfg.MissingKeys),
				web.WithEvents(events),
				web.WithMetrics(m, prometheus.DefaultGatherer),
				web.WithLogger(log.L()),
			)

			if !cfg.ProductionReady() {
				logger.Warn("running with missing credentials", "missing", strings.Join(cfg.MissingKeys(), ","))
			}
			logger.Info("starting voiceagent",
				"version", web.Version,
				"stt", svc.transcriber.Name(),
				"llm", svc.responder.Name(),
				"tts", svc.synthesizer.Name(),
			)

			errc := make(chan error, 1)
			go func() { errc <- srv.Listen(cfg.Addr()) }()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func askCmd() *cobra.Command {
	var (
		text      string
		audioPath string
		sessionID string
		voiceID   string
		speed     int
		pitch     int
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "ask",
		Short: "Run one query through the pipeline and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (text == "") == (audioPath == "") {
				return errors.New("exactly one of --text or --audio is required")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			svc := buildServices(ctx, cfg, log.L())
			orch := svc.orchestrator(log.L())

			req := pipeline.Request{Text: text, SessionID: sessionID, VoiceID: voiceID, Speed: speed}
			if cmd.Flags().Changed("pitch") {
				req.Pitch = &pitch
			}
			if audioPath != "" {
				data, err := os.ReadFile(audioPath)
				if err != nil {
					return fmt.Errorf("read audio: %w", err)
				}
				req.Audio = &stt.Audio{Filename: filepath.Base(audioPath), Data: data}
			}

			resp := orch.Run(ctx, req)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}
			printResponse(cmd, resp)
			if !resp.Success {
				return fmt.Errorf("%s: %s", resp.ErrorKind, resp.Error)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "text query")
	cmd.Flags().StringVar(&audioPath, "audio", "", "path to an audio file")
	cmd.Flags().StringVar(&sessionID, "session", "", "continue an existing session")
	cmd.Flags().StringVar(&voiceID, "voice", "", "voice id for synthesis")
	cmd.Flags().IntVar(&speed, "speed", 0, "speaking rate, 50-200 (default from config)")
	cmd.Flags().IntVar(&pitch, "pitch", 0, "voice pitch, 0-100 (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw response")
	return cmd
}

func printResponse(cmd *cobra.Command, resp pipeline.Response) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render("voiceagent"))
	fmt.Fprintf(out, "  Session: %s\n", dimStyle.Render(resp.SessionID))
	if resp.Transcription != "" {
		fmt.Fprintf(out, "  Heard:   %s\n", resp.Transcription)
	}
	if !resp.Success {
		fmt.Fprintln(out, errorStyle.Render("  ✗ "+resp.Error))
		return
	}
	fmt.Fprintf(out, "  Reply:   %s\n", resp.AssistantText)
	switch {
	case resp.AudioURL != "":
		fmt.Fprintf(out, "  Audio:   %s\n", log.Clip(resp.AudioURL, 120))
	case resp.EmergencyFallback != "":
		fmt.Fprintln(out, warnStyle.Render("  Audio unavailable, text fallback attached"))
	}
	if resp.FallbackUsed {
		fmt.Fprintln(out, warnStyle.Render("  ⚠ fallback used"))
	}
	fmt.Fprintln(out, dimStyle.Render("  "+resp.Timings.FormatLatency()))
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Report credential and capability status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			svc := buildServices(cmd.Context(), cfg, log.Discard())
			out := cmd.OutOrStdout()

			status := successStyle.Render("healthy")
			if !cfg.ProductionReady() {
				status = warnStyle.Render("degraded")
			}
			fmt.Fprintf(out, "%s %s\n\n", titleStyle.Render("voiceagent"), status)

			caps := map[string]bool{
				"stt (" + svc.transcriber.Name() + ")": svc.transcriber.Available(),
				"llm (" + svc.responder.Name() + ")":   svc.responder.Available(),
				"tts (" + svc.synthesizer.Name() + ")": svc.synthesizer.Available(),
			}
			printChecks(out, caps)
			fmt.Fprintln(out)
			printChecks(out, cfg.APIKeyStatus())
			return nil
		},
	}
}

func printChecks(out io.Writer, checks map[string]bool) {
	names := make([]string, 0, len(checks))
	for k := range checks {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		mark := successStyle.Render("✓")
		if !checks[k] {
			mark = errorStyle.Render("✗")
		}
		fmt.Fprintf(out, "  %s %s\n", mark, k)
	}
}

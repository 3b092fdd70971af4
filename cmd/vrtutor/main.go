package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"vrtutor/internal/config"
	"vrtutor/internal/conversation"
	"vrtutor/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var (
		cfgPath      string
		templatePath string
		useTUI       bool
		params       = paramFlag{}
	)
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/vrtutor/config.yaml if not provided)")
	flag.StringVar(&templatePath, "template", "", "Path to the chat template (overrides the config file)")
	flag.Var(params, "param", "Template parameter as key=value; may be repeated")
	flag.BoolVar(&useTUI, "tui", false, "Run the interactive chat screen instead of line mode")
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg.ApplyEnv()
	if templatePath != "" {
		cfg.Template = templatePath
	}

	logger := newLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	embedder, completer, err := newBackends(cfg.Backend)
	if err != nil {
		logger.Error("backend init failed", "type", cfg.Backend.Type, "error", err)
		os.Exit(1)
	}

	conv, err := conversation.NewFromFile(ctx, cfg.Template, mergeParams(cfg.Params, params), embedder, completer,
		conversation.WithLogger(logger))
	if err != nil {
		logger.Error("failed to start conversation", "template", cfg.Template, "error", err)
		os.Exit(1)
	}

	if useTUI {
		header := fmt.Sprintf("%s | %d knowledge entries", conv.ModelName(), conv.StoreSize())
		if err := runTUI(ctx, conv, header); err != nil {
			logger.Error("tui failed", "error", err)
			os.Exit(1)
		}
	} else {
		runLines(ctx, conv, os.Stdin, os.Stdout, logger)
	}

	if err := conversation.WriteTranscript(os.Stdout, conv.Transcript()); err != nil {
		logger.Error("write chat history", "error", err)
		os.Exit(1)
	}
}

// runTUI runs the chat screen. A turn still in flight when the screen quits
// is cancelled and waited for, so the transcript is settled on return.
func runTUI(ctx context.Context, conv tui.ChatPort, header string, opts ...tea.ProgramOption) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	m := tui.New(ctx, conv, header)
	_, err := tea.NewProgram(m, append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)...).Run()
	cancel()
	m.Wait()
	return err
}

type turner interface {
	Turn(ctx context.Context, input string) (string, error)
}

// runLines answers one line of r per turn until it reads the exit word, hits
// EOF or ctx is cancelled.
func runLines(ctx context.Context, conv turner, r io.Reader, w io.Writer, logger *slog.Logger) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for ctx.Err() == nil && scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == tui.ExitWord {
			return
		}
		if line == "" {
			continue
		}
		reply, err := conv.Turn(ctx, line)
		if err != nil {
			logger.Error("turn failed", "error", err)
			continue
		}
		fmt.Fprintf(w, "Model's response: %s\n", reply)
	}
	if err := scanner.Err(); err != nil {
		logger.Error("read input", "error", err)
	}
}

// Command sommelier is an interactive terminal front-end for the literary
// sommelier: a mood questionnaire, book recommendations with a generated
// mood image, narrated replies and push-to-talk voice input.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joho/godotenv"

	"github.com/AlxManAi/literary-sommelier/internal/config"
	"github.com/AlxManAi/literary-sommelier/pkg/audio"
	"github.com/AlxManAi/literary-sommelier/pkg/gemini"
	"github.com/AlxManAi/literary-sommelier/pkg/player"
	"github.com/AlxManAi/literary-sommelier/pkg/recorder"
	"github.com/AlxManAi/literary-sommelier/pkg/sommelier"
)

func main() {
	_ = godotenv.Load()

	verbose := flag.Bool("v", false, "enable debug logging")
	model := flag.String("model", "", "override the text model")
	timeout := flag.Duration("timeout", 0, "per-turn timeout (e.g. 90s)")
	mute := flag.Bool("mute", false, "start with narration muted")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if *model != "" {
		cfg.TextModel = *model
	}
	if *timeout > 0 {
		cfg.TurnTimeout = *timeout
	}
	if *mute {
		cfg.Muted = true
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := gemini.New(cfg.APIKey,
		gemini.WithBaseURL(cfg.BaseURL),
		gemini.WithLiveURL(cfg.LiveURL),
		gemini.WithTextModel(cfg.TextModel),
		gemini.WithImageModel(cfg.ImageModel),
		gemini.WithTTSModel(cfg.TTSModel),
		gemini.WithLiveModel(cfg.LiveModel),
		gemini.WithVoice(cfg.Voice),
		gemini.WithLogger(logger),
	)

	orchOpts := []sommelier.OrchestratorOption{
		sommelier.WithLogger(logger),
		sommelier.WithMaxImageBytes(cfg.MaxImageBytes),
	}
	spk, err := player.New()
	if err != nil {
		logger.Warn("audio output unavailable, narration disabled", "error", err)
	} else {
		defer spk.Close()
		orchOpts = append(orchOpts, sommelier.WithSpeaker(spk))
	}

	orch := sommelier.NewOrchestrator(client, orchOpts...)
	if cfg.Muted {
		orch.ToggleMute()
	}

	ui := &console{out: os.Stdout}

	runTurn := func(text, imageMIME string, imageData []byte) {
		turnCtx, cancel := context.WithTimeout(ctx, cfg.TurnTimeout)
		defer cancel()
		orch.HandleUserInput(turnCtx, text, imageMIME, imageData)
		ui.flush(orch.Snapshot())
	}

	rec := recorder.New(
		func(ctx context.Context) (recorder.Channel, error) {
			return client.ConnectLive(ctx)
		},
		recorder.NewMalgoMicrophone(),
		recorder.OnPartial(func(text string) {
			ui.partial(text)
		}),
		recorder.OnSubmit(func(text string) {
			ui.endPartial()
			go runTurn(text, "", nil)
		}),
		recorder.OnError(func(err error) {
			ui.endPartial()
			orch.SetRecording(false)
			orch.AddBotMessage(ctx, sommelier.ApologyVoice)
			ui.flush(orch.Snapshot())
		}),
		recorder.WithRecorderLogger(logger),
	)
	defer rec.Stop()

	fmt.Println("Литературный Сомелье. Введите сообщение, или команду:")
	fmt.Println("  /voice — включить/выключить запись голоса")
	fmt.Println("  /image <путь> [текст] — отправить изображение")
	fmt.Println("  /mute /reset /history /exit")
	ui.flush(orch.Snapshot())

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			fmt.Println()
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "/exit" || line == "/quit":
			fmt.Println("До встречи!")
			return nil

		case line == "/reset":
			// Abort, not Stop: a half-spoken utterance must not be
			// submitted into the fresh session.
			rec.Abort()
			if spk != nil {
				spk.Stop()
			}
			orch.Reset()
			ui.reset()
			ui.flush(orch.Snapshot())

		case line == "/history":
			snap := orch.Snapshot()
			ui.replay(snap)
			if len(snap.Recommendations) > 0 {
				fmt.Println("Рекомендации:")
				for i, rec := range snap.Recommendations {
					fmt.Printf("  %d. %s — %s\n", i+1, rec.Title, rec.Author)
				}
			}

		case line == "/mute":
			if orch.ToggleMute() {
				fmt.Println("Озвучка выключена.")
			} else {
				fmt.Println("Озвучка включена.")
			}

		case line == "/voice":
			active, err := rec.Toggle(ctx)
			orch.SetRecording(active)
			if err != nil {
				if errors.Is(err, recorder.ErrMicrophone) {
					orch.AddBotMessage(ctx, sommelier.ApologyMicrophone)
				} else {
					orch.AddBotMessage(ctx, sommelier.ApologyVoice)
				}
				ui.flush(orch.Snapshot())
				continue
			}
			if active {
				fmt.Println("Запись включена, говорите. Повторите /voice чтобы остановить.")
			} else {
				fmt.Println("Запись остановлена.")
			}

		case strings.HasPrefix(line, "/image"):
			rest := strings.TrimSpace(strings.TrimPrefix(line, "/image"))
			if rest == "" {
				fmt.Println("Использование: /image <путь> [текст]")
				continue
			}
			path, caption := splitPathAndCaption(rest)
			data, err := os.ReadFile(path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "не удалось прочитать файл: %v\n", err)
				continue
			}
			mimeType := mime.TypeByExtension(filepath.Ext(path))
			if mimeType == "" {
				mimeType = "image/jpeg"
			}
			runTurn(caption, mimeType, data)

		default:
			runTurn(line, "", nil)
		}
	}
}

// splitPathAndCaption separates "/image <path> [caption]" arguments. The
// path may be quoted to allow spaces.
func splitPathAndCaption(rest string) (path, caption string) {
	if strings.HasPrefix(rest, `"`) {
		if end := strings.Index(rest[1:], `"`); end >= 0 {
			return rest[1 : end+1], strings.TrimSpace(rest[end+2:])
		}
	}
	if i := strings.IndexByte(rest, ' '); i >= 0 {
		return rest[:i], strings.TrimSpace(rest[i+1:])
	}
	return rest, ""
}

// console renders transcript updates. It remembers the last printed message
// ID so concurrent turns never reprint or interleave history.
type console struct {
	mu        sync.Mutex
	out       io.Writer
	lastID    int64
	inPartial bool
}

// flush prints every message newer than the last one shown.
func (c *console) flush(snap sommelier.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range snap.Messages {
		m := &snap.Messages[i]
		if m.ID <= c.lastID {
			continue
		}
		c.lastID = m.ID
		c.print(m)
	}
}

// replay reprints the whole transcript.
func (c *console) replay(snap sommelier.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range snap.Messages {
		c.print(&snap.Messages[i])
	}
}

func (c *console) reset() {
	c.mu.Lock()
	c.lastID = 0
	c.mu.Unlock()
}

// partial redraws the in-progress voice transcript on one line.
func (c *console) partial(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inPartial = true
	fmt.Fprintf(c.out, "\r\033[K… %s", text)
}

func (c *console) endPartial() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inPartial {
		fmt.Fprintln(c.out)
		c.inPartial = false
	}
}

func (c *console) print(m *sommelier.Message) {
	speaker := "Сомелье"
	if m.Sender == sommelier.SenderUser {
		speaker = "Вы"
	}
	if m.Text != "" {
		fmt.Fprintf(c.out, "%s: %s\n", speaker, m.Text)
	}
	if m.HasImage() && m.Sender == sommelier.SenderBot {
		if path, err := saveImage(m); err == nil {
			fmt.Fprintf(c.out, "%s: [изображение: %s]\n", speaker, path)
		} else {
			fmt.Fprintf(c.out, "%s: [изображение, %d байт]\n", speaker, len(m.ImageData))
		}
	}
	if m.Sender == sommelier.SenderBot && len(m.Audio) > 0 {
		if path, err := saveNarration(m); err == nil {
			fmt.Fprintf(c.out, "    [озвучка: %s]\n", path)
		}
	}
}

// saveImage writes a bot image to the temp dir so the user can open it.
func saveImage(m *sommelier.Message) (string, error) {
	ext := ".png"
	if exts, err := mime.ExtensionsByType(m.ImageMIME); err == nil && len(exts) > 0 {
		ext = exts[0]
	}
	path := filepath.Join(os.TempDir(), fmt.Sprintf("sommelier-%d-%d%s", os.Getpid(), m.ID, ext))
	if err := os.WriteFile(path, m.ImageData, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// saveNarration wraps a narration clip as WAV in the temp dir so any audio
// player can open it.
func saveNarration(m *sommelier.Message) (string, error) {
	path := filepath.Join(os.TempDir(), fmt.Sprintf("sommelier-%d-%d.wav", os.Getpid(), m.ID))
	if err := os.WriteFile(path, audio.PCMToWAVDefault(m.Audio), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

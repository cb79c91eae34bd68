package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/term"

	"github.com/kadirpekel/memchat/pkg/chat"
)

// MemoryFlags are the per-request memory overrides shared by ask and chat.
type MemoryFlags struct {
	Provider    string `short:"p" help:"Provider: gemini, ollama or local (default from config)."`
	Memory      string `short:"m" help:"Memory strategy: rolling, window or none (default from config)."`
	MaxMessages *int   `name:"max-messages" help:"Rolling: messages tolerated before summarizing."`
	KeepLast    *int   `name:"keep-last" help:"Rolling: messages kept after summarizing."`
	WindowSize  *int   `name:"window-size" help:"Window: messages kept."`
}

func (f MemoryFlags) request(prompt, sessionID string) chat.Request {
	return chat.Request{
		Prompt:      prompt,
		Provider:    f.Provider,
		SessionID:   sessionID,
		Memory:      f.Memory,
		MaxMessages: f.MaxMessages,
		KeepLast:    f.KeepLast,
		WindowSize:  f.WindowSize,
	}
}

// AskCmd asks one question and prints the reply.
type AskCmd struct {
	Prompt  string `arg:"" help:"The question."`
	Session string `short:"s" help:"Session id. Without one the question is stateless."`

	MemoryFlags `embed:""`
}

func (c *AskCmd) Run(cli *CLI, ctx context.Context) error {
	if strings.TrimSpace(c.Prompt) == "" {
		return errors.New("prompt is required")
	}

	cfg, loader, err := cli.loadConfig(ctx)
	if err != nil {
		return err
	}
	defer loader.Close()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeApp(a)

	res, err := a.svc.Ask(ctx, c.request(c.Prompt, c.Session))
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, res.Reply)
	return nil
}

// ChatCmd runs an interactive conversation on one session.
type ChatCmd struct {
	Session string `short:"s" help:"Session id (default: a new random id)."`

	MemoryFlags `embed:""`
}

func (c *ChatCmd) Run(cli *CLI, ctx context.Context) error {
	cfg, loader, err := cli.loadConfig(ctx)
	if err != nil {
		return err
	}
	defer loader.Close()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeApp(a)

	sessionID := c.Session
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	r := &repl{
		svc:         a.svc,
		flags:       c.MemoryFlags,
		sessionID:   sessionID,
		in:          os.Stdin,
		out:         os.Stdout,
		interactive: term.IsTerminal(int(os.Stdin.Fd())),
	}
	return r.run(ctx)
}

// repl reads one question per line. Blank lines are skipped; /reset
// forgets the session and /exit (or EOF) ends the loop.
type repl struct {
	svc         *chat.Service
	flags       MemoryFlags
	sessionID   string
	in          io.Reader
	out         io.Writer
	interactive bool
}

func (r *repl) run(ctx context.Context) error {
	if r.interactive {
		fmt.Fprintf(r.out, "Session %s. Type /exit to quit, /reset to forget.\n", r.sessionID)
	}

	scanner := bufio.NewScanner(r.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for {
		if r.interactive {
			fmt.Fprint(r.out, "> ")
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/reset":
			if err := r.svc.Purge(ctx, r.sessionID); err != nil {
				return err
			}
			if r.interactive {
				fmt.Fprintln(r.out, "(session cleared)")
			}
			continue
		}

		res, err := r.svc.Ask(ctx, r.flags.request(line, r.sessionID))
		if err != nil {
			if chat.IsValidation(err) {
				return err
			}
			fmt.Fprintf(r.out, "error: %v\n", err)
			continue
		}
		fmt.Fprintln(r.out, res.Reply)
	}
}

func closeApp(a *app) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Close(ctx); err != nil {
		slog.Warn("Shutdown finished with errors", "error", err)
	}
}

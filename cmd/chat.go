package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/chatblock-ai/chatblock/internal/session"
)

var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	infoStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// runChat starts the interactive chat (REPL) mode.
func runChat() error {
	cfg := initConfig()
	logger := newLogger(cfg.Log)

	p, err := buildProvider(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if cfg.Model == "" {
		cfg.Model = p.DefaultModel()
	}

	sess, err := buildSession(cfg, p, logger)
	if err != nil {
		return err
	}

	styled := term.IsTerminal(int(os.Stdout.Fd()))
	prompt := "> "
	if styled {
		prompt = promptStyle.Render(">") + " "
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	fmt.Printf("chatblock %s — %s/%s. /reset clears history, /quit exits.\n",
		displayVersion(), p.Name(), cfg.Model)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	for {
		fmt.Print("\n" + prompt)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return err
			}
			return nil // EOF
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "/quit", "/exit":
			return nil
		case "/reset":
			sess.Reset()
			fmt.Println(style(infoStyle, styled, "history cleared"))
			continue
		case "/tokens":
			fmt.Println(style(infoStyle, styled, fmt.Sprintf(
				"history: %d tokens, budget: %d", sess.HistoryTokens(), sess.Budget().HistoryLimit())))
			continue
		}

		reply, err := sess.Ask(ctx, line)
		if err != nil {
			fmt.Println(style(errorStyle, styled, "error: "+err.Error()))
			continue
		}
		if err := render(reply, styled); err != nil {
			fmt.Println(style(errorStyle, styled, "error: "+err.Error()))
		}
	}
}

// render prints a normalized reply: streamed fragments incrementally,
// complete and degraded answers as a block.
func render(reply session.Reply, styled bool) error {
	fmt.Println()
	if reply.Fragments == nil {
		fmt.Println(reply.Text)
		return nil
	}
	for f := range reply.Fragments {
		if f.Err != nil {
			fmt.Println()
			return f.Err
		}
		fmt.Print(f.Text)
	}
	fmt.Println()
	return nil
}

func style(s lipgloss.Style, styled bool, text string) string {
	if !styled {
		return text
	}
	return s.Render(text)
}

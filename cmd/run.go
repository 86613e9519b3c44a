package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var prompt string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Ask a single question non-interactively",
		Example: `  chatblock run -P "summarize the plot of Moby-Dick in one sentence"
  chatblock run --prompt "translate 'good morning' to French" --no-stream`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if prompt == "" {
				return fmt.Errorf("--prompt / -P is required")
			}
			return runOnce(prompt)
		},
	}

	cmd.Flags().StringVarP(&prompt, "prompt", "P", "", "the prompt to send")
	cmd.MarkFlagRequired("prompt")

	return cmd
}

// runOnce sends a single prompt and exits.
func runOnce(prompt string) error {
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	reply, err := sess.Ask(ctx, prompt)
	if err != nil {
		return err
	}
	return render(reply, false)
}

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/petasbytes/toolbridge/internal/client"
	"github.com/petasbytes/toolbridge/internal/config"
	"github.com/petasbytes/toolbridge/internal/provider"
	"github.com/petasbytes/toolbridge/internal/runner"
	"github.com/petasbytes/toolbridge/memory"
	"github.com/petasbytes/toolbridge/tools"
)

// quitToken ends the session when entered on its own line.
const quitToken = "quit"

// turnRunner is the part of runner.Runner the REPL drives.
type turnRunner interface {
	RunTurn(ctx context.Context, conv *memory.Conversation, userText string) (runner.TurnStats, error)
}

func runChat(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	stderr := cmd.ErrOrStderr()
	if cfg.APIKey == "" {
		fmt.Fprintln(stderr, "Missing ANTHROPIC_API_KEY; export it or add it to .env before running.")
		return exitCodeErr(1)
	}

	ctx := cmd.Context()
	configPath, _ := cmd.Flags().GetString("config")
	sc, err := serverCommand(cfg, configPath)
	if err != nil {
		return err
	}
	cli, err := client.Connect(ctx, sc, client.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(stderr, "failed to start tool server: %v\n", err)
		return exitCodeErr(1)
	}
	defer cli.Close()

	info := cli.ServerInfo()
	logger.Info("connected to tool server", "server", info.Name, "version", info.Version, "tools", len(cli.Tools()))

	out := cmd.OutOrStdout()
	printCatalogue(out, cli.Tools())
	api := provider.NewAnthropicClient(provider.ClientConfig{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL})
	completer := provider.NewCompleter(api, cfg.Model, cfg.MaxTokens)
	r := runner.New(completer, cli, cli.Tools(),
		runner.WithLogger(logger),
		runner.WithObserver(printer(out)),
		runner.WithMaxToolRounds(cfg.MaxToolRounds),
		runner.WithTokenBudget(cfg.TokenBudget, nil),
	)

	fmt.Fprintf(out, "Chat with %s (type %q or Ctrl-D to exit)\n", completer.Model(), quitToken)
	return repl(ctx, cmd.InOrStdin(), out, stderr, r)
}

// serverCommand returns the configured server command, or this binary's
// serve subcommand when none is configured.
func serverCommand(cfg *config.Config, configPath string) (client.ServerCommand, error) {
	if cfg.Server.Command != "" {
		return client.ServerCommand{
			Command: cfg.Server.Command,
			Args:    cfg.Server.Args,
			Env:     cfg.Server.Env,
			Dir:     cfg.Server.Dir,
		}, nil
	}
	self, err := os.Executable()
	if err != nil {
		return client.ServerCommand{}, fmt.Errorf("locate agent binary: %w", err)
	}
	args := []string{"serve"}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	return client.ServerCommand{Command: self, Args: args, Env: cfg.Server.Env, Dir: cfg.Server.Dir}, nil
}

// repl reads user lines and runs one turn per line. Turn errors are printed
// and the session continues.
func repl(ctx context.Context, in io.Reader, out, errOut io.Writer, r turnRunner) error {
	conv := memory.NewConversation()
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	you := color.New(color.FgHiBlue).SprintFunc()
	for {
		fmt.Fprintf(out, "%s: ", you("You"))
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				return nil
			}
			line = l
		}

		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}
		if text == quitToken {
			return nil
		}
		if _, err := r.RunTurn(ctx, conv, line); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			fmt.Fprintf(errOut, "%s %v\n", color.RedString("error:"), err)
		}
	}
}

// printCatalogue lists the connected server's tools.
func printCatalogue(out io.Writer, descs []tools.Descriptor) {
	if len(descs) == 0 {
		fmt.Fprintln(out, "No tools available.")
		return
	}
	name := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintln(out, "Available tools:")
	for _, d := range descs {
		fmt.Fprintf(out, "  - %s: %s\n", name(d.Name), d.Description)
	}
}

// printer renders turn events as they happen.
func printer(out io.Writer) runner.Observer {
	assistant := color.New(color.FgYellow).SprintFunc()
	tool := color.New(color.FgGreen).SprintFunc()
	return func(ev runner.Event) {
		switch ev.Kind {
		case runner.EventText:
			if ev.Text != "" {
				fmt.Fprintf(out, "%s: %s\n", assistant("Claude"), ev.Text)
			}
		case runner.EventToolCall:
			fmt.Fprintf(out, "%s: %s(%s)\n", tool("tool"), ev.ToolName, ev.Input)
		case runner.EventToolResult:
			if ev.IsError {
				fmt.Fprintf(out, "%s: %s\n", color.RedString("tool error"), ev.Text)
			}
		}
	}
}

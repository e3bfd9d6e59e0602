package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/PabloGalante/farum-chat/internal/app/conversation"
	"github.com/PabloGalante/farum-chat/internal/domain"
	"github.com/PabloGalante/farum-chat/internal/observability"
)

func chatCmd() *cobra.Command {
	var (
		session string
		explain bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to Farum from the terminal",
		Long: `Starts an interactive session. Type a message and press enter.

Replies come from Vertex AI when gcp_project is set, from an echoing mock with
use_mock_llm = true, and from the built-in mood classifier otherwise.

  /clear   start over with a fresh greeting
  /quit    leave`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			// keep info logs off the conversation
			level := cfg.LogLevel
			if level != "debug" {
				level = "warn"
			}
			observability.Configure(cmd.ErrOrStderr(), level)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			a, err := bootstrap(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := a.Close(closeCtx); err != nil {
					observability.Logger().Warn("shutdown incomplete", "error", err)
				}
			}()

			ctrl, err := a.svc.Session(ctx, domain.SessionID(session))
			if err != nil {
				return err
			}
			return runREPL(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), ctrl, explain)
		},
	}

	cmd.Flags().StringVarP(&session, "session", "s", "local", "Session owner token")
	cmd.Flags().BoolVar(&explain, "explain", false, "Show where each reply came from")
	return cmd
}

func runREPL(ctx context.Context, in io.Reader, out io.Writer, ctrl *conversation.Controller, explain bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	renderGroups(out, ctrl.Groups())

	var scanErr error
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
		scanErr = scanner.Err()
	}()

	for {
		fmt.Fprint(out, promptStyle.Sprint("you> "))

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				return scanErr
			}
			line = strings.TrimSpace(l)
		}

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/clear":
			ctrl.Clear()
			fmt.Fprintln(out, noticeStyle.Sprint("Conversation cleared."))
			renderGroups(out, ctrl.Groups())
			continue
		}

		start := time.Now()
		res, err := ctrl.Submit(ctx, line)
		if err != nil {
			fmt.Fprintln(out, errorStyle.Sprintf("could not send: %v", err))
			continue
		}
		if res.Discarded {
			continue
		}

		renderLatest(out, ctrl.Groups())
		if explain {
			renderExplain(out, res, time.Since(start))
		}
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Siroj42/heinzelmann/internal/nrepl"
)

const defaultREPLAddr = "127.0.0.1:7888"

var errEvalFailed = errors.New("evaluation failed")

// newEvalCmd evaluates code on a running hub through its nREPL server.
func newEvalCmd() *cobra.Command {
	var (
		addr    string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "eval CODE...",
		Short: "Evaluate code on a running hub",
		Long:  "eval connects to the hub's nREPL server, evaluates CODE in a fresh session and prints the value.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			value, err := evalRemote(ctx, addr, strings.Join(args, " "))
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), value); err != nil {
				return err
			}
			if strings.HasPrefix(value, "Error") {
				return errEvalFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", defaultREPLAddr, "nREPL server address")
	cmd.Flags().DurationVar(&timeout, "timeout", nrepl.DefaultTimeout, "overall timeout")

	return cmd
}

func evalRemote(ctx context.Context, addr, code string) (string, error) {
	client, err := nrepl.Dial(ctx, addr)
	if err != nil {
		return "", fmt.Errorf("connecting to %s: %w", addr, err)
	}
	defer client.Disconnect() //nolint:errcheck // Best effort

	session, err := client.Clone(ctx)
	if err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}

	value, err := client.Eval(ctx, session, code)
	if err != nil {
		return "", fmt.Errorf("evaluating: %w", err)
	}

	if err := client.Close(ctx, session); err != nil {
		return "", fmt.Errorf("closing session: %w", err)
	}
	return value, nil
}

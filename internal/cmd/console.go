package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/gkstorejd-max/gkstore-admin/internal/app"
)

func newConsoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Open the interactive admin console (default)",
		Long: `Open the interactive admin console.

The console signs in, shows today's orders live as they arrive and lists the
catalog. New orders ring once any key has been pressed and raise a desktop
notification when allowed.

Logs go to log.file since the console owns the terminal.`,
		Args: cobra.NoArgs,
		RunE: runConsole,
	}
}

func runConsole(cmd *cobra.Command, _ []string) error {
	b, err := openBackend(cmd, io.Discard)
	if err != nil {
		return err
	}
	defer b.Close()

	// The console asks in its own overlay before requesting permission.
	consent := func(context.Context) (bool, error) { return true, nil }
	notifier, gestures, err := b.NewNotifier(cmd.ErrOrStderr(), consent)
	if err != nil {
		return err
	}
	defer notifier.Close()

	var newRealtime func() (app.Realtime, error)
	if b.Config.Realtime.Enabled {
		newRealtime = func() (app.Realtime, error) {
			rt, err := b.NewRealtime()
			if err != nil {
				return nil, err
			}
			return rt, nil
		}
	}

	model := app.New(app.Options{
		Sessions:    b.Provider,
		Catalog:     b.API,
		Notifier:    notifier,
		NewRealtime: newRealtime,
		Gestures:    gestures,
		Logger:      b.Logger,
	})

	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(cmd.Context()),
	)
	final, err := p.Run()
	if m, ok := final.(app.Model); ok {
		m.Shutdown()
	} else {
		model.Shutdown()
	}
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("console: %w", err)
	}
	return nil
}

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/gkstorejd-max/gkstore-admin/internal/client"
	"github.com/gkstorejd-max/gkstore-admin/internal/notify"
	"github.com/gkstorejd-max/gkstore-admin/internal/orders"
)

// ErrRealtimeGaveUp is returned by orders watch once reconnecting is exhausted.
var ErrRealtimeGaveUp = errors.New("realtime channel gave up reconnecting")

func newOrdersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Today's orders",
		Long: `Inspect today's orders.

Commands:
  today    List today's orders
  report   Print the today's orders report
  watch    Follow new orders as they are placed

Examples:
  gkadmin orders today
  gkadmin orders report --markdown > orders.md
  gkadmin orders watch --notify`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newOrdersTodayCmd(), newOrdersReportCmd(), newOrdersWatchCmd())
	return cmd
}

func newOrdersTodayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "List today's orders, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := openBackend(cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer b.Close()

			list, err := todayOrders(cmd.Context(), b)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if b.Context.Format != FormatText {
				return printValue(out, b.Context.Format, list)
			}
			if len(list) == 0 {
				fmt.Fprintln(out, "No orders yet today.")
				return nil
			}

			rows := make([][]string, 0, len(list))
			for _, o := range list {
				rows = append(rows, []string{
					orders.ShortID(o.ID),
					o.PlacedAt.Local().Format("15:04"),
					o.CustomerName(),
					strconv.Itoa(len(o.Items)),
					orders.Rupees(o.TotalAmount),
					o.PaymentStatus,
					o.Status(),
				})
			}
			printTable(out, []string{"Order", "Time", "Customer", "Items", "Total", "Payment", "Status"}, rows)
			s := orders.Summarize(list)
			fmt.Fprintf(out, "%d orders · revenue %s · %d paid\n", s.Count, orders.Rupees(s.Revenue), s.Paid)
			return nil
		},
	}
}

// todayOrders fetches today's orders sorted the way the dashboard shows them.
func todayOrders(ctx context.Context, b *Backend) ([]client.Order, error) {
	list, err := b.API.TodayOrders(ctx)
	if err != nil {
		return nil, explain(err)
	}
	feed := orders.NewFeed()
	feed.Replace(list)
	return feed.Orders(), nil
}

func newOrdersReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the today's orders report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := openBackend(cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer b.Close()

			list, err := todayOrders(cmd.Context(), b)
			if err != nil {
				return err
			}
			day := time.Now()
			if raw, _ := cmd.Flags().GetBool("markdown"); raw {
				fmt.Fprint(cmd.OutOrStdout(), orders.Markdown(list, day))
				return nil
			}
			width, _ := cmd.Flags().GetInt("width")
			text, err := orders.Render(list, day, width)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}
	cmd.Flags().Bool("markdown", false, "print the Markdown source instead of rendering it")
	cmd.Flags().Int("width", 80, "wrap width of the rendered report")
	return cmd
}

func newOrdersWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow new orders as they are placed",
		Long: `Connect to the realtime order channel and print every new order.

The channel reconnects on its own a few times. When it gives up the command
exits with an error. With --notify every new order also rings and raises a
desktop notification when permitted.`,
		Args: cobra.NoArgs,
		RunE: runWatch,
	}
	cmd.Flags().Bool("notify", false, "ring and raise desktop notifications for new orders")
	cmd.Flags().Int("count", 0, "exit after this many new orders (0 runs until interrupted)")
	return cmd
}

// watchEvent is the JSON line form of a realtime event.
type watchEvent struct {
	Kind    string         `json:"kind"`
	Time    time.Time      `json:"time"`
	Attempt int            `json:"attempt,omitempty"`
	Reason  string         `json:"reason,omitempty"`
	Error   string         `json:"error,omitempty"`
	Resync  bool           `json:"resync,omitempty"`
	Order   *client.Order  `json:"order,omitempty"`
	Orders  []client.Order `json:"orders,omitempty"`
}

func runWatch(cmd *cobra.Command, _ []string) error {
	b, err := openBackend(cmd, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer b.Close()
	if b.Context.Format == FormatYAML {
		return fmt.Errorf("orders watch prints text or json")
	}
	ctx := cmd.Context()
	count, _ := cmd.Flags().GetInt("count")

	var notifier *notify.Dispatcher
	if on, _ := cmd.Flags().GetBool("notify"); on {
		consent := func(context.Context) (bool, error) {
			return confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), "Show a desktop notification when a new order arrives?")
		}
		d, hub, err := b.NewNotifier(cmd.ErrOrStderr(), consent)
		if err != nil {
			return err
		}
		defer d.Close()
		d.RequestPermission(ctx)
		// Starting the command is the user's gesture.
		hub.Emit(notify.GestureKey)
		notifier = d
	}

	rt, err := b.NewRealtime()
	if err != nil {
		return err
	}
	defer rt.Close()

	snaps, unsubscribe := b.Provider.Subscribe()
	defer unsubscribe()

	w := &watchPrinter{out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr(), format: b.Context.Format}
	feed := orders.NewFeed()
	seen := 0

	rt.Start(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case s, ok := <-snaps:
			if !ok {
				snaps = nil
				continue
			}
			if s.SignIn {
				return explain(client.ErrSessionExpired)
			}
		case ev, ok := <-rt.Events():
			if !ok {
				return nil
			}
			w.print(ev, feed)
			switch ev.Kind {
			case client.EventBaseline:
				feed.Replace(ev.Orders)
			case client.EventOrder:
				feed.Prepend(ev.Order)
				if notifier != nil {
					notifier.Notify(ctx, newOrderMessage(ev.Order))
				}
				seen++
				if count > 0 && seen >= count {
					return nil
				}
			case client.EventDisconnected:
				if ev.Reason == client.ReasonExhausted {
					return ErrRealtimeGaveUp
				}
			}
		}
	}
}

// newOrderMessage is the banner and notification text for a pushed order.
func newOrderMessage(o client.Order) string {
	return fmt.Sprintf("New order from %s · %s", o.CustomerName(), orders.Rupees(o.TotalAmount))
}

type watchPrinter struct {
	out    io.Writer
	errOut io.Writer
	format string
}

func (p *watchPrinter) print(ev client.Event, feed *orders.Feed) {
	now := time.Now()
	if p.format == FormatJSON {
		we := watchEvent{Kind: ev.Kind.String(), Time: now, Attempt: ev.Attempt, Reason: ev.Reason, Resync: ev.Resync}
		if ev.Err != nil {
			we.Error = ev.Err.Error()
		}
		switch ev.Kind {
		case client.EventOrder:
			o := ev.Order
			we.Order = &o
		case client.EventBaseline:
			we.Orders = ev.Orders
		}
		line, err := json.Marshal(we)
		if err != nil {
			fmt.Fprintf(p.errOut, "encoding event: %v\n", err)
			return
		}
		fmt.Fprintln(p.out, string(line))
		return
	}

	ts := now.Format("15:04:05")
	switch ev.Kind {
	case client.EventConnected:
		fmt.Fprintf(p.out, "%s  ● connected\n", ts)
	case client.EventReconnected:
		fmt.Fprintf(p.out, "%s  ● reconnected after %d attempt(s)\n", ts, ev.Attempt)
	case client.EventReconnecting:
		fmt.Fprintf(p.out, "%s  ◌ reconnecting (%d)\n", ts, ev.Attempt)
	case client.EventDisconnected:
		fmt.Fprintf(p.out, "%s  ○ disconnected: %s\n", ts, ev.Reason)
	case client.EventBaseline:
		verb := "loaded"
		if ev.Resync {
			verb = "resynced"
		}
		s := orders.Summarize(ev.Orders)
		fmt.Fprintf(p.out, "%s  %s %d orders today, revenue %s\n", ts, verb, s.Count, orders.Rupees(s.Revenue))
	case client.EventOrder:
		o := ev.Order
		fmt.Fprintf(p.out, "%s  new order %s  %s  %s  %s (%d today)\n",
			ts, orders.ShortID(o.ID), o.CustomerName(), orders.Rupees(o.TotalAmount), o.Status(), feed.Len()+1)
	case client.EventError:
		fmt.Fprintf(p.errOut, "%s  error: %v\n", ts, ev.Err)
	}
}

package orders

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/gkstorejd-max/gkstore-admin/internal/client"
)

const idPrefixLen = 10

// Markdown renders the "Today's Orders" report for day.
func Markdown(orders []client.Order, day time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Today's Orders - %s\n\n", day.Format("2 Jan 2006"))

	if len(orders) == 0 {
		b.WriteString("No orders yet today.\n")
		return b.String()
	}

	s := Summarize(orders)
	fmt.Fprintf(&b, "**%d orders**, revenue %s, %d paid\n\n", s.Count, Rupees(s.Revenue), s.Paid)

	for _, o := range orders {
		fmt.Fprintf(&b, "## %s `%s`\n\n", escape(o.CustomerName()), o.Status())
		fmt.Fprintf(&b, "- **Order ID:** %s\n", ShortID(o.ID))
		fmt.Fprintf(&b, "- **Time:** %s\n", placedAt(o))
		fmt.Fprintf(&b, "- **Payment:** %s (%s)\n", orNA(o.PaymentMethod), orNA(o.PaymentStatus))
		b.WriteString("\n**Items:**\n\n")
		if len(o.Items) == 0 {
			b.WriteString("- N/A\n")
		}
		for _, it := range o.Items {
			fmt.Fprintf(&b, "- %s - %d × %s\n", escape(it.Label()), it.Quantity, Rupees(it.UnitPrice()))
		}
		fmt.Fprintf(&b, "\n**Total: %s**\n\n", Rupees(o.TotalAmount))
	}
	return b.String()
}

// Render renders the report for a terminal of the given width.
func Render(orders []client.Order, day time.Time, width int) (string, error) {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("notty"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("creating renderer: %w", err)
	}
	out, err := r.Render(Markdown(orders, day))
	if err != nil {
		return "", fmt.Errorf("rendering report: %w", err)
	}
	return out, nil
}

// Rupees formats an amount with two decimals.
func Rupees(v float64) string {
	return fmt.Sprintf("₹%.2f", v)
}

// ShortID truncates an order id for display.
func ShortID(id string) string {
	if id == "" {
		return "N/A"
	}
	if len(id) <= idPrefixLen {
		return id
	}
	return id[:idPrefixLen] + "..."
}

func placedAt(o client.Order) string {
	if o.PlacedAt.IsZero() {
		return "N/A"
	}
	return o.PlacedAt.Local().Format("2 Jan 2006 15:04")
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

var mdEscaper = strings.NewReplacer("*", `\*`, "_", `\_`, "`", "\\`", "#", `\#`)

func escape(s string) string { return mdEscaper.Replace(s) }

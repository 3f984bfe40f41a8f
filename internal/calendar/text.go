package calendar

import (
	"fmt"
	"strings"

	"rentdesk/internal/model"
)

// FormatMonth renders m as a plain-text grid for terminals. Padding days are
// left blank; markers: '*' confirmed, '~' tentative, '<' today.
func FormatMonth(m Month) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d\n", m.Month, m.Year)

	for i, wd := range m.Weekdays {
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "%-3s", wd.String()[:2])
	}
	b.WriteString("\n")

	for i, cell := range m.Cells {
		if i > 0 && i%7 == 0 {
			b.WriteString("\n")
		} else if i%7 != 0 {
			b.WriteString(" ")
		}
		b.WriteString(formatCell(cell))
	}
	b.WriteString("\n")

	return b.String()
}

func formatCell(c Cell) string {
	if !c.InMonth {
		return "   "
	}
	mark := " "
	switch {
	case c.Booked && c.BookingType == model.BookingConfirmed:
		mark = "*"
	case c.Booked:
		mark = "~"
	case c.Today:
		mark = "<"
	}
	return fmt.Sprintf("%2d%s", c.Day, mark)
}

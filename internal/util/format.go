package util

import (
	"github.com/dustin/go-humanize"
)

// FormatMoney renders an amount with thousands separators for error
// messages and notification bodies. Example: 1500000 -> "1,500,000 ₫".
func FormatMoney(amount int64) string {
	return humanize.Comma(amount) + " ₫"
}

// TruncateContent shortens a title for notification subjects.
func TruncateContent(title string, maxLength int) string {
	if len(title) <= maxLength {
		return title
	}
	return title[:maxLength] + "..."
}

func Int64Pointer(i int64) *int64 {
	return &i
}

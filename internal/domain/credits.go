package domain

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var creditPrinter = message.NewPrinter(language.English)

// FormatCredits renders an amount for user-facing messages, e.g. "1,250 credits".
func FormatCredits(n int64) string {
	if n == 1 || n == -1 {
		return creditPrinter.Sprintf("%d credit", n)
	}
	return creditPrinter.Sprintf("%d credits", n)
}

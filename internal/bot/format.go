package bot

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var (
	printer = message.NewPrinter(language.Indonesian)

	markdown = strings.NewReplacer("_", `\_`, "*", `\*`, "`", "\\`", "[", `\[`)
)

// rupiah formats an amount with Indonesian grouping, e.g. "Rp 1.500.000".
// Cents are shown only when present.
func rupiah(d decimal.Decimal) string {
	d = d.Round(2)
	if d.Equal(d.Truncate(0)) {
		return "Rp " + printer.Sprintf("%d", d.IntPart())
	}
	return "Rp " + printer.Sprint(number.Decimal(d.InexactFloat64(),
		number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}

// escape protects user supplied text from Telegram's legacy Markdown parser.
func escape(s string) string {
	return markdown.Replace(s)
}

package calendar

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Formatter renders nightly prices for a locale and currency.
type Formatter struct {
	unit    currency.Unit
	printer *message.Printer
}

// NewFormatter resolves code as an ISO 4217 currency. An unknown code falls
// back to USD formatted for en-US.
func NewFormatter(code string, tag language.Tag) Formatter {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		unit = currency.USD
		tag = language.AmericanEnglish
	}
	return Formatter{unit: unit, printer: message.NewPrinter(tag)}
}

func (f Formatter) Currency() string { return f.unit.String() }

func (f Formatter) Format(amount decimal.Decimal) string {
	v, _ := amount.Float64()
	return f.printer.Sprint(currency.Symbol(f.unit.Amount(v)))
}

// Label is the hover text for a day cell.
func (f Formatter) Label(d Day) string {
	if d.Booked {
		return "Booked"
	}
	return "Nightly price " + f.Format(d.Price)
}

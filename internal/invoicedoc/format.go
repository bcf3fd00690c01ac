package invoicedoc

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/odyssey-erp/odyssey-pos/internal/fxrates"
)

const dateLayout = "2006-01-02"

// Formatter prints amounts with Venezuelan grouping and decimal marks.
type Formatter struct {
	printer *message.Printer
}

func NewFormatter() *Formatter {
	return &Formatter{printer: message.NewPrinter(language.MustParse("es-VE"))}
}

// Amount formats d with exactly two decimals.
func (f *Formatter) Amount(d decimal.Decimal) string {
	return f.printer.Sprint(number.Decimal(d.Round(2).InexactFloat64(), number.Scale(2)))
}

// Percent renders a rate such as 0.16 as "16%".
func (f *Formatter) Percent(rate decimal.Decimal) string {
	return rate.Mul(decimal.NewFromInt(100)).Round(2).String() + "%"
}

// Disclosure builds the exchange rate line printed under the totals.
func (f *Formatter) Disclosure(rate fxrates.Rate) string {
	when := rate.UpdatedAt
	if when.IsZero() {
		when = rate.FetchedAt
	}
	return fmt.Sprintf("Tasa BCV: Bs. %s por USD (%s, %s)",
		f.Amount(rate.Value), rate.Source, when.In(caracas).Format(dateLayout))
}

var caracas = loadCaracas()

func loadCaracas() *time.Location {
	loc, err := time.LoadLocation("America/Caracas")
	if err != nil {
		return time.FixedZone("VET", -4*60*60)
	}
	return loc
}

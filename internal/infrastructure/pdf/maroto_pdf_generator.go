// Package pdf genera la representación PDF de una factura.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Emisor (nombre + email) │ N° Factura + fechas       │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FACTURAR A: cliente + contacto                              │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Descripción | Cant. | Tarifa | Importe               │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES: Subtotal / Impuesto (%) / TOTAL                    │
//	│  NOTAS + pie                                                 │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	appbilling "github.com/jhoicas/invoicely-api/internal/application/billing"
	"github.com/jhoicas/invoicely-api/internal/domain/entity"
)

var _ appbilling.InvoicePDFGenerator = (*MarotoPDFGenerator)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoPDFGenerator implementa billing.InvoicePDFGenerator usando Maroto v2.
type MarotoPDFGenerator struct{}

// NewMarotoPDFGenerator construye el generador.
func NewMarotoPDFGenerator() *MarotoPDFGenerator { return &MarotoPDFGenerator{} }

// GenerateInvoicePDF genera el PDF y devuelve sus bytes. client e issuer pueden ser nil.
func (g *MarotoPDFGenerator) GenerateInvoicePDF(
	_ context.Context,
	invoice *entity.Invoice,
	client *entity.Client,
	issuer *entity.User,
) ([]byte, error) {
	author := "Invoicely"
	if issuer != nil && issuer.Name != "" {
		author = issuer.Name
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Factura "+invoice.Number, true).
		WithAuthor(author, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(invoice, issuer))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(billToRow(client))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(tableItemRows(invoice)...)

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(invoice))

	m.AddRows(footerRows(invoice)...)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(invoice *entity.Invoice, issuer *entity.User) core.Row {
	name, email := "Invoicely", ""
	if issuer != nil {
		name = nonEmpty(issuer.Name, name)
		email = issuer.Email
	}
	return row.New(22).Add(
		col.New(7).Add(
			text.New(name, props.Text{Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1}),
			text.New(email, props.Text{Size: 9, Top: 9, Color: colorGray}),
		),
		col.New(5).Add(
			text.New("FACTURA", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: colorPrimary, Top: 1,
			}),
			text.New(invoice.Number, props.Text{Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 6}),
			text.New("Emisión: "+formatDate(invoice.IssueDate.IsZero(), invoice.IssueDate.Format("02/01/2006")), props.Text{
				Size: 8, Align: align.Right, Top: 13, Color: colorGray,
			}),
			text.New("Vence: "+formatDate(invoice.DueDate.IsZero(), invoice.DueDate.Format("02/01/2006")), props.Text{
				Size: 8, Align: align.Right, Top: 17, Color: colorGray,
			}),
		),
	)
}

func billToRow(client *entity.Client) core.Row {
	if client == nil {
		return row.New(10).Add(col.New(12).Add(
			text.New("FACTURAR A: cliente eliminado", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorGray, Top: 2}),
		))
	}
	return row.New(18).Add(
		col.New(12).Add(
			text.New("FACTURAR A", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
			text.New(client.Name, props.Text{Style: fontstyle.Bold, Size: 10, Top: 6}),
			text.New(fmt.Sprintf("Email: %s   |   Tel: %s",
				nonEmpty(client.Email, "—"),
				nonEmpty(client.Phone, "—"),
			), props.Text{Size: 8, Top: 11, Color: colorGray}),
			text.New(nonEmpty(client.Address, ""), props.Text{Size: 8, Top: 15, Color: colorGray}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Descripción", 6, align.Left),
		h("Cant.", 2, align.Center),
		h("Tarifa", 2, align.Right),
		h("Importe", 2, align.Right),
	)
}

// tableItemRows una fila por línea; la sección, si existe, precede a la descripción.
func tableItemRows(invoice *entity.Invoice) []core.Row {
	rows := make([]core.Row, 0, len(invoice.Items))
	for _, it := range invoice.Items {
		desc := it.Description
		if it.Section != "" {
			desc = "[" + it.Section + "] " + desc
		}
		rows = append(rows, row.New(7).Add(
			col.New(6).Add(text.New(desc, props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1})),
			col.New(2).Add(text.New(it.Quantity.String(), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(2).Add(text.New(formatAmount(it.Rate, invoice.Currency), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(2).Add(text.New(formatAmount(it.Amount(), invoice.Currency), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
		))
	}
	return rows
}

func totalsRow(invoice *entity.Invoice) core.Row {
	label := func(s string, size float64, top float64) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: size, Align: align.Right, Right: 2, Top: top})
	}
	value := func(s string, size float64, top float64) core.Component {
		return text.New(s, props.Text{Size: size, Align: align.Right, Right: 1, Top: top})
	}
	return row.New(22).Add(
		col.New(6),
		col.New(3).Add(
			label("Subtotal:", 9, 1),
			label(fmt.Sprintf("Impuesto (%s%%):", invoice.TaxRate.String()), 9, 7),
			label("TOTAL:", 10, 13),
		),
		col.New(3).Add(
			value(formatAmount(invoice.SubTotal, invoice.Currency), 9, 1),
			value(formatAmount(invoice.TaxAmount, invoice.Currency), 9, 7),
			value(formatAmount(invoice.Total, invoice.Currency), 10, 13),
		),
	)
}

func footerRows(invoice *entity.Invoice) []core.Row {
	rows := []core.Row{row.New(4)}
	if strings.TrimSpace(invoice.Notes) != "" {
		rows = append(rows,
			row.New(6).Add(col.New(12).Add(
				text.New("NOTAS", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
			)),
			row.New(12).Add(col.New(12).Add(
				text.New(invoice.Notes, props.Text{Size: 8, Color: colorGray, Top: 1}),
			)),
		)
	}
	rows = append(rows,
		line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}),
		row.New(8).Add(col.New(12).Add(
			text.New("Gracias por su confianza.", props.Text{Size: 8, Align: align.Center, Color: colorGray, Top: 2}),
		)),
	)
	return rows
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

func formatDate(zero bool, formatted string) string {
	if zero {
		return "—"
	}
	return formatted
}

// formatAmount "USD 1,234.50": dos decimales, separador de miles y código ISO.
func formatAmount(amount decimal.Decimal, currency string) string {
	s := amount.StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")
	return strings.TrimSpace(currency + " " + sign + groupThousands(intPart) + "." + frac)
}

// groupThousands inserta comas de miles en un string numérico sin decimales.
// Ej: "25000" → "25,000", "1000000" → "1,000,000"
func groupThousands(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(s) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, c)
	}
	return string(buf)
}

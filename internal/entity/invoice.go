package entity

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Invoice mirrors the document shape the extraction template asks for.
// Only used for summaries and strict mode; default output stays the
// engine's raw text.
type Invoice struct {
	Invoice      InvoiceHeader `json:"invoice"`
	Seller       Party         `json:"seller"`
	Buyer        Party         `json:"buyer"`
	PaymentMeans PaymentMeans  `json:"payment_means"`
	Tax          TaxSummary    `json:"tax"`
	Totals       Totals        `json:"totals"`
	Lines        []InvoiceLine `json:"lines"`
}

type InvoiceHeader struct {
	Number       string `json:"number"`
	IssueDate    string `json:"issue_date"` // YYYY-MM-DD
	DueDate      string `json:"due_date,omitempty"`
	CurrencyCode string `json:"currency_code"` // ISO 4217
}

type Party struct {
	Name        string `json:"name"`
	Street      string `json:"street"`
	City        string `json:"city"`
	PostalCode  string `json:"postal_code"`
	CountryCode string `json:"country_code"` // ISO 3166-1 alpha-2
	TaxID       string `json:"tax_id"`
}

type PaymentMeans struct {
	TypeCode         string `json:"type_code"` // UNTDID 4461, 58 = SEPA credit transfer
	IBAN             string `json:"iban"`
	BIC              string `json:"bic"`
	BankName         string `json:"bank_name"`
	PaymentReference string `json:"payment_reference"`
}

type TaxSummary struct {
	TypeCode     string  `json:"type_code"`     // VAT
	CategoryCode string  `json:"category_code"` // S, Z, E, AE, ...
	Percent      Decimal `json:"percent"`       // percent x100, 19% -> 1900
	Amount       Decimal `json:"amount"`
}

type Totals struct {
	LineTotal    Decimal `json:"line_total"`
	TaxExclusive Decimal `json:"tax_exclusive"`
	TaxInclusive Decimal `json:"tax_inclusive"`
	Payable      Decimal `json:"payable"`
}

type InvoiceLine struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	UnitCode    string  `json:"unit_code"` // HUR | DAY | PCE
	Quantity    Decimal `json:"quantity"`
	UnitPrice   Decimal `json:"unit_price"`
	LineTotal   Decimal `json:"line_total"`
	TaxCategory string  `json:"tax_category"`
	TaxPercent  Decimal `json:"tax_percent"` // percent x100
}

// Decimal keeps a model-produced amount verbatim whether it arrived as a
// JSON number or a JSON string.
type Decimal string

func (d *Decimal) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*d = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*d = Decimal(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*d = Decimal(n.String())
	return nil
}

func (d Decimal) String() string { return string(d) }

// ParseInvoice decodes structured output best-effort.
func ParseInvoice(raw string) (*Invoice, error) {
	var inv Invoice
	if err := json.Unmarshal([]byte(raw), &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

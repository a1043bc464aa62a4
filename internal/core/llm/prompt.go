package llm

import (
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// invoiceTemplate fixes the target document shape. Keys match entity.Invoice.
const invoiceTemplate = `{
  "invoice": {"number": "", "issue_date": "", "due_date": "", "currency_code": "EUR"},
  "seller": {"name": "", "street": "", "city": "", "postal_code": "", "country_code": "DE", "tax_id": ""},
  "buyer": {"name": "", "street": "", "city": "", "postal_code": "", "country_code": "DE", "tax_id": ""},
  "payment_means": {"type_code": "58", "iban": "", "bic": "", "bank_name": "", "payment_reference": ""},
  "tax": {"type_code": "VAT", "category_code": "S", "percent": 1900, "amount": "0.00"},
  "totals": {"line_total": "0.00", "tax_exclusive": "0.00", "tax_inclusive": "0.00", "payable": "0.00"},
  "lines": [
    {"id": "1", "name": "", "unit_code": "HUR", "quantity": "0", "unit_price": "0.00", "line_total": "0.00", "tax_category": "S", "tax_percent": 1900}
  ]
}`

// BuildInvoicePrompt composes the generate prompt: the page markdown, the
// fixed instruction template and the seller metadata.
func BuildInvoicePrompt(req ExtractRequest) string {
	units := strings.Join(constants.UnitCodesAsStringSlice(), ", ")

	var b strings.Builder
	b.WriteString("You are an invoice parser. Read the invoice below (markdown from OCR) and return ONLY one JSON object with exactly this structure:\n\n")
	b.WriteString(invoiceTemplate)
	b.WriteString("\n\nRules:\n")
	rules := []string{
		"Dates use ISO-8601 (YYYY-MM-DD).",
		"currency_code is a 3-letter ISO 4217 code.",
		"country_code is a 2-letter ISO 3166-1 code.",
		"Percentages are multiplied by 100 (19% becomes 1900).",
		"Amounts are decimal strings with a dot separator.",
		"unit_code MUST be one of: " + units + " (hours = HUR, days = DAY, pieces or anything else = PCE).",
		"Keep invoice lines in the order they appear.",
		"The seller is the party identified below; everyone else billed is the buyer.",
		"If a value is not present, use an empty string. Do not add keys. Do not wrap the JSON in code fences.",
	}
	for _, r := range rules {
		b.WriteString("- ")
		b.WriteString(r)
		b.WriteString("\n")
	}

	b.WriteString("\nSeller:\n")
	b.WriteString(sellerLines(req.Seller))
	b.WriteString("\nInvoice markdown:\n")
	b.WriteString(req.Markdown)
	return b.String()
}

func sellerLines(s entity.SellerMetadata) string {
	return "Address: " + strings.TrimSpace(s.Address) + "\nTax number: " + strings.TrimSpace(s.TaxNumber) + "\n"
}

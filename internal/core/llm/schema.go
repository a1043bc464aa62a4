package llm

import "github.com/joseph-ayodele/invoice-extractor/constants"

// BuildInvoiceJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map. It mirrors the instruction template and is only used to
// validate responses in strict mode.
func BuildInvoiceJSONSchema() map[string]any {
	party := object(map[string]any{
		"name":         str(),
		"street":       str(),
		"city":         str(),
		"postal_code":  str(),
		"country_code": map[string]any{"type": "string", "pattern": `^([A-Za-z]{2})?$`},
		"tax_id":       str(),
	}, "name")

	line := object(map[string]any{
		"id":           idProp(),
		"name":         str(),
		"unit_code":    map[string]any{"type": "string", "enum": constants.UnitCodesAsStringSlice()},
		"quantity":     decimalProp(),
		"unit_price":   decimalProp(),
		"line_total":   decimalProp(),
		"tax_category": str(),
		"tax_percent":  decimalProp(),
	}, "name", "unit_code", "quantity")

	props := map[string]any{
		"invoice": object(map[string]any{
			"number":        str(),
			"issue_date":    dateProp(),
			"due_date":      dateProp(),
			"currency_code": map[string]any{"type": "string", "pattern": `^([A-Za-z]{3})?$`},
		}, "number"),
		"seller": party,
		"buyer":  party,
		"payment_means": object(map[string]any{
			"type_code":         idProp(),
			"iban":              str(),
			"bic":               str(),
			"bank_name":         str(),
			"payment_reference": str(),
		}),
		"tax": object(map[string]any{
			"type_code":     str(),
			"category_code": str(),
			"percent":       decimalProp(),
			"amount":        decimalProp(),
		}),
		"totals": object(map[string]any{
			"line_total":    decimalProp(),
			"tax_exclusive": decimalProp(),
			"tax_inclusive": decimalProp(),
			"payable":       decimalProp(),
		}, "payable"),
		"lines": map[string]any{"type": "array", "items": line},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             []string{"invoice", "seller", "buyer", "totals", "lines"},
	}
}

func object(props map[string]any, required ...string) map[string]any {
	m := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		m["required"] = required
	}
	return m
}

func str() map[string]any {
	return map[string]any{"type": "string"}
}

// models emit ids and type codes both as numbers and strings
func idProp() map[string]any {
	return map[string]any{"type": []string{"string", "integer"}}
}

func dateProp() map[string]any {
	return map[string]any{"type": "string", "pattern": `^(\d{4}-\d{2}-\d{2})?$`}
}

func decimalProp() map[string]any {
	return map[string]any{
		"anyOf": []any{
			map[string]any{"type": "number"},
			map[string]any{"type": "string", "pattern": `^(-?\d+(\.\d+)?)?$`},
			map[string]any{"type": "null"},
		},
	}
}

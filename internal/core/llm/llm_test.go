package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

const validInvoice = `{
  "invoice": {"number": "RE-2024-17", "issue_date": "2024-03-01", "due_date": "", "currency_code": "EUR"},
  "seller": {"name": "Muster GmbH", "street": "Hauptstr. 1", "city": "Berlin", "postal_code": "10115", "country_code": "DE", "tax_id": "DE123456789"},
  "buyer": {"name": "Kunde AG", "street": "", "city": "", "postal_code": "", "country_code": "", "tax_id": ""},
  "payment_means": {"type_code": 58, "iban": "DE02120300000000202051", "bic": "BYLADEM1001", "bank_name": "", "payment_reference": "RE-2024-17"},
  "tax": {"type_code": "VAT", "category_code": "S", "percent": 1900, "amount": "190.00"},
  "totals": {"line_total": "1000.00", "tax_exclusive": "1000.00", "tax_inclusive": "1190.00", "payable": 1190.00},
  "lines": [
    {"id": 1, "name": "Consulting", "unit_code": "HUR", "quantity": 10, "unit_price": "100.00", "line_total": "1000.00", "tax_category": "S", "tax_percent": 1900}
  ]
}`

func TestBuildInvoicePrompt(t *testing.T) {
	p := BuildInvoicePrompt(ExtractRequest{
		Page:     1,
		Markdown: "Seller address: Hauptstr. 1\nSeller tax number: DE123\n\n# Rechnung",
		Seller:   entity.SellerMetadata{Address: "Hauptstr. 1", TaxNumber: "DE123"},
	})

	for _, want := range []string{
		"HUR, DAY, PCE",
		`"payment_means"`,
		`"tax_percent"`,
		"19% becomes 1900",
		"Address: Hauptstr. 1",
		"Tax number: DE123",
		"# Rechnung",
	} {
		assert.Contains(t, p, want)
	}
}

func TestInvoiceTemplateMatchesSchema(t *testing.T) {
	v, err := NewSchemaValidator(BuildInvoiceJSONSchema())
	require.NoError(t, err)
	require.NoError(t, v.Validate([]byte(invoiceTemplate)))
}

func TestSchemaValidator(t *testing.T) {
	v, err := NewSchemaValidator(BuildInvoiceJSONSchema())
	require.NoError(t, err)

	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{name: "valid", doc: validInvoice},
		{name: "not json", doc: "The invoice number is 17.", wantErr: true},
		{name: "bad unit", doc: `{"invoice":{"number":"1"},"seller":{"name":"a"},"buyer":{"name":"b"},"totals":{"payable":"1"},"lines":[{"name":"x","unit_code":"KGM","quantity":1}]}`, wantErr: true},
		{name: "missing totals", doc: `{"invoice":{"number":"1"},"seller":{"name":"a"},"buyer":{"name":"b"},"lines":[]}`, wantErr: true},
		{name: "unknown top-level key", doc: `{"invoice":{"number":"1"},"seller":{"name":"a"},"buyer":{"name":"b"},"totals":{"payable":"1"},"lines":[],"notes":"x"}`, wantErr: true},
		{name: "bad date", doc: `{"invoice":{"number":"1","issue_date":"01.03.2024"},"seller":{"name":"a"},"buyer":{"name":"b"},"totals":{"payable":"1"},"lines":[]}`, wantErr: true},
		{name: "trailing content", doc: `{"invoice":{"number":"1"},"seller":{"name":"a"},"buyer":{"name":"b"},"totals":{"payable":"1"},"lines":[]} extra`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate([]byte(tt.doc))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: `{"a":1}`, want: `{"a":1}`},
		{in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{in: "  ```\n{\"a\":1}\n```  \n", want: `{"a":1}`},
		{in: "```{\"a\":1}```", want: `{"a":1}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StripCodeFences(tt.in))
	}
}

func TestCanonicalizeUnits(t *testing.T) {
	doc := []byte(`{"lines":[{"unit_code":"Std."},{"unit_code":"PCE"},{"unit_code":"Tage"},{"unit_code":"KGM"}]}`)
	out, changed, err := CanonicalizeUnits(doc)
	require.NoError(t, err)
	assert.Equal(t, []string{"Std.->HUR", "Tage->DAY"}, changed)

	var m struct {
		Lines []struct {
			UnitCode string `json:"unit_code"`
		} `json:"lines"`
	}
	require.NoError(t, json.Unmarshal(out, &m))
	got := make([]string, len(m.Lines))
	for i, l := range m.Lines {
		got[i] = l.UnitCode
	}
	assert.Equal(t, []string{"HUR", "PCE", "DAY", "KGM"}, got)

	same := []byte(`{"lines":[{"unit_code":"HUR"}]}`)
	out, changed, err = CanonicalizeUnits(same)
	require.NoError(t, err)
	assert.Empty(t, changed)
	assert.Equal(t, same, out)

	_, _, err = CanonicalizeUnits([]byte("not json"))
	assert.Error(t, err)
}

type stubExtractor struct {
	out string
	err error
}

func (s stubExtractor) ExtractStructured(context.Context, ExtractRequest) (string, error) {
	return s.out, s.err
}

func TestValidatingExtractor(t *testing.T) {
	ctx := context.Background()

	t.Run("valid passes through", func(t *testing.T) {
		e, err := NewValidatingExtractor(stubExtractor{out: validInvoice}, nil)
		require.NoError(t, err)
		out, err := e.ExtractStructured(ctx, ExtractRequest{Page: 1})
		require.NoError(t, err)
		assert.Equal(t, validInvoice, out)
	})

	t.Run("fenced output with unit synonym is repaired", func(t *testing.T) {
		raw := "```json\n" + `{"invoice":{"number":"1"},"seller":{"name":"a"},"buyer":{"name":"b"},"totals":{"payable":"1"},"lines":[{"name":"x","unit_code":"hours","quantity":"2"}]}` + "\n```"
		e, err := NewValidatingExtractor(stubExtractor{out: raw}, nil)
		require.NoError(t, err)
		out, err := e.ExtractStructured(ctx, ExtractRequest{Page: 1})
		require.NoError(t, err)
		assert.Contains(t, out, `"unit_code":"HUR"`)
	})

	t.Run("non json is a failure", func(t *testing.T) {
		e, err := NewValidatingExtractor(stubExtractor{out: "Sorry, I cannot read this."}, nil)
		require.NoError(t, err)
		_, err = e.ExtractStructured(ctx, ExtractRequest{Page: 1})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not JSON")
	})

	t.Run("upstream error is returned unchanged", func(t *testing.T) {
		boom := errors.New("boom")
		e, err := NewValidatingExtractor(stubExtractor{err: boom}, nil)
		require.NoError(t, err)
		_, err = e.ExtractStructured(ctx, ExtractRequest{Page: 1})
		assert.ErrorIs(t, err, boom)
	})
}

func TestSendJSON(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotBody)
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream"))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	raw, status, err := SendJSON(context.Background(), srv.Client(), srv.URL+"/ok", map[string]any{"model": "m"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"ok":true}`, string(raw))
	assert.Equal(t, "m", gotBody["model"])

	raw, status, err = SendJSON(context.Background(), srv.Client(), srv.URL+"/fail", map[string]any{}, nil, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, "upstream", string(raw))
}

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer srv.Close()

	raw, status, err := GetJSON(context.Background(), nil, srv.URL+"/api/tags", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"models":[]}`, string(raw))
}

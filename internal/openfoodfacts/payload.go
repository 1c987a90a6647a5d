package openfoodfacts

import (
	"bytes"
	"encoding/json"
)

// Response is the envelope returned by the v2 product endpoint.
type Response struct {
	Code          string          `json:"code"`
	Status        int             `json:"status"`
	StatusVerbose string          `json:"status_verbose"`
	Product       json.RawMessage `json:"product"`
}

// hasProduct reports whether the envelope carries a non-empty product object.
func (r *Response) hasProduct() bool {
	raw := bytes.TrimSpace(r.Product)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return false
	}
	return len(fields) > 0
}

// Product is the subset of an Open Food Facts product this service reads.
type Product struct {
	ProductName   *string       `json:"product_name"`
	EcoscoreGrade *string       `json:"ecoscore_grade"`
	EcoscoreData  *EcoscoreData `json:"ecoscore_data"`
}

// EcoscoreData holds the eco-score computation details.
type EcoscoreData struct {
	Agribalyse *Agribalyse `json:"agribalyse"`

	fields int
}

func (e *EcoscoreData) UnmarshalJSON(b []byte) error {
	type plain EcoscoreData
	var p plain
	n, err := decodeObject(b, &p)
	if err != nil {
		return err
	}
	*e = EcoscoreData(p)
	e.fields = n
	return nil
}

// Empty reports whether the object was absent or had no keys at all.
func (e *EcoscoreData) Empty() bool {
	return e == nil || e.fields == 0
}

// Agribalyse holds the life-cycle assessment of the product category.
type Agribalyse struct {
	Warning *string  `json:"warning"`
	Impacts *Impacts `json:"impacts"`

	fields int
}

func (a *Agribalyse) UnmarshalJSON(b []byte) error {
	type plain Agribalyse
	var p plain
	n, err := decodeObject(b, &p)
	if err != nil {
		return err
	}
	*a = Agribalyse(p)
	a.fields = n
	return nil
}

// Empty reports whether the object was absent or had no keys at all.
func (a *Agribalyse) Empty() bool {
	return a == nil || a.fields == 0
}

// Impacts are the estimated environmental impacts per kilogram of product.
type Impacts struct {
	Carbon *ImpactValue `json:"carbon"`
	Water  *ImpactValue `json:"water"`
	Land   *ImpactValue `json:"land"`
}

// ImpactValue keeps an impact exactly as the upstream wrote it.
// Numbers keep their JSON literal so 12 stays "12" and 0.5 stays "0.5".
type ImpactValue string

func (v *ImpactValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = ImpactValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*v = ImpactValue(n)
	return nil
}

// decodeObject decodes b into dst and returns the number of keys in the JSON object.
func decodeObject(b []byte, dst any) (int, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return 0, err
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return 0, err
	}
	return len(fields), nil
}

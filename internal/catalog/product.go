package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Product is one catalog entry. The ID is assigned by the Manager at create
// time and is immutable afterwards.
type Product struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Code        string   `json:"code"`
	Price       float64  `json:"price"`
	Status      bool     `json:"status"`
	Stock       int      `json:"stock"`
	Category    string   `json:"category"`
	Thumbnails  []string `json:"thumbnails"`
}

// ErrNotFound reports a product id absent from the catalog.
var ErrNotFound = errors.New("product not found")

// ValidationError reports rejected input fields: required fields missing from
// a create request, or values that cannot be coerced to their field type.
type ValidationError struct {
	Missing []string
	Reason  string
}

func (e *ValidationError) Error() string {
	if len(e.Missing) > 0 {
		return "missing required fields: " + strings.Join(e.Missing, ", ")
	}
	return e.Reason
}

// requiredFields must be present (under any key casing) in a create request.
var requiredFields = []string{"title", "description", "code", "price", "stock", "category"}

// recognizedFields is the closed set of input keys the normalizer maps onto a
// Product. Anything else in the request body is ignored.
var recognizedFields = map[string]struct{}{
	"title": {}, "description": {}, "code": {}, "price": {},
	"status": {}, "stock": {}, "category": {}, "thumbnails": {},
}

// Fields is a raw, untyped request body. Key matching is case-insensitive.
type Fields map[string]any

// fold lowercases all keys, dropping unrecognized ones. Later duplicate keys
// win, matching plain map overwrite semantics.
func (f Fields) fold() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		lk := strings.ToLower(k)
		if _, ok := recognizedFields[lk]; ok {
			out[lk] = v
		}
	}
	return out
}

func (f Fields) missingRequired() []string {
	var missing []string
	for _, name := range requiredFields {
		if _, ok := f[name]; !ok {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

// normalize maps a folded field set onto a fully typed Product (without ID).
// Malformed numeric input is rejected rather than persisted as NaN.
func normalize(f Fields) (Product, error) {
	price, err := coerceNumber(f["price"])
	if err != nil {
		return Product{}, &ValidationError{Reason: fmt.Sprintf("price: %v", err)}
	}
	stock, err := coerceNumber(f["stock"])
	if err != nil {
		return Product{}, &ValidationError{Reason: fmt.Sprintf("stock: %v", err)}
	}

	return Product{
		Title:       strings.TrimSpace(asString(f["title"])),
		Description: asString(f["description"]),
		Code:        asString(f["code"]),
		Price:       price,
		Status:      coerceStatus(f["status"]),
		Stock:       int(stock),
		Category:    asString(f["category"]),
		Thumbnails:  coerceThumbnails(f["thumbnails"]),
	}, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func coerceNumber(v any) (float64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("not a number: %v", v)
	}
}

// coerceStatus defaults to true when the field is absent. Strings parse
// "true" and "active" (any casing) as true, anything else false.
func coerceStatus(v any) bool {
	switch s := v.(type) {
	case nil:
		return true
	case bool:
		return s
	case string:
		l := strings.ToLower(s)
		return l == "true" || l == "active"
	case float64:
		return s != 0
	default:
		return false
	}
}

// coerceThumbnails wraps a lone string into a one-element slice and keeps
// string sequences as-is. Anything else becomes an empty slice.
func coerceThumbnails(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []string:
		return append([]string{}, t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return []string{}
	}
}

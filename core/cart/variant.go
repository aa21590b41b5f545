package cart

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Variant is a selection of attribute name/value pairs distinguishing
// otherwise-identical lines, e.g. {"color": "red"}.
type Variant map[string]string

// Normalize keeps only the attribute names the catalog recognizes for the
// product. A nil selection normalizes to an empty variant.
func Normalize(sel map[string]string, recognized []string) Variant {
	v := Variant{}
	for _, name := range recognized {
		if val, ok := sel[name]; ok && val != "" {
			v[name] = val
		}
	}
	return v
}

// Key is the canonical form used for line identity: sorted name=value
// pairs, so two selections with the same pairs always collide on the
// (cart, product, key) unique constraint regardless of map order.
func (v Variant) Key() string {
	if len(v) == 0 {
		return ""
	}

	names := make([]string, 0, len(v))
	for name := range v {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, name+"="+v[name])
	}
	return strings.Join(pairs, ";")
}

func (v Variant) Value() (driver.Value, error) {
	if v == nil {
		v = Variant{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshaling variant: %w", err)
	}
	return b, nil
}

func (v *Variant) Scan(src interface{}) error {
	var b []byte
	switch t := src.(type) {
	case []byte:
		b = t
	case string:
		b = []byte(t)
	case nil:
		*v = Variant{}
		return nil
	default:
		return fmt.Errorf("unsupported variant column type %T", src)
	}

	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("unmarshaling variant: %w", err)
	}
	return nil
}

package cart

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalizeDropsUnrecognizedKeys(t *testing.T) {
	recognized := []string{"color", "size"}

	sel := map[string]string{
		"color":     "red",
		"size":      "XL",
		"quantity":  "3",
		"csrftoken": "abc",
		"material":  "",
	}

	got := Normalize(sel, recognized)
	want := Variant{"color": "red", "size": "XL"}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("normalized variant mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeNilSelection(t *testing.T) {
	got := Normalize(nil, []string{"color"})
	if len(got) != 0 {
		t.Fatalf("expected an empty variant, got %v", got)
	}
	if got == nil {
		t.Fatal("expected a non-nil empty variant")
	}
}

func TestVariantKeyIsOrderIndependent(t *testing.T) {
	a := Variant{"size": "XL", "color": "red"}
	b := Variant{"color": "red", "size": "XL"}

	if a.Key() != b.Key() {
		t.Fatalf("keys differ: %q vs %q", a.Key(), b.Key())
	}

	if want := "color=red;size=XL"; a.Key() != want {
		t.Fatalf("expected key %q, got %q", want, a.Key())
	}
}

func TestVariantKeyEmpty(t *testing.T) {
	if k := (Variant{}).Key(); k != "" {
		t.Fatalf("expected empty key, got %q", k)
	}
	var v Variant
	if k := v.Key(); k != "" {
		t.Fatalf("expected empty key for nil variant, got %q", k)
	}
}

func TestVariantScanRoundTrip(t *testing.T) {
	v := Variant{"color": "red"}

	raw, err := v.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}

	var got Variant
	if err := got.Scan(raw); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if diff := cmp.Diff(v, got); diff != "" {
		t.Fatalf("variant round trip mismatch (-want +got):\n%s", diff)
	}
}

package dom

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestMetadataPreservesKeyOrder(t *testing.T) {
	m := NewMetadata()
	m.Set("filename", "report.pdf")
	m.Set("page_number", 5)
	m.Set("confidence", 0.92)

	encoded, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"filename":"report.pdf","page_number":5,"confidence":0.92}`
	if string(encoded) != want {
		t.Fatalf("marshal order mismatch:\n got %s\nwant %s", encoded, want)
	}

	var decoded Metadata
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatal(err)
	}
	keys := decoded.Keys()
	if strings.Join(keys, ",") != "filename,page_number,confidence" {
		t.Fatalf("unmarshal order mismatch: %v", keys)
	}

	reencoded, err := json.Marshal(&decoded)
	if err != nil {
		t.Fatal(err)
	}
	if string(reencoded) != want {
		t.Fatalf("round trip not stable:\n got %s\nwant %s", reencoded, want)
	}
}

func TestMetadataSetAfterKeepsCompanionAdjacent(t *testing.T) {
	m := MetadataFromPairs("filename", "a.pdf", "page_number", 5, "status", "complete")
	m.SetAfter("page_number", "page_number_conflicts", "ALT: 7")

	keys := m.Keys()
	want := "filename,page_number,page_number_conflicts,status"
	if strings.Join(keys, ",") != want {
		t.Fatalf("key order mismatch: got %v", keys)
	}
}

func TestMetadataSetAfterMissingAnchorAppends(t *testing.T) {
	m := MetadataFromPairs("a", 1)
	m.SetAfter("missing", "b", 2)
	if strings.Join(m.Keys(), ",") != "a,b" {
		t.Fatalf("key order mismatch: got %v", m.Keys())
	}
}

func TestMetadataDelete(t *testing.T) {
	m := MetadataFromPairs("a", 1, "b", 2, "c", 3)
	m.Delete("b")
	if strings.Join(m.Keys(), ",") != "a,c" {
		t.Fatalf("key order mismatch after delete: got %v", m.Keys())
	}
	if m.Has("b") {
		t.Fatal("deleted key still present")
	}
}

func TestValuesEqualNormalizesNumericKinds(t *testing.T) {
	var decoded Metadata
	if err := json.Unmarshal([]byte(`{"page_number":5}`), &decoded); err != nil {
		t.Fatal(err)
	}
	fromDisk, _ := decoded.Get("page_number")
	if !ValuesEqual(fromDisk, 5) {
		t.Fatal("int literal should equal decoded JSON number")
	}
	if ValuesEqual(fromDisk, 7) {
		t.Fatal("distinct values reported equal")
	}
}

func TestValuesEqualNested(t *testing.T) {
	a := map[string]any{"error": map[string]any{"type": "ocr", "code": float64(3)}}
	b := map[string]any{"error": map[string]any{"type": "ocr", "code": 3}}
	if !ValuesEqual(a, b) {
		t.Fatal("structurally equal nested values reported unequal")
	}
	c := map[string]any{"error": map[string]any{"type": "llm", "code": 3}}
	if ValuesEqual(a, c) {
		t.Fatal("structurally distinct nested values reported equal")
	}
}

func TestFormatValue(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{"plain", "plain"},
		{7, "7"},
		{7.5, "7.5"},
		{true, "true"},
		{nil, "null"},
		{map[string]any{"k": "v"}, `{"k":"v"}`},
	}
	for _, tc := range cases {
		if got := FormatValue(tc.in); got != tc.want {
			t.Fatalf("FormatValue(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

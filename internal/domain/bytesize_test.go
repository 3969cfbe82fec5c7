package domain

import (
	"encoding/json"
	"testing"

	"gopkg.in/yaml.v3"
)

// TestParseByteSize verifies supported units and rejects junk.
func TestParseByteSize(t *testing.T) {
	cases := map[string]ByteSize{
		"1024":   1024,
		"50Mi":   50 << 20,
		"50MiB":  50 << 20,
		"512kib": 512 << 10,
		"1GiB":   1 << 30,
		"20MB":   20_000_000,
		"1.5KB":  1500,
		"64B":    64,
	}
	for in, want := range cases {
		got, err := ParseByteSize(in)
		if err != nil {
			t.Fatalf("ParseByteSize(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseByteSize(%q) = %d, want %d", in, got, want)
		}
	}

	for _, in := range []string{"", "  ", "ten", "-5MB", "5TB"} {
		if _, err := ParseByteSize(in); err == nil {
			t.Fatalf("ParseByteSize(%q) expected error", in)
		}
	}
}

// TestByteSizeDecoding verifies JSON and YAML accept numbers and strings.
func TestByteSizeDecoding(t *testing.T) {
	var fromJSON struct {
		Limit ByteSize `json:"limit"`
	}
	if err := json.Unmarshal([]byte(`{"limit":"2Mi"}`), &fromJSON); err != nil || fromJSON.Limit != 2<<20 {
		t.Fatalf("json string = %d err=%v", fromJSON.Limit, err)
	}
	if err := json.Unmarshal([]byte(`{"limit":4096}`), &fromJSON); err != nil || fromJSON.Limit != 4096 {
		t.Fatalf("json number = %d err=%v", fromJSON.Limit, err)
	}

	var fromYAML struct {
		Limit ByteSize `yaml:"limit"`
	}
	if err := yaml.Unmarshal([]byte("limit: 3MiB\n"), &fromYAML); err != nil || fromYAML.Limit != 3<<20 {
		t.Fatalf("yaml = %d err=%v", fromYAML.Limit, err)
	}
	if err := yaml.Unmarshal([]byte("limit: [1, 2]\n"), &fromYAML); err == nil {
		t.Fatal("expected error for sequence node")
	}
}

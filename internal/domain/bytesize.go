package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ByteSize is a size in bytes that decodes from "50Mi", "20MB", "512KiB" or "1024".
type ByteSize int64

var reNumeric = regexp.MustCompile(`^\d+$`)

// ParseByteSize parses binary (Ki, Mi, Gi, KiB, MiB, GiB), decimal (KB, MB, GB) and bare byte sizes.
func ParseByteSize(s string) (ByteSize, error) {
	orig := s
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty size")
	}
	if reNumeric.MatchString(s) {
		val, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid size number: %w", err)
		}
		return ByteSize(val), nil
	}

	up := strings.ToUpper(s)
	units := []struct {
		suffix string
		value  int64
	}{
		{"KIB", 1 << 10},
		{"MIB", 1 << 20},
		{"GIB", 1 << 30},
		{"KI", 1 << 10},
		{"MI", 1 << 20},
		{"GI", 1 << 30},
		{"KB", 1000},
		{"MB", 1000 * 1000},
		{"GB", 1000 * 1000 * 1000},
		{"B", 1},
	}
	for _, u := range units {
		if !strings.HasSuffix(up, u.suffix) {
			continue
		}
		num := strings.TrimSpace(s[:len(s)-len(u.suffix)])
		val, err := strconv.ParseFloat(num, 64)
		if err != nil || val < 0 {
			return 0, fmt.Errorf("invalid size number in %q", orig)
		}
		return ByteSize(val * float64(u.value)), nil
	}
	return 0, fmt.Errorf("unknown size suffix in %q", orig)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (b *ByteSize) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("invalid bytesize node kind: %v", value.Kind)
	}
	parsed, err := ParseByteSize(value.Value)
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// UnmarshalJSON accepts either a JSON number of bytes or a size string.
func (b *ByteSize) UnmarshalJSON(data []byte) error {
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		*b = ByteSize(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid bytesize: %s", string(data))
	}
	parsed, err := ParseByteSize(s)
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

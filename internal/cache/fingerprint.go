package cache

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/erdview/internal/schema"
	"github.com/zeebo/xxh3"
)

// Fingerprint hashes the operation name and its parameters into a 128-bit
// xxh3 digest, returned as 32 hex characters. Every field is length
// prefixed, so ("ab", "c") and ("a", "bc") never collide by concatenation.
//
// Parameters are hashed as given. Callers normalize them first with Bool,
// Int, TableParam and TableSetParam so that equal requests give equal
// strings.
func Fingerprint(op string, params ...string) string {
	var b strings.Builder
	writeField(&b, op)
	for _, p := range params {
		writeField(&b, p)
	}
	h := xxh3.HashString128(b.String())
	return fmt.Sprintf("%016x%016x", h.Hi, h.Lo)
}

func writeField(b *strings.Builder, s string) {
	b.WriteString(strconv.Itoa(len(s)))
	b.WriteByte(':')
	b.WriteString(s)
	b.WriteByte(';')
}

// Bool returns the canonical form of a boolean parameter.
func Bool(v bool) string {
	return strconv.FormatBool(v)
}

// ParseBool accepts the spellings a query string or config file may use for
// a boolean: 1/0, true/false, t/f, yes/no, y/n and on/off, in any case. An
// empty string is false.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off", "":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", s)
	}
}

// Int returns the canonical form of an integer parameter.
func Int(v int) string {
	return strconv.Itoa(v)
}

// TableSetParam returns the members of set sorted and comma joined, so that
// the order a client listed them in does not matter.
func TableSetParam(set schema.TableSet) string {
	sorted := set.Sorted()
	parts := make([]string, len(sorted))
	for i, t := range sorted {
		parts[i] = t.String()
	}
	return strings.Join(parts, ",")
}

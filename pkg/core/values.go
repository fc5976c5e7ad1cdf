package core

import (
	"bytes"
	"encoding/json"
	"math"
	"math/big"
	"reflect"
	"regexp"
	"strconv"

	"golang.org/x/mod/semver"
)

// NormalizeValue converts v into its canonical JSON form so that values read from
// YAML and values received over JSON compare equal. Numbers become json.Number.
func NormalizeValue(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return canonical(out), nil
}

// canonical rewrites numbers so that 1, 1.0 and 1e0 share one spelling.
func canonical(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := strconv.ParseInt(t.String(), 10, 64); err == nil {
			return json.Number(strconv.FormatInt(i, 10))
		}
		// Integers past int64 keep every digit.
		if i, ok := new(big.Int).SetString(t.String(), 10); ok {
			return json.Number(i.String())
		}
		f, err := strconv.ParseFloat(t.String(), 64)
		if err != nil {
			return t
		}
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return json.Number(strconv.FormatInt(int64(f), 10))
		}
		return json.Number(strconv.FormatFloat(f, 'g', -1, 64))
	case map[string]any:
		for k, e := range t {
			t[k] = canonical(e)
		}
	case []any:
		for i, e := range t {
			t[i] = canonical(e)
		}
	}
	return v
}

// NormalizeFields applies NormalizeValue to every value of f.
func NormalizeFields(f map[string]any) (Fields, error) {
	out := make(Fields, len(f))
	for k, v := range f {
		n, err := NormalizeValue(v)
		if err != nil {
			return nil, &Error{Kind: KindJSONProcessing, Key: k, Msg: "value is not JSON-compatible", Err: err}
		}
		out[k] = n
	}
	return out, nil
}

// Equal reports whether two normalized values are identical.
func Equal(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

var versionPattern = regexp.MustCompile(`^[0-9]+\.[0-9]+\.[0-9]+$`)

// ValidateVersion checks that s is a MAJOR.MINOR.PATCH semantic version.
func ValidateVersion(s string) error {
	if !versionPattern.MatchString(s) || !semver.IsValid("v"+s) {
		return &Error{Kind: KindInvalidSemVerFormat, Got: s, Expected: "MAJOR.MINOR.PATCH"}
	}
	return nil
}

// MajorVersion returns the major component of a version ("0" for "0.1.0"),
// or "" when s is not a valid version.
func MajorVersion(s string) string {
	m := semver.Major("v" + s)
	if m == "" {
		return ""
	}
	return m[1:]
}

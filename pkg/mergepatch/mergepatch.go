// Package mergepatch applies JSON merge patches to decoded JSON values.
//
// Values are the shapes produced by Decode: map[string]any, []any,
// json.Number, string, bool and nil. Objects are merged key by key, a null
// patch member deletes the key, and anything else replaces the target.
package mergepatch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"
)

// ErrInvalidJSON is returned by Decode when the input is not one JSON value.
var ErrInvalidJSON = errors.New("mergepatch: invalid json")

// Merge applies patch to existing and returns the result. Objects in
// existing are updated in place.
func Merge(existing, patch any) any { // A
	target, ok := existing.(map[string]any)
	if !ok {
		return patch
	}
	members, ok := patch.(map[string]any)
	if !ok {
		return patch
	}

	for key, value := range members {
		if value == nil {
			delete(target, key)
			continue
		}
		target[key] = Merge(target[key], value)
	}
	return target
}

// Decode parses exactly one JSON value. Numbers are kept as json.Number so
// they re-encode with their original digits. Input that is not UTF-8,
// escapes of unpaired surrogates and numbers beyond float64 range are
// rejected instead of being silently rewritten.
func Decode(data []byte) (any, error) { // A
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: not utf-8", ErrInvalidJSON)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data", ErrInvalidJSON)
	}
	if err := checkSurrogates(data); err != nil {
		return nil, err
	}
	if err := checkNumbers(v); err != nil {
		return nil, err
	}
	return v, nil
}

// checkSurrogates walks the \u escapes of already valid JSON text.
func checkSurrogates(data []byte) error {
	for i := 0; i < len(data); i++ {
		if data[i] != '\\' {
			continue
		}
		i++
		if data[i] != 'u' {
			continue
		}
		r := escapedUnit(data[i+1 : i+5])
		i += 4
		switch {
		case r >= 0xDC00 && r <= 0xDFFF:
			return fmt.Errorf("%w: unpaired surrogate \\u%04x", ErrInvalidJSON, r)
		case r >= 0xD800 && r <= 0xDBFF:
			if i+6 >= len(data) || data[i+1] != '\\' || data[i+2] != 'u' {
				return fmt.Errorf("%w: unpaired surrogate \\u%04x", ErrInvalidJSON, r)
			}
			low := escapedUnit(data[i+3 : i+7])
			if low < 0xDC00 || low > 0xDFFF {
				return fmt.Errorf("%w: unpaired surrogate \\u%04x", ErrInvalidJSON, r)
			}
			i += 6
		}
	}
	return nil
}

func escapedUnit(hex []byte) uint64 {
	r, _ := strconv.ParseUint(string(hex), 16, 16)
	return r
}

func checkNumbers(v any) error {
	switch v := v.(type) {
	case json.Number:
		if _, err := v.Float64(); err != nil {
			return fmt.Errorf("%w: number %s out of range", ErrInvalidJSON, v)
		}
	case []any:
		for _, item := range v {
			if err := checkNumbers(item); err != nil {
				return err
			}
		}
	case map[string]any:
		for _, item := range v {
			if err := checkNumbers(item); err != nil {
				return err
			}
		}
	}
	return nil
}

// DecodeOrNull is Decode with a null fallback for unparseable input.
func DecodeOrNull(data []byte) any { // A
	v, err := Decode(data)
	if err != nil {
		return nil
	}
	return v
}

// Encode serializes v compactly. Object keys come out sorted and HTML
// characters are not escaped.
func Encode(v any) ([]byte, error) { // A
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("mergepatch: encode: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Apply decodes the stored document (null when unreadable), merges the
// patch text into it and returns the encoded result.
func Apply(stored []byte, patch []byte) ([]byte, error) { // A
	p, err := Decode(patch)
	if err != nil {
		return nil, err
	}
	return Encode(Merge(DecodeOrNull(stored), p))
}

// Package sanitizer rewrites untrusted text so it can be embedded in a single
// log line or a JSON string, using composable filter and transform flags.
package sanitizer

import (
	"encoding/hex"
	"strconv"
	"unicode"
	"unicode/utf8"
)

// Filter flags for rune matching
const (
	FilterNonPrintable uint64 = 1 << iota // Runes not printable per strconv.IsPrint
	FilterControl                         // unicode.IsControl
	FilterLineBreak                       // '\n', '\r', U+2028, U+2029
)

// Transform flags
const (
	TransformStrip      uint64 = 1 << iota // Drop the rune
	TransformHexEncode                     // Emit the rune's UTF-8 bytes as "<xxyy>"
	TransformJSONEscape                    // Emit a JSON escape sequence
)

// PolicyPreset names a pre-configured rule set
type PolicyPreset string

const (
	PolicyRaw  PolicyPreset = "raw"  // Passthrough
	PolicyLine PolicyPreset = "line" // Keeps a record on exactly one line
	PolicyJSON PolicyPreset = "json" // Safe inside a JSON string literal
)

type rule struct {
	filter    uint64
	transform uint64
}

var policyRules = map[PolicyPreset][]rule{
	PolicyRaw:  {},
	PolicyLine: {{filter: FilterNonPrintable | FilterLineBreak, transform: TransformHexEncode}},
	PolicyJSON: {{filter: FilterControl, transform: TransformJSONEscape}},
}

// Sanitizer holds an ordered rule list. It is immutable once built and safe
// for concurrent use.
type Sanitizer struct {
	rules []rule
}

// New returns an empty (passthrough) sanitizer
func New() *Sanitizer {
	return &Sanitizer{}
}

// Rule returns a copy of s with an extra rule appended; earlier rules win
func (s *Sanitizer) Rule(filter, transform uint64) *Sanitizer {
	rules := make([]rule, len(s.rules), len(s.rules)+1)
	copy(rules, s.rules)
	return &Sanitizer{rules: append(rules, rule{filter: filter, transform: transform})}
}

// Policy returns a copy of s with the preset's rules appended
func (s *Sanitizer) Policy(preset PolicyPreset) *Sanitizer {
	out := &Sanitizer{rules: append([]rule(nil), s.rules...)}
	out.rules = append(out.rules, policyRules[preset]...)
	return out
}

// Sanitize returns data with all rules applied
func (s *Sanitizer) Sanitize(data string) string {
	if s.clean(data) {
		return data
	}
	return string(s.Append(make([]byte, 0, len(data)+16), data))
}

// Append appends the sanitized form of data to dst
func (s *Sanitizer) Append(dst []byte, data string) []byte {
	for _, r := range data {
		matched := false
		for _, rl := range s.rules {
			if matches(r, rl.filter) {
				dst = transform(dst, r, rl.transform)
				matched = true
				break
			}
		}
		if !matched {
			dst = utf8.AppendRune(dst, r)
		}
	}
	return dst
}

// clean reports whether no rule matches any rune of data
func (s *Sanitizer) clean(data string) bool {
	if len(s.rules) == 0 {
		return true
	}
	for _, r := range data {
		for _, rl := range s.rules {
			if matches(r, rl.filter) {
				return false
			}
		}
	}
	return true
}

func matches(r rune, mask uint64) bool {
	if mask&FilterNonPrintable != 0 && !strconv.IsPrint(r) {
		return true
	}
	if mask&FilterControl != 0 && unicode.IsControl(r) {
		return true
	}
	if mask&FilterLineBreak != 0 {
		switch r {
		case '\n', '\r', '\u2028', '\u2029':
			return true
		}
	}
	return false
}

func transform(dst []byte, r rune, mask uint64) []byte {
	switch {
	case mask&TransformStrip != 0:
		return dst

	case mask&TransformHexEncode != 0:
		var rb [utf8.UTFMax]byte
		n := utf8.EncodeRune(rb[:], r)
		dst = append(dst, '<')
		dst = hex.AppendEncode(dst, rb[:n])
		return append(dst, '>')

	case mask&TransformJSONEscape != 0:
		return appendJSONRune(dst, r)
	}
	return utf8.AppendRune(dst, r)
}

const hexDigits = "0123456789abcdef"

func appendJSONRune(dst []byte, r rune) []byte {
	switch r {
	case '\n':
		return append(dst, '\\', 'n')
	case '\r':
		return append(dst, '\\', 'r')
	case '\t':
		return append(dst, '\\', 't')
	case '\b':
		return append(dst, '\\', 'b')
	case '\f':
		return append(dst, '\\', 'f')
	case '"':
		return append(dst, '\\', '"')
	case '\\':
		return append(dst, '\\', '\\')
	}
	if r < 0x20 || r == 0x7f || (r >= 0x80 && r < 0xa0) || r == '\u2028' || r == '\u2029' {
		return append(dst, '\\', 'u',
			hexDigits[(r>>12)&0xf], hexDigits[(r>>8)&0xf], hexDigits[(r>>4)&0xf], hexDigits[r&0xf])
	}
	return utf8.AppendRune(dst, r)
}

// AppendJSONString appends s as a quoted JSON string literal to dst
func AppendJSONString(dst []byte, s string) []byte {
	dst = append(dst, '"')
	for i := 0; i < len(s); {
		c := s[i]
		if c >= ' ' && c != '"' && c != '\\' && c < utf8.RuneSelf {
			start := i
			for i < len(s) && s[i] >= ' ' && s[i] != '"' && s[i] != '\\' && s[i] < utf8.RuneSelf {
				i++
			}
			dst = append(dst, s[start:i]...)
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			dst = append(dst, `\ufffd`...)
		} else {
			dst = appendJSONRune(dst, r)
		}
		i += size
	}
	return append(dst, '"')
}

// Package aiparse extracts structured data from untrusted model output.
// Model text is treated as hostile input: it may wrap JSON in code fences,
// surround it with prose, or not contain JSON at all. Every entry point
// degrades to a caller-supplied deterministic fallback instead of failing.
package aiparse

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	fenceRe  = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
	objectRe = regexp.MustCompile(`(?s)\{.*\}`)
	arrayRe  = regexp.MustCompile(`(?s)\[.*\]`)
)

// StripFences returns the contents of the first code fence, or the input
// unchanged when no fence is present.
func StripFences(text string) string {
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return strings.TrimSpace(text)
}

// ExtractObject finds the first JSON object in text. It tries the fenced or
// whole text first, then falls back to a regex scan for a brace-delimited
// region.
func ExtractObject(text string) (gjson.Result, bool) {
	return extract(text, objectRe, gjson.JSON)
}

// ExtractArray finds the first JSON array in text.
func ExtractArray(text string) (gjson.Result, bool) {
	stripped := StripFences(text)
	if gjson.Valid(stripped) {
		if r := gjson.Parse(stripped); r.IsArray() {
			return r, true
		}
	}
	if m := arrayRe.FindString(stripped); m != "" && gjson.Valid(m) {
		if r := gjson.Parse(m); r.IsArray() {
			return r, true
		}
	}
	return gjson.Result{}, false
}

func extract(text string, re *regexp.Regexp, _ gjson.Type) (gjson.Result, bool) {
	stripped := StripFences(text)
	if gjson.Valid(stripped) {
		if r := gjson.Parse(stripped); r.IsObject() {
			return r, true
		}
	}
	if m := re.FindString(stripped); m != "" && gjson.Valid(m) {
		if r := gjson.Parse(m); r.IsObject() {
			return r, true
		}
	}
	return gjson.Result{}, false
}

// ParseWithFallback unmarshals the first JSON object in text into T. When no
// parseable object exists, it returns fallback. The bool reports whether the
// model output was used.
func ParseWithFallback[T any](text string, fallback T) (T, bool) {
	raw, ok := ExtractObject(text)
	if !ok {
		return fallback, false
	}
	var out T
	if err := json.Unmarshal([]byte(raw.Raw), &out); err != nil {
		return fallback, false
	}
	return out, true
}

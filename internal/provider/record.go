package provider

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// Record is a single provider payload. The provider's schema is loose, so
// fields are read by path and every read has an explicit fallback.
type Record struct {
	raw []byte
}

// NewRecord wraps raw JSON. It does not validate it.
func NewRecord(raw []byte) Record {
	return Record{raw: raw}
}

// Raw returns the payload as received.
func (r Record) Raw() json.RawMessage {
	return json.RawMessage(r.raw)
}

// IsObject reports whether the payload is a well-formed JSON object.
func (r Record) IsObject() bool {
	return len(r.raw) > 0 && gjson.ValidBytes(r.raw) && gjson.ParseBytes(r.raw).IsObject()
}

// Get returns the value at a gjson path.
func (r Record) Get(path string) gjson.Result {
	return gjson.GetBytes(r.raw, path)
}

// First returns the value at the first path that holds something other than
// null or an empty string.
func (r Record) First(paths ...string) gjson.Result {
	for _, p := range paths {
		v := r.Get(p)
		if !v.Exists() || v.Type == gjson.Null {
			continue
		}
		if v.Type == gjson.String && strings.TrimSpace(v.Str) == "" {
			continue
		}
		return v
	}
	return gjson.Result{}
}

// String returns the trimmed text at the first populated path, or "".
// Numbers are returned in their JSON form, so {"id": 12345} yields "12345".
func (r Record) String(paths ...string) string {
	return strings.TrimSpace(r.First(paths...).String())
}

// Object returns the nested object at path.
func (r Record) Object(path string) (Record, bool) {
	v := r.Get(path)
	if !v.IsObject() {
		return Record{}, false
	}
	return Record{raw: []byte(v.Raw)}, true
}

// Strings returns the non-empty string members of the array at path. A
// comma-separated string is split, and objects contribute their "name".
func (r Record) Strings(path string) []string {
	v := r.Get(path)
	var out []string
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	switch {
	case v.IsArray():
		v.ForEach(func(_, item gjson.Result) bool {
			if item.IsObject() {
				add(item.Get("name").String())
			} else {
				add(item.String())
			}
			return true
		})
	case v.Type == gjson.String:
		for _, part := range strings.Split(v.Str, ",") {
			add(part)
		}
	}
	return out
}

package heuristics

import (
	"sort"
	"strings"
)

// TestData maps semantic field-key fragments (e.g. "email", "zip",
// "firstname") to synthetic values used to fill forms.
type TestData map[string]string

// DefaultTestData returns the built-in autofill dictionary.
func DefaultTestData() TestData {
	return TestData{
		"email":     "qa.tester@example.com",
		"firstname": "Taylor",
		"lastname":  "Morgan",
		"fullname":  "Taylor Morgan",
		"phone":     "5551234567",
		"address":   "123 Market Street",
		"city":      "San Francisco",
		"state":     "CA",
		"zip":       "94105",
		"dob":       "01/15/1990",
		"age":       "34",
		"height":    "68",
		"weight":    "160",
		"company":   "Acme Testing",
		"password":  "Testing123!",
	}
}

// Merge returns a copy of the dictionary with caller overrides applied on
// top. Override keys are normalized the same way lookups are.
func (d TestData) Merge(overrides map[string]string) TestData {
	merged := make(TestData, len(d)+len(overrides))
	for k, v := range d {
		merged[normalizeKey(k)] = v
	}
	for k, v := range overrides {
		merged[normalizeKey(k)] = v
	}
	return merged
}

// Lookup resolves a value for a field. The identifier is the concatenation
// of the field's name, id, and placeholder. Dictionary keys match by
// substring containment in either direction; failing that, the input type
// and common keywords are used to infer a value.
func (d TestData) Lookup(identifier, inputType string) (string, bool) {
	ident := normalizeKey(identifier)

	if ident != "" {
		// Longer keys first so "firstname" beats "name".
		keys := make([]string, 0, len(d))
		for k := range d {
			keys = append(keys, normalizeKey(k))
		}
		sort.Slice(keys, func(i, j int) bool {
			if len(keys[i]) != len(keys[j]) {
				return len(keys[i]) > len(keys[j])
			}
			return keys[i] < keys[j]
		})

		for _, key := range keys {
			if strings.Contains(ident, key) || strings.Contains(key, ident) {
				if v, ok := d.get(key); ok {
					return v, true
				}
			}
		}
	}

	return d.infer(ident, strings.ToLower(inputType))
}

// infer falls back to type- and keyword-based matching.
func (d TestData) infer(ident, inputType string) (string, bool) {
	has := func(kw string) bool { return strings.Contains(ident, kw) }

	switch {
	case inputType == "email" || has("email"):
		return d.get("email")
	case inputType == "tel" || has("phone") || has("mobile"):
		return d.get("phone")
	case inputType == "password":
		return d.get("password")
	case inputType == "date" || has("birth") || has("dob"):
		return d.get("dob")
	case has("zip") || has("postal"):
		return d.get("zip")
	case has("first"):
		return d.get("firstname")
	case has("last") || has("surname"):
		return d.get("lastname")
	case has("city"):
		return d.get("city")
	case has("state"):
		return d.get("state")
	case has("address") || has("street"):
		return d.get("address")
	case has("age"):
		return d.get("age")
	case has("height"):
		return d.get("height")
	case has("weight"):
		return d.get("weight")
	case has("company") || has("organization"):
		return d.get("company")
	case has("name"):
		return d.get("fullname")
	default:
		return "", false
	}
}

func (d TestData) get(key string) (string, bool) {
	key = normalizeKey(key)
	for k, v := range d {
		if normalizeKey(k) == key {
			return v, true
		}
	}
	return "", false
}

// normalizeKey lowercases and strips separators so "first_name",
// "first-name", and "firstName" all collapse to "firstname".
func normalizeKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

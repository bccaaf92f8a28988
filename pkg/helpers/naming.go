package helpers

import (
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"
)

// NameOf derives the template name of a custom helper from its Go type: the
// type name without a trailing "Helper", first letter lowercased. CustomHelper
// and *CustomHelper both become "custom". Unnamed types return "".
func NameOf(helper any) string {
	t := reflect.TypeOf(helper)
	if t == nil {
		return ""
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	name := t.Name()
	if trimmed := strings.TrimSuffix(name, "Helper"); trimmed != "" {
		name = trimmed
	}
	if name == "" {
		return ""
	}

	first, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToLower(first)) + name[size:]
}

package schema

import (
	"sort"
	"strings"
)

// disallowedSchemaKeys are JSON-schema keywords the Gemini response-schema
// dialect rejects inside nested nodes. They are stripped rather than failing
// the call; the loss is reported to the caller through GeminiDirective.Relaxed.
var disallowedSchemaKeys = map[string]struct{}{
	"additionalproperties": {},
	"minimum":              {},
	"maximum":              {},
	"exclusiveminimum":     {},
	"exclusivemaximum":     {},
}

// relaxSchema recursively drops unsupported keywords from the schema in place
// and returns the sorted set of keyword names it removed.
func relaxSchema(schema map[string]any) []string {
	removed := map[string]struct{}{}
	scrubUnsupportedKeywords(schema, removed)

	if len(removed) == 0 {
		return nil
	}
	keys := make([]string, 0, len(removed))
	for key := range removed {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// scrubUnsupportedKeywords deletes banned keys from every map in the tree,
// matching on key name alone. A user property that is itself named minimum or
// maximum is removed along with the keyword it shadows.
func scrubUnsupportedKeywords(node any, removed map[string]struct{}) {
	switch typed := node.(type) {
	case map[string]any:
		for key, val := range typed {
			if _, banned := disallowedSchemaKeys[strings.ToLower(key)]; banned {
				delete(typed, key)
				removed[key] = struct{}{}
				continue
			}
			scrubUnsupportedKeywords(val, removed)
		}
	case []any:
		for _, item := range typed {
			scrubUnsupportedKeywords(item, removed)
		}
	}
}

package server

import "regexp"

// Known field names carrying the source page ID, in priority order.
var idFields = []string{"pageId", "page_id", "sourceId", "source_id", "id"}

// Containers worth descending into when no direct field matches.
var nestedFields = []string{"data", "page", "payload", "record"}

var idShapeRe = regexp.MustCompile(`^[0-9a-fA-F]{8}-?[0-9a-fA-F]{4}-?[0-9a-fA-F]{4}-?[0-9a-fA-F]{4}-?[0-9a-fA-F]{12}$`)

// ResolvePageID finds the source page ID in a webhook body: a direct
// field first, then the same fields one level down, then a heuristic scan
// for any ID-shaped string value.
func ResolvePageID(body map[string]any) (string, bool) {
	if id, ok := directField(body); ok {
		return id, true
	}

	for _, key := range nestedFields {
		if nested, ok := body[key].(map[string]any); ok {
			if id, ok := directField(nested); ok {
				return id, true
			}
		}
	}

	return scanForIDShape(body)
}

func directField(m map[string]any) (string, bool) {
	for _, key := range idFields {
		if s, ok := m[key].(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

// scanForIDShape walks every string value looking for something shaped
// like a page ID (UUID, with or without dashes).
func scanForIDShape(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		if idShapeRe.MatchString(val) {
			return val, true
		}
	case map[string]any:
		for _, child := range val {
			if id, ok := scanForIDShape(child); ok {
				return id, true
			}
		}
	case []any:
		for _, child := range val {
			if id, ok := scanForIDShape(child); ok {
				return id, true
			}
		}
	}
	return "", false
}

// Package entity reads classifier entities by type.
package entity

// Extract returns the ordered values recorded for entityType. An absent key and
// an empty list are both reported as not found.
func Extract(entityType string, entities map[string][]string) ([]string, bool) {
	values, ok := entities[entityType]
	if !ok || len(values) == 0 {
		return nil, false
	}
	out := make([]string, len(values))
	copy(out, values)
	return out, true
}

// First returns the first value recorded for entityType.
func First(entityType string, entities map[string][]string) (string, bool) {
	values, ok := Extract(entityType, entities)
	if !ok {
		return "", false
	}
	return values[0], true
}

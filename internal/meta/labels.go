package meta

import "strings"

// Known abbreviations kept uppercase in generated labels.
var knownAbbreviations = map[string]string{
	"id": "ID", "url": "URL", "csv": "CSV", "json": "JSON",
	"api": "API", "ein": "EIN", "ssn": "SSN",
}

// FieldLabel converts a field name to a human-readable label, splitting
// on underscores and camelCase boundaries and title-casing each word:
// "due_date" and "dueDate" both become "Due Date".
func FieldLabel(name string) string {
	if name == "" {
		return ""
	}
	words := splitWords(name)
	for i, w := range words {
		lower := strings.ToLower(w)
		if abbr, ok := knownAbbreviations[lower]; ok {
			words[i] = abbr
			continue
		}
		words[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(words, " ")
}

// splitWords breaks a snake_case or camelCase identifier into words.
func splitWords(name string) []string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = nil
		}
	}
	for _, r := range name {
		switch {
		case r == '_' || r == ' ' || r == '-':
			flush()
		case r >= 'A' && r <= 'Z':
			flush()
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
	}
	flush()
	if len(words) == 0 {
		return []string{name}
	}
	return words
}

// Plural returns the URL path segment for an entity name. The backend's
// routes use naive pluralization ("dealer" -> "dealers").
func Plural(entity string) string {
	if entity == "" || strings.HasSuffix(entity, "s") {
		return entity
	}
	return entity + "s"
}

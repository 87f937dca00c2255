package judge

import (
	"fmt"
	"strings"
)

// languageIDs maps a language name to the judge service's numeric
// identifier. The table is closed; extend it explicitly when the service
// gains a language, never infer an identifier.
var languageIDs = map[string]int{
	"c":          50,
	"c++":        54,
	"java":       62,
	"javascript": 63,
	"python":     71,
}

// LanguageID resolves a language name to the judge service identifier.
func LanguageID(name string) (int, error) {
	id, ok := languageIDs[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownLanguage, name)
	}
	return id, nil
}

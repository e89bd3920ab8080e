package generation

import (
	"encoding/json"
	"fmt"
	"strings"

	"draftguard/internal/types"
)

// ParseDocument decodes a raw completion into a GeneratedDocument.
// Models wrap JSON in markdown code fences more often than not, so fences
// are stripped first. A decode failure is a schema violation, not a
// transport failure; the caller turns it into a fatal finding.
func ParseDocument(raw string) (types.GeneratedDocument, error) {
	cleaned := StripCodeFences(raw)

	var doc types.GeneratedDocument
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return types.GeneratedDocument{}, fmt.Errorf("document does not parse as JSON: %w", err)
	}
	return doc, nil
}

// StripCodeFences removes a surrounding ```json ... ``` block if present.
func StripCodeFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

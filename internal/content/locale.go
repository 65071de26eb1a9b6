package content

import (
	"errors"
	"strings"

	"golang.org/x/text/language"
)

// NormalizeLocale canonicalizes a BCP 47 tag ("en_us" → "en-US"). Tags that
// are well-formed but use subtags unknown to the registry are kept verbatim
// so private or future locales still work. The result never shares memory
// with raw, which may point into a reused request buffer.
func NormalizeLocale(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", errors.New("locale is empty")
	}
	tag, err := language.Parse(trimmed)
	if err == nil {
		return strings.Clone(tag.String()), nil
	}
	var unknown language.ValueError
	if errors.As(err, &unknown) {
		return strings.Clone(trimmed), nil
	}
	return "", err
}

package content

import (
	"strings"
	"unicode/utf8"
)

const minQueryLength = 2

type storeFields struct {
	key    string
	locale string
	value  string
	tags   []string
}

func validateStoreInput(in StoreInput) (storeFields, error) {
	verr := &ValidationError{}
	out := storeFields{}

	out.key = requiredField(verr, "key", in.Key, true)
	rawLocale := requiredField(verr, "locale", in.Locale, true)
	out.value = requiredField(verr, "value", in.Value, false)

	if rawLocale != "" {
		locale, err := NormalizeLocale(rawLocale)
		if err != nil {
			verr.Add("locale", "is not a valid language tag")
		}
		out.locale = locale
	}

	tags := make([]string, 0, len(in.Tags))
	seen := make(map[string]struct{}, len(in.Tags))
	for _, tag := range in.Tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			verr.Add("tags", "must not contain empty values")
			break
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	out.tags = tags

	return out, verr.Err()
}

// requiredField reports absent and blank values separately. Blank means empty
// after trimming; trim controls whether the returned value is trimmed too.
func requiredField(verr *ValidationError, name string, value *string, trim bool) string {
	if value == nil {
		verr.Add(name, "is required")
		return ""
	}
	if strings.TrimSpace(*value) == "" {
		verr.Add(name, "must not be empty")
		return ""
	}
	if trim {
		return strings.TrimSpace(*value)
	}
	return *value
}

func validateSearchFilter(in SearchFilter) (SearchFilter, error) {
	out := SearchFilter{
		Q:      strings.TrimSpace(in.Q),
		Tag:    strings.TrimSpace(in.Tag),
		Locale: strings.TrimSpace(in.Locale),
	}
	if out.Q == "" && out.Tag == "" && out.Locale == "" {
		return SearchFilter{}, newValidationError("filters", "at least one of q, tag or locale is required")
	}

	verr := &ValidationError{}
	if out.Q != "" && utf8.RuneCountInString(out.Q) < minQueryLength {
		verr.Add("q", "must be at least 2 characters")
	}
	if out.Locale != "" {
		locale, err := NormalizeLocale(out.Locale)
		if err != nil {
			verr.Add("locale", "is not a valid language tag")
		}
		out.Locale = locale
	}
	return out, verr.Err()
}

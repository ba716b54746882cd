package internationalizedfield

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

type languageMap = map[language.Tag]string

// InternationalizedField models a JSON member that is used to represent [Human-Readable Client Metadata].
//
// It references human-readable values and may be represented in multiple languages and scripts.
//
// To specify the languages and scripts, BCP 47 [RFC5646] language tags are added to client metadata member names,
// delimited by a "#" character.
//
// For example, a client could represent its name in English as
//
//	"client_name#en": "My Client"
//
// and its name in Japanese as
//
//	"client_name#ja-Jpan-JP": "クライアント名"
//
// within the same registration request. The untagged member is stored under [language.Und].
//
// [Human-Readable Client Metadata]: https://www.rfc-editor.org/rfc/rfc7591#section-2.2
type InternationalizedField struct {
	FieldName string
	Items     languageMap
}

func New(fieldName string) InternationalizedField {
	return InternationalizedField{
		FieldName: fieldName,
		Items:     make(languageMap),
	}
}

// Matches reports whether the JSON member name key belongs to this field,
// either untagged or with a "#" language tag suffix.
func (f InternationalizedField) Matches(key string) bool {
	return key == f.FieldName || strings.HasPrefix(key, f.FieldName+"#")
}

// Set stores value under the language tag carried by key.
// key must satisfy Matches.
func (f *InternationalizedField) Set(key, value string) error {
	if f.Items == nil {
		f.Items = make(languageMap)
	}
	if key == f.FieldName {
		f.Items[language.Und] = value
		return nil
	}
	_, rawTag, ok := strings.Cut(key, "#")
	if !ok || !f.Matches(key) {
		return fmt.Errorf("invalid %s member: %q", f.FieldName, key)
	}
	tag, err := language.Parse(rawTag)
	if err != nil {
		return fmt.Errorf("failed to parse language tag for %s: %w", f.FieldName, err)
	}
	f.Items[tag] = value
	return nil
}

// Default returns the untagged value.
func (f InternationalizedField) Default() string {
	return f.Items[language.Und]
}

// IsEmpty reports whether no value is set in any language.
func (f InternationalizedField) IsEmpty() bool {
	return len(f.Items) == 0
}

// AppendTo writes every value into dst, using the tagged member name for
// values that are not untagged.
func (f InternationalizedField) AppendTo(dst map[string]any) {
	for tag, value := range f.Items {
		if tag == language.Und {
			dst[f.FieldName] = value
			continue
		}
		dst[fmt.Sprintf("%s#%s", f.FieldName, tag)] = value
	}
}

// Clone returns a copy that does not share the underlying map.
func (f InternationalizedField) Clone() InternationalizedField {
	c := New(f.FieldName)
	for tag, value := range f.Items {
		c.Items[tag] = value
	}
	return c
}

package domain

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/service-aggregator/internal/pkg/dedupe"
)

// Языки, для которых распознаются полные названия (английские и самоназвания)
var namedLanguages = []language.Tag{
	language.Arabic,
	language.English,
	language.French,
	language.Spanish,
	language.Portuguese,
	language.German,
	language.Italian,
	language.Russian,
	language.Ukrainian,
	language.Turkish,
	language.Persian,
	language.Urdu,
	language.Hindi,
	language.Bengali,
	language.Chinese,
	language.Swahili,
	language.Amharic,
	language.Hebrew,
	language.Polish,
	language.Romanian,
	language.Greek,
	language.Armenian,
	language.Georgian,
	language.Make("so"),
	language.Make("ps"),
	language.Make("ku"),
	language.Make("ti"),
	language.Make("ha"),
}

var languageNames = buildLanguageNames()

func buildLanguageNames() map[string]string {
	names := make(map[string]string, len(namedLanguages)*2)
	english := display.English.Languages()
	for _, tag := range namedLanguages {
		base, _ := tag.Base()
		code := base.String()
		if n := strings.ToLower(english.Name(tag)); n != "" {
			names[n] = code
		}
		if n := strings.ToLower(display.Self.Name(tag)); n != "" {
			names[n] = code
		}
	}
	return names
}

// NormalizeLanguage приводит код или название языка к ISO-639-1.
// Возвращает false, если язык не распознан.
func NormalizeLanguage(raw string) (string, bool) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return "", false
	}

	if code, ok := languageNames[value]; ok {
		return code, true
	}

	tag, err := language.Parse(strings.ReplaceAll(value, "_", "-"))
	if err != nil {
		return "", false
	}
	base, conf := tag.Base()
	if conf == language.No {
		return "", false
	}
	code := base.String()
	if len(code) != 2 {
		return "", false
	}
	return code, true
}

// NormalizeLanguages нормализует список языков: коды ISO-639-1 без дубликатов, нераспознанные отбрасываются
func NormalizeLanguages(raw []string) []string {
	codes := make([]string, 0, len(raw))
	for _, item := range raw {
		// "English; Arabic" и "en,ar" встречаются в тегах OSM и лентах
		for _, part := range strings.FieldsFunc(item, func(r rune) bool { return r == ';' || r == ',' || r == '/' }) {
			if code, ok := NormalizeLanguage(part); ok {
				codes = append(codes, code)
			}
		}
	}
	return dedupe.Strings(codes)
}

// IsLanguageCode - строка уже нормализованный код ISO-639-1
func IsLanguageCode(code string) bool {
	normalized, ok := NormalizeLanguage(code)
	return ok && normalized == code
}

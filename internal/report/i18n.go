package report

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// Language is a locale code matching a file under locales/.
type Language string

const (
	LangEnglish Language = "en"
	LangTurkish Language = "tr"
)

// ErrUnsupportedLanguage is returned when no locale file exists for a code.
var ErrUnsupportedLanguage = errors.New("report: unsupported language")

//go:embed locales/*.json
var localeFS embed.FS

var locales = loadLocales()

func loadLocales() map[Language]map[string]string {
	files, err := fs.Glob(localeFS, "locales/*.json")
	if err != nil {
		panic(fmt.Sprintf("report: list locales: %v", err))
	}
	out := make(map[Language]map[string]string, len(files))
	for _, file := range files {
		data, err := localeFS.ReadFile(file)
		if err != nil {
			panic(fmt.Sprintf("report: load locale %s: %v", file, err))
		}
		var parsed map[string]string
		if err := json.Unmarshal(data, &parsed); err != nil {
			panic(fmt.Sprintf("report: parse locale %s: %v", file, err))
		}
		out[Language(strings.TrimSuffix(path.Base(file), ".json"))] = parsed
	}
	return out
}

// Languages lists the embedded locale codes in sorted order.
func Languages() []Language {
	langs := make([]Language, 0, len(locales))
	for l := range locales {
		langs = append(langs, l)
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i] < langs[j] })
	return langs
}

// Translator resolves localized strings for a specific language.
type Translator struct {
	lang Language
	data map[string]string
}

// NewTranslator builds a translator for lang, falling back to English.
func NewTranslator(lang Language) Translator {
	data, ok := locales[lang]
	if !ok {
		lang = LangEnglish
		data = locales[LangEnglish]
	}
	return Translator{lang: lang, data: data}
}

func (t Translator) Lang() Language {
	return t.lang
}

// T returns the localized string for key, the English one when the active
// locale lacks it, or the key itself.
func (t Translator) T(key string) string {
	if val, ok := t.data[key]; ok {
		return val
	}
	if t.lang != LangEnglish {
		if val, ok := locales[LangEnglish][key]; ok {
			return val
		}
	}
	return key
}

func (t Translator) Format(key string, args ...interface{}) string {
	return fmt.Sprintf(t.T(key), args...)
}

// ParseLanguage converts a flag or config value into a Language.
func ParseLanguage(lang string) (Language, error) {
	code := strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(code, "-_."); i >= 0 {
		code = code[:i]
	}
	if code == "" {
		return LangEnglish, nil
	}
	if _, ok := locales[Language(code)]; ok {
		return Language(code), nil
	}
	return LangEnglish, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
}

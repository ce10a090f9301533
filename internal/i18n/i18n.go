package i18n

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"path"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

type Lang string

const (
	EN Lang = "en"
	RU Lang = "ru"
)

// Langs is the supported set, in matcher preference order.
var Langs = []Lang{EN, RU}

//go:embed locales/*.yaml
var localeFS embed.FS

var (
	catalogs = mustLoadCatalogs()
	matcher  = language.NewMatcher([]language.Tag{language.English, language.Russian})
)

func mustLoadCatalogs() map[Lang]map[string]string {
	out := make(map[Lang]map[string]string, len(Langs))
	for _, l := range Langs {
		data, err := localeFS.ReadFile(path.Join("locales", string(l)+".yaml"))
		if err != nil {
			panic(fmt.Sprintf("i18n: missing catalog %s: %v", l, err))
		}
		m := map[string]string{}
		if err := yaml.Unmarshal(data, &m); err != nil {
			panic(fmt.Sprintf("i18n: catalog %s: %v", l, err))
		}
		out[l] = m
	}
	return out
}

// Match resolves any language tag to a supported language; unknown tags become EN.
func Match(tag string) Lang {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return EN
	}
	_, idx, conf := matcher.Match(language.Make(tag))
	if conf == language.No || idx < 0 || idx >= len(Langs) {
		return EN
	}
	return Langs[idx]
}

// Translator resolves keys for one language.
type Translator struct {
	lang Lang
}

func New(lang Lang) Translator {
	return Translator{lang: Match(string(lang))}
}

func (t Translator) Lang() Lang {
	return t.lang
}

// T returns the localized string, else fallback, else the key itself.
func (t Translator) T(key, fallback string) string {
	if s := catalogs[t.lang][key]; s != "" {
		return s
	}
	if fallback != "" {
		return fallback
	}
	return key
}

// F is T with "{name}" placeholders substituted from args (name, value, name, value...).
func (t Translator) F(key, fallback string, args ...any) string {
	s := t.T(key, fallback)
	if len(args) < 2 {
		return s
	}
	pairs := make([]string, 0, len(args))
	for i := 0; i+1 < len(args); i += 2 {
		pairs = append(pairs, "{"+fmt.Sprint(args[i])+"}", fmt.Sprint(args[i+1]))
	}
	return strings.NewReplacer(pairs...).Replace(s)
}

// Has reports whether key exists in the catalog for t's language.
func (t Translator) Has(key string) bool {
	_, ok := catalogs[t.lang][key]
	return ok
}

// HumanError turns a backend detail or transport error into a user-facing message.
func (t Translator) HumanError(detail string, fallback string) string {
	text := strings.ToLower(detail)
	switch {
	case strings.Contains(text, "401"):
		return t.T("common.session_expired", "Session expired. Please login again.")
	case strings.Contains(text, "already exists"):
		return t.T("common.already_exists", "This user already has an active key.")
	case strings.Contains(text, "connection"), strings.Contains(text, "timeout"):
		return t.T("common.connection_error", "Cannot reach backend/Xray service.")
	case strings.Contains(text, "permission denied"):
		return t.T("common.permission_denied", "Permission denied for this action.")
	case strings.Contains(text, "invalid"):
		return t.T("common.input_invalid", "Input is invalid. Please check the fields.")
	}
	if fallback != "" {
		return fallback
	}
	return t.T("common.operation_failed", "Operation failed. Try again.")
}

// transportFailure is an error raised before a panel response was decoded.
type transportFailure interface {
	error
	Transport() bool
}

// HumanErr is HumanError for an error value; nil yields the fallback path.
// Transport failures only ever map to the connection message: decoder text
// such as "invalid character" says nothing about the operator's input.
func (t Translator) HumanErr(err error, fallback string) string {
	if err == nil {
		return t.HumanError("", fallback)
	}
	var tf transportFailure
	if errors.As(err, &tf) && tf.Transport() {
		cause := errors.Unwrap(tf)
		if cause == nil {
			cause = tf
		}
		text := strings.ToLower(cause.Error())
		if errors.Is(cause, context.DeadlineExceeded) || strings.Contains(text, "connection") || strings.Contains(text, "timeout") {
			return t.T("common.connection_error", "Cannot reach backend/Xray service.")
		}
		return t.HumanError("", fallback)
	}
	return t.HumanError(err.Error(), fallback)
}

// Package i18n provides localized copy for survey error codes and progress
// messages on top of the x/text message catalog.
package i18n

import (
	"bytes"
	"strings"
	"text/template"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Code is a machine-readable error code (duplicated from errors package to avoid cycle).
type Code = string

// DefaultTag is the language used when a request carries no usable preference.
var DefaultTag = language.AmericanEnglish

var (
	builder = catalog.NewBuilder(catalog.Fallback(DefaultTag))
	matcher language.Matcher
	// supported is the matcher's tag list; Match indexes into it.
	supported []language.Tag
)

func init() {
	tags := make([]language.Tag, 0, len(locales))
	for tag, messages := range locales {
		for key, text := range messages {
			if err := builder.SetString(tag, key, text); err != nil {
				panic("register message " + key + ": " + err.Error())
			}
		}
		tags = append(tags, tag)
	}
	// The matcher treats its first tag as the default.
	supported = []language.Tag{DefaultTag}
	for _, tag := range tags {
		if tag != DefaultTag {
			supported = append(supported, tag)
		}
	}
	matcher = language.NewMatcher(supported)
}

// Match resolves an Accept-Language header to a supported tag.
func Match(acceptLanguage string) language.Tag {
	acceptLanguage = strings.TrimSpace(acceptLanguage)
	if acceptLanguage == "" {
		return DefaultTag
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return DefaultTag
	}
	_, index, _ := matcher.Match(tags...)
	return supported[index]
}

// Printer returns a message printer for tag backed by the survey catalog.
func Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag, message.Catalog(builder))
}

// Format renders the message for code with metadata substituted through
// text/template. Unknown codes render as the code itself.
func Format(tag language.Tag, code Code, metadata map[string]string) string {
	key := errorKey(code)
	printer := Printer(tag)
	text := printer.Sprintf(key)
	if text == key {
		return code
	}
	if !strings.Contains(text, "{{") {
		return text
	}
	if metadata == nil {
		metadata = map[string]string{}
	}
	tmpl, err := template.New("msg").Option("missingkey=zero").Parse(text)
	if err != nil {
		return text
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, metadata); err != nil {
		return text
	}
	return buf.String()
}

func errorKey(code Code) string {
	return "error." + code
}

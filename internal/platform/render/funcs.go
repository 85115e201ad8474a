package render

import (
	"html/template"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/georgemunganga/bijoux-shop/internal/modules/pricing"
)

var printer = message.NewPrinter(language.French)

// Price formats an amount in euros the French way, e.g. "1 234,50 €".
func Price(v float64) string {
	return printer.Sprintf("%.2f €", pricing.Round2(v))
}

// Funcs is the template function map shared by every page.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"price": Price,
		"date": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02/01/2006")
		},
		"datetimeLocal": func(t *time.Time) string {
			if t == nil {
				return ""
			}
			return t.Format("2006-01-02T15:04")
		},
		"add": func(a, b int) int { return a + b },
		"pageURL": func(q url.Values, page int) string {
			next := url.Values{}
			for k, vs := range q {
				next[k] = append([]string(nil), vs...)
			}
			next.Set("page", strconv.Itoa(page))
			return "?" + next.Encode()
		},
		// sanitized marks HTML that went through the bluemonday policy on save.
		"sanitized": func(s string) template.HTML { return template.HTML(s) },
		"selected": func(a, b string) template.HTMLAttr {
			if a == b {
				return "selected"
			}
			return ""
		},
	}
}

package marketing

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

const emailLayout = `<!DOCTYPE html>
<html lang="fr">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Subject}}</title>
</head>
<body style="margin:0;padding:0;background:#f6f1eb;font-family:Georgia,serif;color:#2b2118;">
<table role="presentation" width="100%" cellpadding="0" cellspacing="0">
<tr><td align="center" style="padding:24px 12px;">
<table role="presentation" width="600" cellpadding="0" cellspacing="0" style="background:#ffffff;max-width:600px;">
<tr><td style="padding:24px 32px;border-bottom:1px solid #e8dccb;text-align:center;">
<a href="{{.BaseURL}}/" style="font-size:26px;letter-spacing:3px;color:#8a6d3b;text-decoration:none;">{{.Shop}}</a>
</td></tr>
<tr><td class="content" style="padding:32px;font-size:16px;line-height:1.6;">
{{.Body}}
</td></tr>
<tr><td style="padding:16px 32px;font-size:12px;color:#8c7f72;text-align:center;border-top:1px solid #e8dccb;">
Vous recevez cet email car vous êtes inscrit(e) à la newsletter {{.Shop}}.<br>
<a href="{{.UnsubscribeURL}}" style="color:#8c7f72;">Se désinscrire</a>
</td></tr>
</table>
</td></tr>
</table>
</body>
</html>
`

// EmailRenderer turns a campaign into the HTML sent to one subscriber.
type EmailRenderer struct {
	md      goldmark.Markdown
	policy  *bluemonday.Policy
	layout  *template.Template
	shop    string
	baseURL string
}

// NewEmailRenderer builds a renderer. baseURL is the public site root used
// for the logo link and unsubscribe links.
func NewEmailRenderer(shop, baseURL string) *EmailRenderer {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("style").OnElements("p", "span", "div", "img", "a", "h1", "h2", "h3")
	return &EmailRenderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
		),
		policy:  policy,
		layout:  template.Must(template.New("email").Parse(emailLayout)),
		shop:    shop,
		baseURL: baseURL,
	}
}

// Body converts Markdown to sanitised HTML.
func (r *EmailRenderer) Body(markdown string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return template.HTML(r.policy.SanitizeBytes(buf.Bytes())), nil
}

// UnsubscribeURL is the link placed in every email for token.
func (r *EmailRenderer) UnsubscribeURL(token string) string {
	return r.baseURL + "/newsletter/desinscription?token=" + url.QueryEscape(token)
}

// Render produces the complete message for sub.
func (r *EmailRenderer) Render(c *Campaign, sub *Subscriber) (*Message, error) {
	body, err := r.Body(c.BodyMarkdown)
	if err != nil {
		return nil, err
	}
	unsubscribe := r.UnsubscribeURL(sub.Token)
	var buf bytes.Buffer
	err = r.layout.Execute(&buf, map[string]interface{}{
		"Subject":        c.Subject,
		"Shop":           r.shop,
		"BaseURL":        r.baseURL,
		"Body":           body,
		"UnsubscribeURL": unsubscribe,
	})
	if err != nil {
		return nil, fmt.Errorf("execute email layout: %w", err)
	}
	return &Message{To: sub.Email, Subject: c.Subject, HTML: buf.String(), UnsubscribeURL: unsubscribe}, nil
}

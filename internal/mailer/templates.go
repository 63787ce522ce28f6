// Package mailer builds the simulated emails appended to the outbox.
package mailer

import (
	"bytes"
	"fmt"
	"html"
	"net/url"
	"strings"
	"text/template"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/and161185/medrec/internal/model"
)

// SiteName appears in subjects and greetings.
const SiteName = "MedRec"

var strict = bluemonday.StrictPolicy()

// CleanName strips any markup from a user-supplied display name. The result is
// plain text: the entities the sanitiser emits are decoded again.
func CleanName(name string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(name)))
}

// Link joins base, path and a token query parameter.
func Link(base, path, token string) string {
	base = strings.TrimRight(base, "/")
	return base + path + "?" + url.Values{"token": {token}}.Encode()
}

type linkData struct {
	SiteName  string
	Name      string
	Link      string
	ExpiresIn string
}

var (
	verifyTmpl = template.Must(template.New("verify").Parse(`Hello {{.Name}},

Thank you for registering with {{.SiteName}}. Please verify your email address by opening this link:
{{.Link}}

After verification an administrator will review your account.
`))
	resetTmpl = template.Must(template.New("reset").Parse(`Hello {{.Name}},

We received a request to reset your {{.SiteName}} password. Open this link to choose a new one:
{{.Link}}

This link expires in {{.ExpiresIn}}. If you did not request a reset, you can ignore this email.
`))
)

func render(t *template.Template, d linkData) string {
	var buf bytes.Buffer
	_ = t.Execute(&buf, d)
	return buf.String()
}

// BuildVerificationEmail creates the email carrying an email-verification link.
func BuildVerificationEmail(to, name, baseURL, token string, now time.Time) model.OutboxEntry {
	return model.OutboxEntry{
		Recipient: to,
		Subject:   fmt.Sprintf("Verify your %s email address", SiteName),
		Body: render(verifyTmpl, linkData{
			SiteName: SiteName,
			Name:     CleanName(name),
			Link:     Link(baseURL, "/verify-email", token),
		}),
		Date: now,
	}
}

// BuildResetEmail creates the email carrying a password-reset link.
func BuildResetEmail(to, name, baseURL, token string, ttl time.Duration, now time.Time) model.OutboxEntry {
	return model.OutboxEntry{
		Recipient: to,
		Subject:   fmt.Sprintf("Reset your %s password", SiteName),
		Body: render(resetTmpl, linkData{
			SiteName:  SiteName,
			Name:      CleanName(name),
			Link:      Link(baseURL, "/reset-password", token),
			ExpiresIn: ttl.String(),
		}),
		Date: now,
	}
}

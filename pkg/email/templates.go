package email

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

const (
	SubjectPasswordReset = "Password Reset - Krishna Royal Club"
	SubjectWelcome       = "Welcome to Krishna Royal Club"
)

// Raw HTML in the markdown is escaped because WithUnsafe is not set.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

var passwordResetTmpl = template.Must(template.New("password_reset").Parse(`## Password Reset Request

Hello {{.FirstName}},

We received a request to reset your password for your Krishna Royal Club account.

[Reset Password]({{.ResetURL}})

Or copy and paste this link into your browser:

{{.ResetURL}}

**Important:** this link will expire in {{.ValidFor}}. If you didn't request this, please ignore this email.

---

Krishna Royal Club
This is an automated message, please do not reply.
`))

var welcomeTmpl = template.Must(template.New("welcome").Parse(`## Welcome, {{.FirstName}}

Your Krishna Royal Club account for **{{.Email}}** is ready.

You can now sign in to book your stay and complete guest onboarding before arrival.

---

Krishna Royal Club
This is an automated message, please do not reply.
`))

const layout = `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">%s</div>`

// PasswordResetData fills the reset template.
type PasswordResetData struct {
	FirstName string
	ResetURL  string
	ValidFor  string
}

// WelcomeData fills the welcome template.
type WelcomeData struct {
	FirstName string
	Email     string
}

// RenderPasswordReset returns the subject and HTML body for a reset email.
func RenderPasswordReset(data PasswordResetData) (string, string, error) {
	if strings.TrimSpace(data.FirstName) == "" {
		data.FirstName = "User"
	}
	if data.ValidFor == "" {
		data.ValidFor = "24 hours"
	}
	data.FirstName = escapeMarkdown(data.FirstName)
	html, err := render(passwordResetTmpl, data)
	return SubjectPasswordReset, html, err
}

// RenderWelcome returns the subject and HTML body for a new-account email.
func RenderWelcome(data WelcomeData) (string, string, error) {
	if strings.TrimSpace(data.FirstName) == "" {
		data.FirstName = "User"
	}
	data.FirstName = escapeMarkdown(data.FirstName)
	data.Email = escapeMarkdown(data.Email)
	html, err := render(welcomeTmpl, data)
	return SubjectWelcome, html, err
}

func render(tmpl *template.Template, data any) (string, error) {
	var md bytes.Buffer
	if err := tmpl.Execute(&md, data); err != nil {
		return "", fmt.Errorf("execute %s template: %w", tmpl.Name(), err)
	}
	var out bytes.Buffer
	if err := mdRenderer.Convert(md.Bytes(), &out); err != nil {
		return "", fmt.Errorf("render %s markdown: %w", tmpl.Name(), err)
	}
	return fmt.Sprintf(layout, out.String()), nil
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`, "`", "\\`", "#", `\#`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

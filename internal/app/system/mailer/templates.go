package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

// VerificationEmailData holds data for the verification email.
type VerificationEmailData struct {
	SiteName  string
	Name      string
	Code      string
	ExpiresIn string // e.g. "15 minutes"
}

// ExpiresIn renders d the way the verification email phrases it.
func ExpiresIn(d time.Duration) string {
	mins := int(d.Round(time.Minute) / time.Minute)
	switch {
	case mins <= 1:
		return "1 minute"
	case mins%60 == 0:
		h := mins / 60
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	default:
		return fmt.Sprintf("%d minutes", mins)
	}
}

// BuildVerificationEmail returns the verification email addressed to to.
func BuildVerificationEmail(to string, data VerificationEmailData) Email {
	return Email{
		To:       to,
		Subject:  fmt.Sprintf("Your %s verification code", data.SiteName),
		TextBody: buildVerificationText(data),
		HTMLBody: buildVerificationHTML(data),
	}
}

func buildVerificationText(data VerificationEmailData) string {
	var buf bytes.Buffer
	if data.Name != "" {
		fmt.Fprintf(&buf, "Hi %s,\n\n", data.Name)
	}
	fmt.Fprintf(&buf, "Your %s verification code is: %s\n\n", data.SiteName, data.Code)
	fmt.Fprintf(&buf, "Enter it in the app to confirm your email address. It expires in %s.\n\n", data.ExpiresIn)
	buf.WriteString("If you did not create an account, you can ignore this email.\n")
	return buf.String()
}

var verificationHTML = template.Must(template.New("verification").Parse(verificationHTMLTemplate))

func buildVerificationHTML(data VerificationEmailData) string {
	var buf bytes.Buffer
	_ = verificationHTML.Execute(&buf, data)
	return buf.String()
}

const verificationHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Confirm your email</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; background-color: #f5f3ef;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 480px; background-color: #ffffff; border-radius: 8px;">
          <tr>
            <td style="padding: 28px 32px 20px; text-align: center; border-bottom: 1px solid #e7e2d8;">
              <h1 style="margin: 0; font-size: 22px; font-weight: 600; color: #2d4a7a;">{{.SiteName}}</h1>
            </td>
          </tr>
          <tr>
            <td style="padding: 32px;">
              {{if .Name}}<p style="margin: 0 0 16px; font-size: 16px; color: #374151;">Hi {{.Name}},</p>{{end}}
              <p style="margin: 0 0 24px; font-size: 16px; color: #374151; line-height: 1.5;">
                Enter this code to confirm your email address:
              </p>
              <div style="background-color: #f5f3ef; border-radius: 8px; padding: 24px; text-align: center; margin-bottom: 24px;">
                <span style="font-size: 32px; font-weight: 700; letter-spacing: 8px; color: #1f2937; font-family: 'Courier New', monospace;">{{.Code}}</span>
              </div>
              <p style="margin: 0; font-size: 13px; color: #9ca3af; text-align: center;">
                This code expires in {{.ExpiresIn}}.
              </p>
            </td>
          </tr>
          <tr>
            <td style="padding: 20px 32px; background-color: #faf8f4; border-radius: 0 0 8px 8px;">
              <p style="margin: 0; font-size: 12px; color: #9ca3af; text-align: center;">
                If you did not create an account, you can ignore this email.
              </p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`

// Package mail renders outgoing mail bodies and publishes them to
// the outbound mail queue. Delivery is fire-and-forget: publishing
// errors are logged and never surfaced to the request that caused
// the mail.
package mail

import (
	"bytes"
	"html/template"
)

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`<html>
<body>
  <p>Hi {{.FirstName}} {{.LastName}},</p>
  <p>Welcome aboard! Please confirm your email address to activate your account.</p>
  <p><a href="{{.ConfirmationLink}}">Verify my email</a></p>
  <p>If you did not sign up, you can ignore this message.</p>
</body>
</html>`))

var resendConfirmationTmpl = template.Must(template.New("resend-confirmation").Parse(`<html>
<body>
  <p>Hello,</p>
  <p>Here is the verification link you requested.</p>
  <p><a href="{{.ConfirmationLink}}">Verify my email</a></p>
</body>
</html>`))

var passwordResetTmpl = template.Must(template.New("password-reset").Parse(`<html>
<body>
  <p>Hello,</p>
  <p>We received a request to reset your password. The link below is valid for 24 hours.</p>
  <p><a href="{{.ResetLink}}">Reset my password</a></p>
  <p>If you did not request this, you can ignore this message.</p>
</body>
</html>`))

// ConfirmationData feeds the account confirmation template.
type ConfirmationData struct {
	FirstName        string
	LastName         string
	ConfirmationLink string
}

// ResendConfirmationData feeds the resent confirmation template.
type ResendConfirmationData struct {
	ConfirmationLink string
}

// PasswordResetData feeds the password reset template.
type PasswordResetData struct {
	ResetLink string
}

func render(t *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

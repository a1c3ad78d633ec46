package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

// VerificationSubject is the subject line of verification emails.
const VerificationSubject = "SparkEd Email Verification"

var verificationTmpl = template.Must(template.New("verification").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Verify Your Email - SparkEd</title>
</head>
<body style="background: linear-gradient(135deg, #FCFCFC 0%, #FFFAE3 100%); font-family: 'Poppins', Arial, sans-serif; color: #333; margin:0; padding:0;">
  <div style="max-width: 420px; margin: 40px auto; background: #fff; border: 2px solid #F7567C; border-radius: 1.5rem; padding: 2.5rem 1.5rem;">
    <h2 style="color: #F7567C; text-align: center; font-weight: 600; margin-bottom: 1.5rem;">SparkEd Email Verification</h2>
    <p style="font-size: 1.1rem; text-align: center; margin-bottom: 2rem;">Thank you for registering with <b>SparkEd</b>!<br>Please click the button below to verify your email address:</p>
    <div style="text-align: center; margin-bottom: 2rem;">
      <a href="{{.Link}}" style="background: #F7567C; color: white; padding: 1rem 2rem; border-radius: 0.5rem; font-weight: 600; font-size: 1.1rem; text-decoration: none; display: inline-block;">Verify Email</a>
    </div>
    <p style="text-align: center; color: #666; font-size: 0.98rem;">This link is valid for {{.Validity}}.<br>If you did not request this, you can safely ignore this email.</p>
    <div style="text-align: center; margin-top: 2rem;">
      <span style="color: #F7567C; font-size: 1.1rem; font-weight: 500;">SparkEd Team</span>
    </div>
  </div>
</body>
</html>
`))

// NewVerificationMessage renders the verification email for recipient.
func NewVerificationMessage(recipient, link string, validity time.Duration) (Message, error) {
	var buf bytes.Buffer
	err := verificationTmpl.Execute(&buf, struct {
		Link     string
		Validity string
	}{
		Link:     link,
		Validity: humanDuration(validity),
	})
	if err != nil {
		return Message{}, fmt.Errorf("render verification email: %w", err)
	}
	return Message{To: recipient, Subject: VerificationSubject, HTMLBody: buf.String()}, nil
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute && d%time.Minute == 0:
		return plural(int(d/time.Minute), "minute")
	default:
		return plural(int(d/time.Second), "second")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// Package notify delivers booking notifications to the lesson provider:
// an email with the student's details plus an iCalendar attachment.
package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"github.com/pianostudio/lesson-booking/internal/booking"
	"github.com/pianostudio/lesson-booking/internal/config"
)

// EmailNotifier sends a booking notification over SMTP. Delivery is
// best-effort; the caller treats failures as log-only.
type EmailNotifier struct {
	addr           string
	host           string
	username       string
	password       string
	from           string
	recipient      string
	utcOffsetHours int
}

func NewEmailNotifier(cfg config.Config) *EmailNotifier {
	return &EmailNotifier{
		addr:           fmt.Sprintf("%s:%s", cfg.SMTPHost, cfg.SMTPPort),
		host:           cfg.SMTPHost,
		username:       cfg.SMTPUsername,
		password:       cfg.SMTPPassword,
		from:           cfg.SMTPUsername,
		recipient:      cfg.NotifyRecipient,
		utcOffsetHours: cfg.UTCOffsetHours,
	}
}

func (n *EmailNotifier) Notify(ctx context.Context, appt booking.Appointment) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	invite, err := buildInvite(appt, n.utcOffsetHours, n.from, time.Now())
	if err != nil {
		return fmt.Errorf("build calendar invite: %w", err)
	}

	msg, err := buildMessage(n.from, n.recipient, appt, invite)
	if err != nil {
		return fmt.Errorf("build notification email: %w", err)
	}

	var auth smtp.Auth
	if n.username != "" {
		auth = smtp.PlainAuth("", n.username, n.password, n.host)
	}

	if err := smtp.SendMail(n.addr, auth, n.from, []string{n.recipient}, msg); err != nil {
		return fmt.Errorf("send booking email: %w", err)
	}
	return nil
}

// buildMessage assembles a multipart/mixed RFC 5322 message: a
// multipart/alternative body (plain text + HTML) and the .ics invite as a
// base64 attachment.
func buildMessage(from, to string, appt booking.Appointment, invite string) ([]byte, error) {
	subject := fmt.Sprintf("New Piano Lesson Booking - %s - %s", appt.Name, appt.Date)

	var body bytes.Buffer
	mixed := multipart.NewWriter(&body)

	var headers bytes.Buffer
	fmt.Fprintf(&headers, "From: %s\r\n", from)
	fmt.Fprintf(&headers, "To: %s\r\n", to)
	fmt.Fprintf(&headers, "Subject: %s\r\n", subject)
	fmt.Fprintf(&headers, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&headers, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mixed.Boundary())

	var alt bytes.Buffer
	altWriter := multipart.NewWriter(&alt)

	textPart, err := altWriter.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/plain; charset=utf-8"},
	})
	if err != nil {
		return nil, err
	}
	if _, err := textPart.Write([]byte(textBody(appt))); err != nil {
		return nil, err
	}

	htmlPart, err := altWriter.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/html; charset=utf-8"},
	})
	if err != nil {
		return nil, err
	}
	if _, err := htmlPart.Write([]byte(htmlBody(appt))); err != nil {
		return nil, err
	}
	if err := altWriter.Close(); err != nil {
		return nil, err
	}

	altPart, err := mixed.CreatePart(textproto.MIMEHeader{
		"Content-Type": {fmt.Sprintf("multipart/alternative; boundary=%q", altWriter.Boundary())},
	})
	if err != nil {
		return nil, err
	}
	if _, err := altPart.Write(alt.Bytes()); err != nil {
		return nil, err
	}

	attachment, err := mixed.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"application/octet-stream"},
		"Content-Transfer-Encoding": {"base64"},
		"Content-Disposition":       {fmt.Sprintf("attachment; filename=%q", inviteFilename(appt))},
	})
	if err != nil {
		return nil, err
	}
	if _, err := attachment.Write(wrapBase64([]byte(invite))); err != nil {
		return nil, err
	}
	if err := mixed.Close(); err != nil {
		return nil, err
	}

	return append(headers.Bytes(), body.Bytes()...), nil
}

func inviteFilename(appt booking.Appointment) string {
	name := strings.ReplaceAll(appt.Name, " ", "_")
	return fmt.Sprintf("piano_lesson_%s_%s.ics", name, appt.Date)
}

func textBody(appt booking.Appointment) string {
	return fmt.Sprintf(`New Piano Lesson Booking

Student Information:
- Name: %s
- Email: %s
- Phone: %s

Lesson Details:
- Date: %s
- Time: %s
- Duration: %d minutes
- Lesson Type: %s

This booking was submitted through the lesson booking site.
`,
		appt.Name, orNotProvided(appt.Email), orNotProvided(appt.Phone),
		appt.Date, appt.Time, appt.Duration, appt.LessonType.Display())
}

func htmlBody(appt booking.Appointment) string {
	return fmt.Sprintf(`<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
  <h2 style="color: #7b3f00;">New Piano Lesson Booking</h2>
  <div style="background-color: #f9f9f9; padding: 20px; border-radius: 8px; margin: 20px 0;">
    <h3 style="margin-top: 0; color: #7b3f00;">Student Information</h3>
    <p><strong>Name:</strong> %s</p>
    <p><strong>Email:</strong> %s</p>
    <p><strong>Phone:</strong> %s</p>
  </div>
  <div style="background-color: #f0f8ff; padding: 20px; border-radius: 8px; margin: 20px 0;">
    <h3 style="margin-top: 0; color: #7b3f00;">Lesson Details</h3>
    <p><strong>Date:</strong> %s</p>
    <p><strong>Time:</strong> %s</p>
    <p><strong>Duration:</strong> %d minutes</p>
    <p><strong>Lesson Type:</strong> %s</p>
  </div>
  <p style="margin-top: 30px; font-size: 14px; color: #666;">
    This booking was submitted through the lesson booking site.
  </p>
</body>
</html>
`,
		appt.Name, orNotProvided(appt.Email), orNotProvided(appt.Phone),
		appt.Date, appt.Time, appt.Duration, appt.LessonType.Display())
}

// wrapBase64 encodes and folds the payload at 76 characters per RFC 2045.
func wrapBase64(payload []byte) []byte {
	encoded := base64.StdEncoding.EncodeToString(payload)

	const lineLen = 76
	var out bytes.Buffer
	for len(encoded) > lineLen {
		out.WriteString(encoded[:lineLen])
		out.WriteString("\r\n")
		encoded = encoded[lineLen:]
	}
	out.WriteString(encoded)
	return out.Bytes()
}

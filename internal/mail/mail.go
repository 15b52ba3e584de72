package mail

import (
	"fmt"
	"net/smtp"
	"os"
)

func send(to string, subject string, body string) error {
	host := os.Getenv("SMTP_HOST")
	port := os.Getenv("SMTP_PORT")
	from := os.Getenv("SMTP_FROM")
	user := os.Getenv("SMTP_USER")
	pass := os.Getenv("SMTP_PASSWORD")

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", from, to, subject, body)

	var auth smtp.Auth
	if user != "" {
		auth = smtp.PlainAuth("", user, pass, host)
	}
	return smtp.SendMail(host+":"+port, auth, from, []string{to}, []byte(msg))
}

// SendResetKey mails the single-use password recovery key.
func SendResetKey(to string, key string) error {
	link := fmt.Sprintf("%s/reset?key=%s", os.Getenv("FRONTEND_URL"), key)
	body := fmt.Sprintf("Follow the link to set a new password:\n\n%s\n\nIf you did not request this, ignore this message.", link)
	return send(to, "Password recovery", body)
}

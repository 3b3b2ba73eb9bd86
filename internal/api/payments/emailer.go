package payments

import (
	"fmt"
	"net/smtp"
	"os"
	"time"
)

func SendReceiptEmail(to string, name string, reference string, amount float64, date time.Time) error {
	from := os.Getenv("SMTP_FROM")
	password := os.Getenv("SMTP_PASSWORD")
	host := os.Getenv("SMTP_HOST")
	port := os.Getenv("SMTP_PORT")

	if host == "" || from == "" {
		return fmt.Errorf("SMTP not configured, receipt for %s not sent", reference)
	}

	auth := smtp.PlainAuth("", from, password, host)

	subject := "Payment Receipt " + reference
	body := fmt.Sprintf(
		"Dear %s,\n\nWe received your payment of %.2f on %s.\nReference: %s\n\nThank you!",
		name, amount, date.Format("2 January 2006"), reference,
	)

	message := []byte("Subject: " + subject + "\r\n" +
		"From: " + from + "\r\n" +
		"To: " + to + "\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"\r\n" +
		body + "\r\n")

	err := smtp.SendMail(host+":"+port, auth, from, []string{to}, message)
	if err != nil {
		fmt.Println("❌ SMTP error:", err)
	}
	return err
}

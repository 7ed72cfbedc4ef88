package auth

import (
	"fmt"
	"net/smtp"

	"tiertrainer-backend/config"

	"go.uber.org/zap"
)

// sendMail is swapped in tests.
var sendMail = smtp.SendMail

func sendEmail(to, subject, body string) error {
	from := config.SMTP_FROM
	host := config.SMTP_HOST

	if config.SMTP_PASSWORD == "" {
		zap.L().Warn("SMTP not configured, email not sent", zap.String("to", to), zap.String("subject", subject))
		return nil
	}

	// Resend's relay authenticates with user "resend" and the API key as password.
	auth := smtp.PlainAuth("", config.SMTP_USER, config.SMTP_PASSWORD, host)

	message := []byte("Subject: " + subject + "\r\n" +
		"From: " + from + "\r\n" +
		"To: " + to + "\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"\r\n" +
		body + "\r\n")

	err := sendMail(host+":"+config.SMTP_PORT, auth, from, []string{to}, message)
	if err != nil {
		zap.L().Error("SMTP error", zap.String("to", to), zap.Error(err))
	}
	return err
}

func SendSignupCode(to, code string) error {
	body := fmt.Sprintf("Welcome to TierTrainer24!\n\nYour verification code is: %s\n\nThe code expires in %d minutes.", code, int(signupCodeTTL.Minutes()))
	return sendEmail(to, "Your TierTrainer24 verification code", body)
}

func SendPasswordResetCode(to, code string) error {
	body := fmt.Sprintf("Your password reset code is: %s\n\nThe code expires in %d minutes. If you did not request a reset, ignore this email.", code, int(resetCodeTTL.Minutes()))
	return sendEmail(to, "Reset your TierTrainer24 password", body)
}

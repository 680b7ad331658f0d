package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	gomail "gopkg.in/gomail.v2"
)

// LogReportDispatcher logs rendered reports instead of sending them. Used
// when SMTP is not configured, so a credential-free deployment still
// completes every submission.
type LogReportDispatcher struct {
	recipient string
	logger    zerolog.Logger
}

// NewLogReportDispatcher constructs a logging dispatcher.
func NewLogReportDispatcher(recipient string, logger zerolog.Logger) *LogReportDispatcher {
	return &LogReportDispatcher{
		recipient: recipient,
		logger:    logger.With().Str("component", "report_dispatcher").Logger(),
	}
}

// Dispatch logs the report and reports success.
func (d *LogReportDispatcher) Dispatch(ctx context.Context, subject, htmlBody string) error {
	d.logger.Info().
		Str("recipient", d.recipient).
		Str("subject", subject).
		Int("body_bytes", len(htmlBody)).
		Msg("report delivery simulated (smtp not configured)")
	return nil
}

// SMTPConfig holds the settings for the SMTP dispatcher.
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	Sender    string
	Recipient string
}

// SMTPReportDispatcher sends rendered reports over SMTP.
type SMTPReportDispatcher struct {
	dialer *gomail.Dialer
	cfg    SMTPConfig
	logger zerolog.Logger
}

var (
	_ ReportDispatcher = (*LogReportDispatcher)(nil)
	_ ReportDispatcher = (*SMTPReportDispatcher)(nil)
)

// NewSMTPReportDispatcher constructs an SMTP dispatcher.
func NewSMTPReportDispatcher(cfg SMTPConfig, logger zerolog.Logger) (*SMTPReportDispatcher, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if cfg.Recipient == "" {
		return nil, fmt.Errorf("report recipient is required")
	}
	if cfg.Port <= 0 {
		cfg.Port = 587
	}

	return &SMTPReportDispatcher{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		cfg:    cfg,
		logger: logger.With().Str("component", "report_dispatcher").Logger(),
	}, nil
}

// Dispatch sends the report to the configured recipient.
func (d *SMTPReportDispatcher) Dispatch(ctx context.Context, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", d.cfg.Sender)
	msg.SetHeader("To", d.cfg.Recipient)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	if err := d.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send report email: %w", err)
	}

	d.logger.Info().Str("recipient", d.cfg.Recipient).Str("subject", subject).Msg("report delivered")
	return nil
}

// internal/adapters/email/sender.go
package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"gopkg.in/gomail.v2"
)

const maxImageBytes = 5 << 20

type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	SenderEmail string
	Recipients  []string
	Encryption  string
	Subject     string
}

// Sender delivers notifications by mail. The "rich" variant downloads the
// listing image and embeds it inline.
type Sender struct {
	cfg    Config
	send   func(m *gomail.Message) error
	client *http.Client
}

func NewSender(cfg Config) (*Sender, error) {
	if cfg.Host == "" || cfg.Port == 0 || cfg.SenderEmail == "" || len(cfg.Recipients) == 0 {
		return nil, errors.New("SMTP host, port, sender email and recipients must be configured")
	}
	if cfg.Subject == "" {
		cfg.Subject = "Nouveau logement CROUS"
	}

	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	switch strings.ToLower(cfg.Encryption) {
	case "ssl":
		dialer.SSL = true
		dialer.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
	case "tls", "starttls":
		dialer.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
	}

	return &Sender{
		cfg:    cfg,
		send:   func(m *gomail.Message) error { return dialer.DialAndSend(m) },
		client: &http.Client{Timeout: 20 * time.Second},
	}, nil
}

func (s *Sender) SendPhoto(ctx context.Context, imageURL, caption string) error {
	image, err := s.fetchImage(ctx, imageURL)
	if err != nil {
		return err
	}
	name := path.Base(imageURL)
	if name == "" || name == "/" || name == "." {
		name = "listing.jpg"
	}

	m := s.newMessage()
	m.Embed(name, gomail.SetCopyFunc(func(w io.Writer) error {
		_, err := w.Write(image)
		return err
	}))
	m.SetBody("text/html", fmt.Sprintf(`<p><img src="cid:%s" alt=""></p><p>%s</p>`, name, htmlLines(caption)))
	return s.deliver(ctx, m)
}

func (s *Sender) SendText(ctx context.Context, text string) error {
	m := s.newMessage()
	m.SetBody("text/html", "<p>"+htmlLines(text)+"</p>")
	return s.deliver(ctx, m)
}

func (s *Sender) newMessage() *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.SenderEmail)
	m.SetHeader("To", s.cfg.Recipients...)
	m.SetHeader("Subject", s.cfg.Subject)
	return m
}

func (s *Sender) deliver(ctx context.Context, m *gomail.Message) error {
	done := make(chan error, 1)
	go func() {
		done <- s.send(m)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("email sending cancelled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
		return nil
	}
}

func (s *Sender) fetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("image request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image: status code %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("image larger than %d bytes", maxImageBytes)
	}
	return data, nil
}

func htmlLines(s string) string {
	return strings.ReplaceAll(s, "\n", "<br>")
}

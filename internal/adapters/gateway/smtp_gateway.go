package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cloudwishcom/rcpt-verify/internal/core"
	"github.com/cloudwishcom/rcpt-verify/internal/utils"
)

// maxReplyLength bounds the text of SMTP replies built from
// verification reasons
const maxReplyLength = 400

// SMTPGateway is a submission gateway that screens RCPT TO addresses
// before optionally relaying accepted messages upstream
type SMTPGateway struct {
	gatekeeper      *core.Gatekeeper
	logger          *zap.Logger
	listenAddr      string
	domain          string
	users           map[string]string
	upstreamAddr    string
	upstreamPort    int
	upstreamEnabled bool
	sanitizer       *utils.TextSanitizer
	server          *smtp.Server
	ln              net.Listener
}

// NewSMTPGateway creates a new SMTP gateway
func NewSMTPGateway(
	gatekeeper *core.Gatekeeper,
	logger *zap.Logger,
	listenAddr string,
	domain string,
	users map[string]string,
	upstreamAddr string,
	upstreamPort int,
	upstreamEnabled bool,
) *SMTPGateway {
	return &SMTPGateway{
		gatekeeper:      gatekeeper,
		logger:          logger,
		listenAddr:      listenAddr,
		domain:          domain,
		users:           users,
		upstreamAddr:    upstreamAddr,
		upstreamPort:    upstreamPort,
		upstreamEnabled: upstreamEnabled,
		sanitizer:       utils.NewTextSanitizer(logger),
	}
}

// Start starts the SMTP gateway
func (g *SMTPGateway) Start() error {
	// Create a new SMTP server
	g.server = smtp.NewServer(&smtpBackend{gateway: g})

	// Configure the server
	g.server.Addr = g.listenAddr
	g.server.Domain = g.domain
	g.server.ReadTimeout = 30 * time.Second
	g.server.WriteTimeout = 30 * time.Second
	g.server.MaxMessageBytes = 30 * 1024 * 1024 // 30MB
	g.server.MaxRecipients = 50
	g.server.AllowInsecureAuth = true

	ln, err := net.Listen("tcp", g.listenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", g.listenAddr, err)
	}
	g.ln = ln

	g.logger.Info("SMTP gateway starting", zap.String("address", ln.Addr().String()))

	// Start the server in a goroutine
	go func() {
		if err := g.server.Serve(ln); err != nil {
			if err != smtp.ErrServerClosed {
				g.logger.Error("SMTP server error", zap.Error(err))
			}
		}
	}()

	return nil
}

// Addr returns the address the gateway is listening on
func (g *SMTPGateway) Addr() string {
	if g.ln == nil {
		return g.listenAddr
	}
	return g.ln.Addr().String()
}

// Stop stops the SMTP gateway
func (g *SMTPGateway) Stop() error {
	if g.server != nil {
		return g.server.Close()
	}
	return nil
}

// relayUpstream hands an accepted message to the upstream MTA
func (g *SMTPGateway) relayUpstream(sender string, recipients []string, messageData []byte) error {
	upstreamAddr := fmt.Sprintf("%s:%d", g.upstreamAddr, g.upstreamPort)

	// Get hostname for EHLO
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	// Connect to the server with a timeout
	conn, err := net.DialTimeout("tcp", upstreamAddr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to upstream: %w", err)
	}

	// Set a deadline for the connection
	if err := conn.SetDeadline(time.Now().Add(30 * time.Second)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	// Create a client
	c := smtp.NewClient(conn)
	defer c.Close()

	// Send EHLO
	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}

	// Set the sender
	if err := c.Mail(sender, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	// Set the recipients
	recipientOK := false
	for _, recipient := range recipients {
		if err := c.Rcpt(recipient, nil); err != nil {
			g.logger.Warn("RCPT TO failed for recipient",
				zap.String("recipient", recipient),
				zap.Error(err))
			// Continue with other recipients even if one fails
		} else {
			recipientOK = true
		}
	}

	if !recipientOK {
		return fmt.Errorf("all recipients were rejected")
	}

	// Send the message data
	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}

	if _, err := wc.Write(messageData); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send message data: %w", err)
	}

	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	// Quit the connection
	if err := c.Quit(); err != nil {
		g.logger.Warn("QUIT command failed", zap.Error(err))
		// Not returning an error here as the message has already been sent
	}

	return nil
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	gateway *SMTPGateway
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{
		gateway: b.gateway,
		info: &core.SessionInfo{
			ID: uuid.New().String(),
		},
		recipients: make([]string, 0),
	}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	gateway    *SMTPGateway
	info       *core.SessionInfo
	recipients []string
}

// Reset resets the transaction state. Authentication state belongs to
// the connection and survives RSET.
func (s *smtpSession) Reset() {
	s.info.MailFrom = ""
	s.recipients = make([]string, 0)
}

// AuthMechanisms advertises PLAIN when submission users are configured
func (s *smtpSession) AuthMechanisms() []string {
	if len(s.gateway.users) == 0 {
		return nil
	}
	return []string{sasl.Plain}
}

// Auth handles SASL authentication
func (s *smtpSession) Auth(mech string) (sasl.Server, error) {
	return sasl.NewPlainServer(func(identity, username, password string) error {
		expected, ok := s.gateway.users[username]
		if !ok || expected != password {
			s.gateway.logger.Warn("Authentication failed", zap.String("username", username))
			return errors.New("invalid credentials")
		}
		s.info.Authenticated = true
		s.info.Username = username
		return nil
	}), nil
}

// Mail sets the sender address
func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.info.MailFrom = from
	return nil
}

// Rcpt screens a recipient before accepting it into the transaction
func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.gateway.gatekeeper.CheckRcpt(ctx, s.info, to); err != nil {
		var rej *core.Rejection
		if errors.As(err, &rej) {
			return &smtp.SMTPError{
				Code:         rej.Code,
				EnhancedCode: smtp.EnhancedCode(rej.Enhanced),
				Message:      s.gateway.sanitizer.SanitizeReply(rej.Message(), maxReplyLength),
			}
		}
		// Anything short of an explicit rejection lets the recipient through
		s.gateway.logger.Error("Recipient check failed, allowing recipient",
			zap.Error(err),
			zap.String("recipient", to))
	}

	s.recipients = append(s.recipients, to)
	return nil
}

// Data accepts the message payload for the screened recipients
func (s *smtpSession) Data(r io.Reader) error {
	// Snapshot the verification outcomes before the transaction state
	// can change under us
	msgAudit := s.gateway.gatekeeper.BeginData(s.info)

	rawData, err := io.ReadAll(r)
	if err != nil {
		s.gateway.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	if s.gateway.upstreamEnabled {
		if err := s.gateway.relayUpstream(s.info.MailFrom, s.recipients, rawData); err != nil {
			s.gateway.logger.Error("Failed to relay message upstream",
				zap.Error(err),
				zap.String("sender", s.info.MailFrom))
			return &smtp.SMTPError{
				Code:         451,
				EnhancedCode: smtp.EnhancedCode{4, 3, 0},
				Message:      "upstream relay failed",
			}
		}
	}

	messageID := uuid.New().String()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.gateway.gatekeeper.MessageQueued(ctx, msgAudit, messageID, s.recipients)

	s.gateway.logger.Info("Message accepted",
		zap.String("message_id", messageID),
		zap.String("from", s.info.MailFrom),
		zap.Int("recipients", len(s.recipients)),
		zap.Int("size", len(rawData)))

	return nil
}

// Logout ends the session
func (s *smtpSession) Logout() error {
	s.gateway.gatekeeper.EndSession(s.info)
	return nil
}

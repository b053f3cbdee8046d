package ports

// MailGateway defines the interface for the mail-facing front end
type MailGateway interface {
	// Addr returns the address the gateway is listening on
	Addr() string

	// Start starts the gateway
	Start() error

	// Stop stops the gateway
	Stop() error
}

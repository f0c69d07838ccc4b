package webhook

// Client is a registered webhook receiver
type Client struct {
	// Name identifies the client in logs and configuration
	Name string
	// URL is the delivery endpoint
	URL string
	// Secret is the shared HMAC key for signing deliveries
	Secret string
}

// DeliveryResult represents the result of a webhook delivery
type DeliveryResult struct {
	// Success indicates whether the delivery was successful
	Success bool
	// StatusCode is the HTTP status code returned by the webhook endpoint
	StatusCode int
	// Attempts is the number of HTTP attempts made
	Attempts int
	// Error contains error details if delivery failed
	Error string
}

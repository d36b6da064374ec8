package certificate

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/linkrail/linkrail/internal/clock"
)

// ValidationResult describes what a live TLS probe of the hostname found.
// Probe failures are data, not errors: an unreachable host is a normal state
// for a domain whose DNS has not propagated yet.
type ValidationResult struct {
	Reachable bool      `json:"reachable"`
	Valid     bool      `json:"valid"`
	Issuer    string    `json:"issuer,omitempty"`
	NotAfter  time.Time `json:"not_after,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// Validator probes port 443 of a hostname and inspects the presented leaf.
type Validator struct {
	clk     clock.Clock
	timeout time.Duration
}

func NewValidator(clk clock.Clock) *Validator {
	return &Validator{clk: clk, timeout: 10 * time.Second}
}

func (v *Validator) Validate(ctx context.Context, hostname string) ValidationResult {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{},
		// Verification is done by hand below so an expired or mismatched
		// cert still yields its details instead of a handshake error.
		Config: &tls.Config{ServerName: hostname, InsecureSkipVerify: true},
	}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(hostname, "443"))
	if err != nil {
		return ValidationResult{Detail: fmt.Sprintf("dial: %v", err)}
	}
	defer conn.Close()

	tlsConn, ok := conn.(*tls.Conn)
	if !ok {
		return ValidationResult{Reachable: true, Detail: "no tls connection state"}
	}
	peers := tlsConn.ConnectionState().PeerCertificates
	if len(peers) == 0 {
		return ValidationResult{Reachable: true, Detail: "no peer certificate presented"}
	}

	leaf := peers[0]
	result := ValidationResult{
		Reachable: true,
		Issuer:    leaf.Issuer.CommonName,
		NotAfter:  leaf.NotAfter,
	}

	now := v.clk.Now()
	if err := leaf.VerifyHostname(hostname); err != nil {
		result.Detail = fmt.Sprintf("hostname mismatch: %v", err)
		return result
	}
	if now.Before(leaf.NotBefore) || now.After(leaf.NotAfter) {
		result.Detail = "certificate outside validity window"
		return result
	}

	result.Valid = true
	return result
}

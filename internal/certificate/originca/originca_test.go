package originca

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/linkrail/linkrail/internal/certificate/domain"
)

func selfSignedPEM(t *testing.T, hostname string, notAfter time.Time) string {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: hostname},
		DNSNames:     []string{hostname},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     notAfter,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))
}

func TestIssueExchangesCSRForCertificate(t *testing.T) {
	notAfter := time.Now().Add(365 * 24 * time.Hour).Truncate(time.Second)
	certPEM := selfSignedPEM(t, "track.example.com", notAfter)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "svc-key", r.Header.Get("X-Auth-User-Service-Key"))

		var req issueRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"track.example.com"}, req.Hostnames)
		assert.Equal(t, requestedValidityDays, req.RequestedValidity)
		assert.Contains(t, req.CSR, "CERTIFICATE REQUEST")

		w.Header().Set("Content-Type", "application/json")
		resp := issueResponse{Success: true}
		resp.Result.ID = "cert-123"
		resp.Result.Certificate = certPEM
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	iss := New(Config{Endpoint: srv.URL, ServiceKey: "svc-key"}, zap.NewNop())
	cert, err := iss.Issue(context.Background(), "track.example.com")
	require.NoError(t, err)
	assert.Equal(t, certPEM, cert.CertificatePEM)
	assert.Contains(t, cert.PrivateKeyPEM, "RSA PRIVATE KEY")
	assert.WithinDuration(t, notAfter, cert.ValidUntil, 2*time.Second)
}

func TestIssueCategorizesHTTPFailures(t *testing.T) {
	cases := []struct {
		name     string
		status   int
		message  string
		category string
	}{
		{"rate limited", http.StatusTooManyRequests, "rate limited", domain.CategoryRateLimit},
		{"bad key", http.StatusForbidden, "authentication error", domain.CategoryMisconfiguration},
		{"bad hostname", http.StatusBadRequest, "invalid hostname", domain.CategoryValidation},
		{"server error", http.StatusBadGateway, "upstream down", domain.CategoryGeneric},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				resp := issueResponse{Success: false}
				resp.Errors = append(resp.Errors, struct {
					Code    int    `json:"code"`
					Message string `json:"message"`
				}{Code: 1000, Message: tc.message})
				_ = json.NewEncoder(w).Encode(resp)
			}))
			defer srv.Close()

			iss := New(Config{Endpoint: srv.URL, ServiceKey: "svc-key"}, zap.NewNop())
			_, err := iss.Issue(context.Background(), "track.example.com")
			pe, ok := domain.AsProviderError(err)
			require.True(t, ok)
			assert.Equal(t, tc.category, pe.Category)
			assert.Equal(t, tc.message, pe.Message)
		})
	}
}

func TestIssueRequiresCredentials(t *testing.T) {
	iss := New(Config{}, zap.NewNop())
	_, err := iss.Issue(context.Background(), "track.example.com")
	pe, ok := domain.AsProviderError(err)
	require.True(t, ok)
	assert.Equal(t, domain.CategoryMisconfiguration, pe.Category)
}

func TestIssueTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Bound the stall so the deferred srv.Close does not deadlock: the
		// server never reads the request body, so r.Context() is not
		// canceled when the timed-out client disconnects.
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	iss := New(Config{Endpoint: srv.URL, ServiceKey: "svc-key", Timeout: 50 * time.Millisecond}, zap.NewNop())
	_, err := iss.Issue(context.Background(), "track.example.com")
	pe, ok := domain.AsProviderError(err)
	require.True(t, ok)
	assert.Equal(t, domain.CategoryTimeout, pe.Category)
}

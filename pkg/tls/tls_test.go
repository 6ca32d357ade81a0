package tls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeSelfSigned writes a self-signed CA certificate and key into dir.
func writeSelfSigned(t *testing.T, dir string) (certFile, keyFile string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "chemviz-test"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		DNSNames:              []string{"localhost"},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}

	certFile = filepath.Join(dir, "cert.pem")
	keyFile = filepath.Join(dir, "key.pem")
	if err := os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600); err != nil {
		t.Fatal(err)
	}
	return certFile, keyFile
}

func TestConfig_Validate(t *testing.T) {
	dir := t.TempDir()
	cert, key := writeSelfSigned(t, dir)

	tests := []struct {
		name       string
		cfg        Config
		wantErr    bool
		wantServer bool
	}{
		{name: "disabled", cfg: Config{}, wantServer: false},
		{name: "full", cfg: Config{Enabled: true, CertFile: cert, KeyFile: key, CAFile: cert}},
		{name: "server without ca", cfg: Config{Enabled: true, CertFile: cert, KeyFile: key}},
		{name: "client ca only", cfg: Config{Enabled: true, CAFile: cert}, wantServer: true},
		{name: "cert without key", cfg: Config{Enabled: true, CertFile: cert}, wantErr: true, wantServer: true},
		{name: "missing file", cfg: Config{Enabled: true, CertFile: cert, KeyFile: filepath.Join(dir, "nope.pem")}, wantErr: true, wantServer: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err := tt.cfg.ValidateServer(); (err != nil) != tt.wantServer {
				t.Errorf("ValidateServer() error = %v, wantErr %v", err, tt.wantServer)
			}
		})
	}
}

func TestNewServerTLSConfig(t *testing.T) {
	cert, key := writeSelfSigned(t, t.TempDir())

	cfg, err := NewServerTLSConfig(cert, key, "")
	if err != nil {
		t.Fatalf("NewServerTLSConfig() error = %v", err)
	}
	if cfg.MinVersion != tls.VersionTLS13 {
		t.Errorf("MinVersion = %x, want TLS 1.3", cfg.MinVersion)
	}
	if cfg.ClientAuth != tls.NoClientCert {
		t.Errorf("ClientAuth = %v without CA, want NoClientCert", cfg.ClientAuth)
	}

	mtls, err := NewServerTLSConfig(cert, key, cert)
	if err != nil {
		t.Fatalf("NewServerTLSConfig() with CA error = %v", err)
	}
	if mtls.ClientAuth != tls.RequireAndVerifyClientCert {
		t.Errorf("ClientAuth = %v, want RequireAndVerifyClientCert", mtls.ClientAuth)
	}

	if _, err := NewServerTLSConfig("", key, ""); err == nil {
		t.Error("expected error for empty cert path")
	}
	if _, err := NewServerTLSConfig(cert, key, key); err == nil {
		t.Error("expected error for CA file without certificates")
	}
}

func TestNewClientTLSConfig(t *testing.T) {
	cert, key := writeSelfSigned(t, t.TempDir())

	plain, err := NewClientTLSConfig("", "", "")
	if err != nil {
		t.Fatalf("NewClientTLSConfig() error = %v", err)
	}
	if plain.RootCAs != nil || len(plain.Certificates) != 0 {
		t.Error("empty paths should leave system roots and no client cert")
	}

	full, err := NewClientTLSConfig(cert, key, cert)
	if err != nil {
		t.Fatalf("NewClientTLSConfig() error = %v", err)
	}
	if full.RootCAs == nil || len(full.Certificates) != 1 {
		t.Error("expected custom roots and one client certificate")
	}

	if _, err := NewClientTLSConfig(cert, "", ""); err == nil {
		t.Error("expected error for cert without key")
	}
}

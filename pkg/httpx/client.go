package httpx

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	chemviztls "github.com/OmDhavale/Chemical-Equipment-Parameter-Visualizer/pkg/tls"
)

// NewClient creates an HTTP client. When tlsCfg is enabled the client
// presents its certificate and verifies the server against CAFile.
func NewClient(tlsCfg chemviztls.Config, timeout time.Duration) (*http.Client, error) {
	var cryptoTLSConfig *tls.Config
	if tlsCfg.Enabled {
		var err error
		cryptoTLSConfig, err = chemviztls.NewClientTLSConfig(tlsCfg.CertFile, tlsCfg.KeyFile, tlsCfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("create TLS config: %w", err)
		}
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
		TLSClientConfig:     cryptoTLSConfig,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}, nil
}

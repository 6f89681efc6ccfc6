// File: transport/truststore.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Loads a PKCS12 trust-store bundle into a *x509.CertPool for
// tls.Config.RootCAs, the Go analogue of a JKS/PKCS12 trust-store plus
// password pair (§6).

package transport

import (
	"crypto/x509"
	"fmt"
	"os"

	"golang.org/x/crypto/pkcs12"
)

// TrustStorePathEnv and TrustStorePasswordEnv name the two environment
// inputs (§6). They are read on every Client.Open of a wss address,
// not when NewClient constructs the transport. Their absence falls
// back to the platform default trust store.
const (
	TrustStorePathEnv     = "FIXP_TRUSTSTORE_PATH"
	TrustStorePasswordEnv = "FIXP_TRUSTSTORE_PASSWORD"
)

// loadTrustStore reads the PKCS12 bundle named by the environment, or
// returns a nil pool (platform default) if the path is unset.
func loadTrustStore() (*x509.CertPool, error) {
	path := os.Getenv(TrustStorePathEnv)
	if path == "" {
		return nil, nil
	}
	password := os.Getenv(TrustStorePasswordEnv)

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trust-store %s: %w", path, err)
	}
	certs, err := pkcs12.DecodeTrustStore(raw, password)
	if err != nil {
		return nil, fmt.Errorf("decode trust-store %s: %w", path, err)
	}

	pool := x509.NewCertPool()
	for _, c := range certs {
		pool.AddCert(c)
	}
	return pool, nil
}

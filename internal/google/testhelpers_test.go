package google

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestKey returns a fresh RSA key and its PKCS#8 PEM encoding.
func newTestKey(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	block := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
	return key, string(block)
}

func newTestCredential(t *testing.T) (*rsa.PrivateKey, *ServiceCredential) {
	t.Helper()

	key, pemKey := newTestKey(t)
	return key, &ServiceCredential{
		Type:         "service_account",
		ClientEmail:  "slots@project.iam.gserviceaccount.com",
		PrivateKey:   pemKey,
		PrivateKeyID: "key-1",
	}
}

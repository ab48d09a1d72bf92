package google

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// ServiceCredential is the subset of a Google service-account key file the
// proxy needs. It is loaded once at startup and never mutated.
type ServiceCredential struct {
	Type         string `json:"type,omitempty"`
	ProjectID    string `json:"project_id,omitempty"`
	PrivateKeyID string `json:"private_key_id,omitempty"`
	ClientEmail  string `json:"client_email"`
	PrivateKey   string `json:"private_key"`
	TokenURI     string `json:"token_uri,omitempty"`
}

// LoadCredential parses a service-account key from raw JSON.
func LoadCredential(raw []byte) (*ServiceCredential, error) {
	var cred ServiceCredential
	if err := json.Unmarshal(raw, &cred); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %w", ErrCredentialLoad, err)
	}

	if strings.TrimSpace(cred.ClientEmail) == "" {
		return nil, fmt.Errorf("%w: client_email is missing", ErrCredentialLoad)
	}
	if strings.TrimSpace(cred.PrivateKey) == "" {
		return nil, fmt.Errorf("%w: private_key is missing", ErrCredentialLoad)
	}

	return &cred, nil
}

// LoadCredentialFile reads and parses a service-account key file.
func LoadCredentialFile(path string) (*ServiceCredential, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCredentialLoad, err)
	}
	return LoadCredential(raw)
}

// TokenURL returns the token endpoint declared in the key file, or Google's
// default endpoint when the file does not name one.
func (c *ServiceCredential) TokenURL() string {
	if c.TokenURI != "" {
		return c.TokenURI
	}
	return DefaultTokenURL
}

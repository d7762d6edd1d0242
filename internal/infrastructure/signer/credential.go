package signer

import (
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"

	pkcs12 "software.sslmate.com/src/go-pkcs12"

	"github.com/cloudfly/dian-service/internal/domain/document"
)

// Credential loading errors. All of them are returned wrapped in
// document.ErrCertificate.
var (
	ErrCredentialNotFound = errors.New("credential bundle not found")
	ErrWrongPassword      = errors.New("credential password is incorrect")
	ErrNoPrivateKey       = errors.New("credential bundle has no private key entry")
	ErrAmbiguousEntry     = errors.New("credential bundle has more than one private key entry")
	ErrUnsupportedKey     = errors.New("credential key is not RSA")
	ErrNoCertificate      = errors.New("credential bundle has no certificate for its key")
)

// Credential is a decoded signing identity
type Credential struct {
	Key         *rsa.PrivateKey
	Certificate *x509.Certificate
	Chain       []*x509.Certificate
	Alias       string
}

// GetKeyPair implements dsig.X509KeyStore
func (c *Credential) GetKeyPair() (*rsa.PrivateKey, []byte, error) {
	return c.Key, c.Certificate.Raw, nil
}

// LoadCredential reads a PKCS#12 bundle from path
func LoadCredential(path, password string) (*Credential, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: %w: empty reference", document.ErrCertificate, ErrCredentialNotFound)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w: %s", document.ErrCertificate, ErrCredentialNotFound, path)
		}
		return nil, fmt.Errorf("%w: read %s: %v", document.ErrCertificate, path, err)
	}
	return ParseCredential(data, password)
}

// ParseCredential decodes a PKCS#12 bundle, legacy (3DES/RC2, SHA-1 MAC) or
// modern (PBES2/AES, SHA-256 MAC). The bundle must hold exactly one private
// key entry; certificates other than the key's own are kept as the chain.
func ParseCredential(data []byte, password string) (*Credential, error) {
	key, leaf, chain, err := pkcs12.DecodeChain(data, password)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", document.ErrCertificate, classifyDecodeError(err))
	}
	certs := append([]*x509.Certificate{leaf}, chain...)
	cred, err := selectEntry(key, certs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", document.ErrCertificate, err)
	}
	return cred, nil
}

// classifyDecodeError maps decoder failures onto the credential sentinels.
// The decoder reports bag-count problems as plain errors.
func classifyDecodeError(err error) error {
	msg := err.Error()
	switch {
	case errors.Is(err, pkcs12.ErrIncorrectPassword):
		return ErrWrongPassword
	case strings.Contains(msg, "exactly one key"):
		return ErrAmbiguousEntry
	case strings.Contains(msg, "private key missing"):
		return ErrNoPrivateKey
	case strings.Contains(msg, "certificate missing"):
		return ErrNoCertificate
	}
	return fmt.Errorf("decode bundle: %v", err)
}

func selectEntry(key any, certs []*x509.Certificate) (*Credential, error) {
	if key == nil {
		return nil, ErrNoPrivateKey
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, ErrUnsupportedKey
	}

	cred := &Credential{Key: rsaKey}
	for _, cert := range certs {
		if cert == nil {
			continue
		}
		pub, ok := cert.PublicKey.(*rsa.PublicKey)
		if ok && cred.Certificate == nil && pub.Equal(&rsaKey.PublicKey) {
			cred.Certificate = cert
			continue
		}
		cred.Chain = append(cred.Chain, cert)
	}
	if cred.Certificate == nil {
		return nil, ErrNoCertificate
	}
	cred.Alias = cred.Certificate.Subject.CommonName
	return cred, nil
}

package testutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	pkcs12 "software.sslmate.com/src/go-pkcs12"
)

// CredentialPassword is the password of every generated bundle
const CredentialPassword = "s3cret"

// Credential is a PKCS#12 bundle written to a temp dir
type Credential struct {
	Path        string
	Password    string
	Key         *rsa.PrivateKey
	Certificate *x509.Certificate
}

var (
	rsaKeyOnce sync.Once
	rsaKey     *rsa.PrivateKey
	rsaKeyErr  error
)

// sharedRSAKey generates one key per test binary; RSA generation is slow
func sharedRSAKey() (*rsa.PrivateKey, error) {
	rsaKeyOnce.Do(func() {
		rsaKey, rsaKeyErr = rsa.GenerateKey(rand.Reader, 2048)
	})
	return rsaKey, rsaKeyErr
}

// SelfSignedCertificate issues a certificate for key valid from an hour ago
// until tomorrow
func SelfSignedCertificate(t *testing.T, key any, pub any, commonName string) *x509.Certificate {
	t.Helper()

	serial, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   commonName,
			Organization: []string{"Cloudfly S.A.S."},
			Country:      []string{"CO"},
		},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, pub, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert
}

// NewCredential writes a legacy (3DES, SHA-1 MAC) RSA PKCS#12 bundle with a
// single key entry
func NewCredential(t *testing.T) *Credential {
	t.Helper()
	return newRSACredential(t, pkcs12.LegacyDES, "signer.p12")
}

// NewModernCredential writes the same identity as NewCredential encoded with
// PBES2/AES-256 and a SHA-256 MAC, the OpenSSL 3 default
func NewModernCredential(t *testing.T) *Credential {
	t.Helper()
	return newRSACredential(t, pkcs12.Modern, "signer-modern.p12")
}

func newRSACredential(t *testing.T, encoder *pkcs12.Encoder, name string) *Credential {
	t.Helper()

	key, err := sharedRSAKey()
	require.NoError(t, err)
	cert := SelfSignedCertificate(t, key, &key.PublicKey, "cloudfly-signer")

	data, err := encoder.Encode(key, cert, nil, CredentialPassword)
	require.NoError(t, err)

	return &Credential{
		Path:        writeBundle(t, name, data),
		Password:    CredentialPassword,
		Key:         key,
		Certificate: cert,
	}
}

// NewCredentialWithChain writes an RSA bundle carrying an extra CA
// certificate next to the key entry
func NewCredentialWithChain(t *testing.T) *Credential {
	t.Helper()

	key, err := sharedRSAKey()
	require.NoError(t, err)
	cert := SelfSignedCertificate(t, key, &key.PublicKey, "cloudfly-signer")

	caKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	ca := SelfSignedCertificate(t, caKey, &caKey.PublicKey, "cloudfly-ca")

	data, err := pkcs12.LegacyDES.Encode(key, cert, []*x509.Certificate{ca}, CredentialPassword)
	require.NoError(t, err)

	return &Credential{
		Path:        writeBundle(t, "chain.p12", data),
		Password:    CredentialPassword,
		Key:         key,
		Certificate: cert,
	}
}

// NewECCredential writes a bundle holding an ECDSA key, which cannot
// produce the RSA signature required by the authority
func NewECCredential(t *testing.T) string {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	cert := SelfSignedCertificate(t, key, &key.PublicKey, "cloudfly-ec")

	data, err := pkcs12.LegacyDES.Encode(key, cert, nil, CredentialPassword)
	require.NoError(t, err)
	return writeBundle(t, "ec.p12", data)
}

func writeBundle(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

// Package signer applies enveloped XML-DSig signatures with PKCS#12
// credentials.
package signer

import (
	"crypto"
	_ "crypto/sha256" // registers SHA-256
	_ "crypto/sha512" // registers SHA-384
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"
	"go.uber.org/zap"

	"github.com/cloudfly/dian-service/internal/domain/document"
)

var (
	// ErrNotInitialized is returned by Sign before Initialize succeeded
	ErrNotInitialized = errors.New("signer: not initialized")
	// ErrMalformedDocument is returned when the input is not a single-rooted XML document
	ErrMalformedDocument = errors.New("signer: malformed document")
	// ErrSignatureMissing is returned by Verify when no signature with a certificate is present
	ErrSignatureMissing = errors.New("signer: signature or certificate missing")
	// ErrSignatureInvalid is returned by Verify when the signature does not validate
	ErrSignatureInvalid = errors.New("signer: signature invalid")
)

// Signer signs documents with credentials loaded per call. Initialize must
// be called once at startup before Sign.
type Signer struct {
	once          sync.Once
	initErr       error
	ready         atomic.Bool
	canonicalizer dsig.Canonicalizer
	load          func(path, password string) (*Credential, error)
	credentialDir string
	logger        *zap.Logger
}

// Option configures a Signer
type Option func(*Signer)

// WithCredentialDir resolves relative credential references against dir
func WithCredentialDir(dir string) Option {
	return func(s *Signer) {
		s.credentialDir = dir
	}
}

// New creates an uninitialized Signer
func New(logger *zap.Logger, opts ...Option) *Signer {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Signer{
		load:   LoadCredential,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize checks the digest providers and prepares the canonicalizer. It
// is safe to call concurrently; only the first call does work and every call
// returns its result.
func (s *Signer) Initialize() error {
	s.once.Do(func() {
		for _, h := range []crypto.Hash{crypto.SHA256, crypto.SHA384} {
			if !h.Available() {
				s.initErr = fmt.Errorf("signer: digest %s unavailable", h)
				return
			}
		}
		s.canonicalizer = dsig.MakeC14N10ExclusiveCanonicalizerWithPrefixList("")
		s.ready.Store(true)
		s.logger.Info("XML signer initialized",
			zap.String("signature_method", dsig.RSASHA256SignatureMethod),
			zap.String("canonicalization", string(s.canonicalizer.Algorithm())),
		)
	})
	return s.initErr
}

// Sign loads the bundle at credentialReference and returns xml with an
// enveloped RSA-SHA256 signature appended to the root element. The result is
// deterministic for a given document and credential.
func (s *Signer) Sign(xml []byte, credentialReference, password string) ([]byte, error) {
	if !s.ready.Load() {
		return nil, ErrNotInitialized
	}

	cred, err := s.load(s.resolve(credentialReference), password)
	if err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xml); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: no root element", ErrMalformedDocument)
	}

	ctx := dsig.NewDefaultSigningContext(cred)
	ctx.Canonicalizer = s.canonicalizer
	if err := ctx.SetSignatureMethod(dsig.RSASHA256SignatureMethod); err != nil {
		return nil, fmt.Errorf("set signature method: %w", err)
	}

	signed, err := ctx.SignEnveloped(root)
	if err != nil {
		return nil, fmt.Errorf("%w: sign: %v", document.ErrCertificate, err)
	}
	doc.SetRoot(signed)

	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("serialize signed document: %w", err)
	}

	s.logger.Debug("Document signed",
		zap.String("subject", cred.Certificate.Subject.CommonName),
		zap.Time("not_after", cred.Certificate.NotAfter),
		zap.Int("size", len(out)),
	)
	return out, nil
}

func (s *Signer) resolve(reference string) string {
	if s.credentialDir == "" || reference == "" || filepath.IsAbs(reference) {
		return reference
	}
	return filepath.Join(s.credentialDir, reference)
}

// Verify validates the enveloped signature of signed against the
// certificate embedded in its KeyInfo and returns that certificate.
func Verify(signed []byte) (*x509.Certificate, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(signed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: no root element", ErrMalformedDocument)
	}

	certEl := root.FindElement("./Signature/KeyInfo/X509Data/X509Certificate")
	if certEl == nil {
		return nil, ErrSignatureMissing
	}
	der, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(certEl.Text()), ""))
	if err != nil {
		return nil, fmt.Errorf("%w: certificate encoding: %v", ErrSignatureInvalid, err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("%w: certificate: %v", ErrSignatureInvalid, err)
	}

	ctx := dsig.NewDefaultValidationContext(&dsig.MemoryX509CertificateStore{
		Roots: []*x509.Certificate{cert},
	})
	if _, err := ctx.Validate(root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	return cert, nil
}

// CountSignatures returns the number of XML-DSig Signature elements in data
func CountSignatures(data []byte) (int, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	n := 0
	for _, el := range doc.FindElements("//Signature") {
		if el.NamespaceURI() == dsig.Namespace {
			n++
		}
	}
	return n, nil
}

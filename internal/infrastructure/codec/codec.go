// Package codec renders fiscal payloads into the XML documents accepted by
// DIAN and computes their fiscal fingerprints (CUFE/CUNE).
package codec

import (
	"crypto"
	_ "crypto/sha512" // registers SHA-384
	"encoding/hex"
	"errors"
	"strings"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

var (
	// ErrUnsupportedType is returned for a document type the generator has no layout for
	ErrUnsupportedType = errors.New("codec: unsupported document type")
	// ErrMissingNumber is returned when no document number could be resolved
	ErrMissingNumber = errors.New("codec: document number is required")
	// ErrMissingPayload is returned for a nil payload
	ErrMissingPayload = errors.New("codec: payload is required")
)

// Result is the output of a generation call
type Result struct {
	XML         []byte
	Number      string
	Fingerprint string
	// FingerprintFallback is set when the digest could not be computed and
	// Fingerprint holds a random identifier. Such a value is not a valid
	// CUFE/CUNE and must never be submitted.
	FingerprintFallback bool
}

// Generator produces canonical XML. It holds no per-document state and is
// safe for concurrent use.
type Generator struct {
	digest crypto.Hash
	indent int
	logger *zap.Logger
}

// Option configures a Generator
type Option func(*Generator)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(g *Generator) {
		g.logger = logger
	}
}

// WithDigest overrides the fingerprint hash. Intended for tests.
func WithDigest(h crypto.Hash) Option {
	return func(g *Generator) {
		g.digest = h
	}
}

// NewGenerator creates a Generator using SHA-384 fingerprints
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		digest: crypto.SHA384,
		indent: 2,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// fingerprint hashes the canonical field string and renders lowercase hex.
// When the hash is unavailable a dashless random uuid is returned with
// fallback=true.
func (g *Generator) fingerprint(canonical string) (value string, fallback bool) {
	if !g.digest.Available() {
		g.logger.Warn("Fingerprint digest unavailable, using random identifier",
			zap.String("digest", g.digest.String()),
		)
		return strings.ReplaceAll(uuid.NewString(), "-", ""), true
	}
	h := g.digest.New()
	h.Write([]byte(canonical))
	return hex.EncodeToString(h.Sum(nil)), false
}

func (g *Generator) serialize(doc *etree.Document) ([]byte, error) {
	doc.Indent(g.indent)
	return doc.WriteToBytes()
}

func newDocument() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	return doc
}

// FormatAmount renders an amount with exactly two decimals, rounding half
// away from zero. This format is part of the fingerprint contract.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func formatOptionalAmount(d *decimal.Decimal) string {
	if d == nil {
		return "0.00"
	}
	return FormatAmount(*d)
}

// text normalizes free text to NFC so identical input always yields
// identical bytes
func text(s string) string {
	return norm.NFC.String(s)
}

func optional(s *string) string {
	if s == nil {
		return ""
	}
	return text(*s)
}

func addText(parent *etree.Element, tag, value string) *etree.Element {
	el := parent.CreateElement(tag)
	el.SetText(text(value))
	return el
}

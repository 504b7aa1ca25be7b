package boxon

import (
	"io"

	"gopkg.in/yaml.v3"
)

// DecodeLimits bounds how much a single Decode call will allocate or
// consume, carried forward from glint's DecodeLimits (its only config
// surface): the configuration sub-engine itself is out of scope (§1
// Non-goals), but an engine embedded in a service still needs bounds
// against malformed or hostile input.
type DecodeLimits struct {
	MaxArrayLength  int // 0 means unlimited
	MaxStringLength int // 0 means unlimited
	MaxSkipBits     int // 0 means unlimited
}

// DefaultDecodeLimits mirrors glint's DefaultLimits: generous enough for
// real messages, tight enough to stop a corrupt length field from trying
// to allocate gigabytes.
var DefaultDecodeLimits = DecodeLimits{
	MaxArrayLength:  1 << 20,
	MaxStringLength: 1 << 24,
	MaxSkipBits:     1 << 32,
}

func (l DecodeLimits) checkArrayLength(n int) error {
	if l.MaxArrayLength > 0 && n > l.MaxArrayLength {
		return &DataError{Message: "array length exceeds configured limit"}
	}
	return nil
}

func (l DecodeLimits) checkStringLength(n int) error {
	if l.MaxStringLength > 0 && n > l.MaxStringLength {
		return &DataError{Message: "string length exceeds configured limit"}
	}
	return nil
}

func (l DecodeLimits) checkSkipBits(n uint64) error {
	if l.MaxSkipBits > 0 && n > uint64(l.MaxSkipBits) {
		return &DataError{Message: "SKIP_BITS size exceeds configured limit"}
	}
	return nil
}

// EncodeLimits is DecodeLimits' encode-direction counterpart, carried in
// LoaderConfig. Encode does not check these bounds.
type EncodeLimits struct {
	MaxArrayLength  int
	MaxStringLength int
}

// DefaultEncodeLimits mirrors DefaultDecodeLimits.
var DefaultEncodeLimits = EncodeLimits{
	MaxArrayLength:  1 << 20,
	MaxStringLength: 1 << 24,
}

// LoaderConfig is a small static configuration document for a Loader,
// decoded with gopkg.in/yaml.v3 (the same library zoomoid-go-ipfix and
// GlyphLang use for their own static config structs) — this is harness
// configuration around the engine, distinct from the in-band
// configuration-message sub-engine §1 explicitly excludes.
type LoaderConfig struct {
	// TrustUnknownTemplates is decoded from the document, but no Loader
	// reads it: Dispatch always returns a TemplateError for bytes that
	// match no registered header.
	TrustUnknownTemplates bool `yaml:"trust_unknown_templates"`
	Decode                DecodeLimits `yaml:"decode_limits"`
	Encode                EncodeLimits `yaml:"encode_limits"`
}

// LoadLoaderConfig decodes a LoaderConfig document from r.
func LoadLoaderConfig(r io.Reader) (*LoaderConfig, error) {
	var cfg LoaderConfig
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&cfg); err != nil {
		return nil, &ConfigurationError{Message: "decoding loader configuration", Cause: err}
	}
	return &cfg, nil
}

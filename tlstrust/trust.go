package tlstrust

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

var (
	// ErrNotTLS reports that the stream error was not a TLS trust error
	// and negotiation does not apply.
	ErrNotTLS = errors.New("not a tls trust error")
	// ErrRefused reports that the user declined the trust confirmation.
	ErrRefused = errors.New("certificate refused by user")
	// ErrExhausted reports that the error's relaxation bucket was already
	// granted and the failure persists.
	ErrExhausted = errors.New("tls relaxation already granted")
)

// Bucket classifies a TLS trust failure into the relaxation it may be
// resolved by.
type Bucket int

const (
	BucketNone Bucket = iota
	// BucketLegacyVersion: protocol/handshake-class failures that a
	// fallback to a legacy protocol version may fix.
	BucketLegacyVersion
	// BucketExpiredCert: certificate expired or not yet valid.
	BucketExpiredCert
	// BucketBadCert: bad certificate, broken chain or hostname mismatch.
	BucketBadCert
	// BucketAnyRoot: unknown or missing root certificate.
	BucketAnyRoot
)

// Classify maps a stream error to its relaxation bucket, walking the
// wrapped error chain. BucketNone means the error is not a TLS trust
// failure.
func Classify(err error) Bucket {
	if err == nil {
		return BucketNone
	}
	var invalid x509.CertificateInvalidError
	if errors.As(err, &invalid) {
		switch invalid.Reason {
		case x509.Expired:
			return BucketExpiredCert
		default:
			return BucketBadCert
		}
	}
	var hostname x509.HostnameError
	if errors.As(err, &hostname) {
		return BucketBadCert
	}
	var unknownAuthority x509.UnknownAuthorityError
	if errors.As(err, &unknownAuthority) {
		return BucketAnyRoot
	}
	var systemRoots x509.SystemRootsError
	if errors.As(err, &systemRoots) {
		return BucketAnyRoot
	}
	var record tls.RecordHeaderError
	if errors.As(err, &record) {
		return BucketLegacyVersion
	}
	var alert tls.AlertError
	if errors.As(err, &alert) {
		return BucketLegacyVersion
	}
	return BucketNone
}

// IsTLSError reports whether err belongs to the TLS trust error domain.
func IsTLSError(err error) bool {
	return Classify(err) != BucketNone
}

// Store is the accumulated set of trust relaxations granted for this
// process. It only grows; nothing is forgotten until restart. The set is
// deliberately process-wide rather than per-host, matching the mount
// model of one server per process.
type Store struct {
	mu sync.Mutex

	legacyVersion bool
	allowExpired  bool
	chainValidOff bool
	allowAnyRoot  bool

	gen uint64
}

func NewStore() *Store {
	return &Store{gen: 1}
}

// Generation changes every time a relaxation is granted; transports built
// against an older generation must be rebuilt.
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

func (s *Store) granted(b Bucket) bool {
	switch b {
	case BucketLegacyVersion:
		return s.legacyVersion
	case BucketExpiredCert:
		return s.allowExpired
	case BucketBadCert:
		return s.chainValidOff
	case BucketAnyRoot:
		return s.allowAnyRoot
	}
	return false
}

func (s *Store) grant(b Bucket) {
	switch b {
	case BucketLegacyVersion:
		s.legacyVersion = true
	case BucketExpiredCert:
		s.allowExpired = true
	case BucketBadCert:
		s.chainValidOff = true
	case BucketAnyRoot:
		s.allowAnyRoot = true
	}
	s.gen++
}

// Negotiate handles one TLS trust failure. A nil return means a new
// relaxation was granted and the whole transaction should be retried.
// ErrRefused means the user declined; ErrExhausted means the bucket was
// already granted and the failure persists; ErrNotTLS means cause is not
// a trust error at all.
func (s *Store) Negotiate(ctx context.Context, cause error, host string, chain [][]byte, confirmer IConfirmer) error {
	bucket := Classify(cause)
	if bucket == BucketNone {
		return ErrNotTLS
	}

	s.mu.Lock()
	already := s.granted(bucket)
	s.mu.Unlock()
	if already {
		return ErrExhausted
	}

	if bucket == BucketLegacyVersion {
		// no user confirmation needed for a protocol version fallback
		s.mu.Lock()
		s.grant(bucket)
		s.mu.Unlock()
		logutil.GetLogger(ctx).Info("falling back to legacy tls version", zap.String("host", host))
		return nil
	}

	ok, err := confirmer.Confirm(ctx, TrustDecision{
		CertificateChain: chain,
		TrustError:       int32(bucket),
		ErrorDetail:      cause.Error(),
		ServerHostName:   host,
	})
	if err != nil {
		logutil.GetLogger(ctx).Error("trust confirmation failed", zap.Error(err), zap.String("host", host))
		return ErrRefused
	}
	if !ok {
		return ErrRefused
	}

	s.mu.Lock()
	s.grant(bucket)
	s.mu.Unlock()
	logutil.GetLogger(ctx).Info("trust relaxation granted",
		zap.Int("bucket", int(bucket)), zap.String("host", host))
	return nil
}

// Config builds the TLS client configuration that applies every
// relaxation granted so far.
func (s *Store) Config(serverName string) *tls.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg := &tls.Config{ServerName: serverName}
	if s.legacyVersion {
		cfg.MinVersion = tls.VersionTLS10
	}
	if s.chainValidOff || s.allowExpired || s.allowAnyRoot {
		// the standard verifier cannot express partial relaxations, so
		// verification moves into verifyPeer; with chain validation off
		// there is nothing left to verify.
		cfg.InsecureSkipVerify = true
		if !s.chainValidOff {
			cfg.VerifyPeerCertificate = s.verifyPeer(serverName)
		}
	}
	return cfg
}

func (s *Store) verifyPeer(serverName string) func([][]byte, [][]*x509.Certificate) error {
	return func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
		certs := make([]*x509.Certificate, 0, len(rawCerts))
		for _, raw := range rawCerts {
			c, err := x509.ParseCertificate(raw)
			if err != nil {
				return err
			}
			certs = append(certs, c)
		}
		if len(certs) == 0 {
			return errors.New("no peer certificates")
		}
		opts := x509.VerifyOptions{
			DNSName:       serverName,
			Intermediates: x509.NewCertPool(),
		}
		for _, c := range certs[1:] {
			opts.Intermediates.AddCert(c)
		}
		_, err := certs[0].Verify(opts)
		if err == nil {
			return nil
		}

		s.mu.Lock()
		allowExpired, allowAnyRoot := s.allowExpired, s.allowAnyRoot
		s.mu.Unlock()

		var invalid x509.CertificateInvalidError
		if errors.As(err, &invalid) && invalid.Reason == x509.Expired && allowExpired {
			// re-verify inside the certificate's own validity window
			opts.CurrentTime = certs[0].NotBefore.Add(certs[0].NotAfter.Sub(certs[0].NotBefore) / 2)
			if _, err2 := certs[0].Verify(opts); err2 == nil {
				return nil
			}
		}
		var unknownAuthority x509.UnknownAuthorityError
		var systemRoots x509.SystemRootsError
		if (errors.As(err, &unknownAuthority) || errors.As(err, &systemRoots)) && allowAnyRoot {
			return nil
		}
		return err
	}
}

package httpclient

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// Kind classifies a transport fault.
type Kind int

const (
	// KindProtocol is an HTTP response with status >= 400.
	KindProtocol Kind = iota
	// KindConnection covers DNS and TCP failures.
	KindConnection
	// KindTimeout is a request deadline expiry.
	KindTimeout
	// KindTLS is a certificate or handshake failure.
	KindTLS
	// KindOther is any fault that fits no other category.
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindProtocol:
		return "protocol"
	case KindConnection:
		return "connection"
	case KindTimeout:
		return "timeout"
	case KindTLS:
		return "tls"
	default:
		return "other"
	}
}

// Error is the typed transport fault returned by the client. Raw library
// errors never escape past this boundary.
type Error struct {
	Kind       Kind
	StatusCode int // set for KindProtocol
	URL        string
	Message    string
}

func (e *Error) Error() string {
	if e.Kind == KindProtocol {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// classify converts an error from the underlying transport into an *Error.
func classify(err error, rawURL string) *Error {
	var (
		netErr    net.Error
		dnsErr    *net.DNSError
		opErr     *net.OpError
		certErr   *tls.CertificateVerificationError
		x509Err   x509.UnknownAuthorityError
		recordErr tls.RecordHeaderError
	)

	if errors.As(err, &netErr) && netErr.Timeout() || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, URL: rawURL, Message: "request timed out"}
	}

	var uerr *url.Error
	if errors.As(err, &uerr) {
		err = uerr.Err
	}

	switch {
	case errors.As(err, &certErr), errors.As(err, &x509Err), errors.As(err, &recordErr):
		return &Error{Kind: KindTLS, URL: rawURL, Message: err.Error()}
	case errors.As(err, &dnsErr), errors.As(err, &opErr):
		return &Error{Kind: KindConnection, URL: rawURL, Message: err.Error()}
	default:
		return &Error{Kind: KindOther, URL: rawURL, Message: err.Error()}
	}
}

package domain

import "fmt"

// CredentialKind identifies a credential source variant
type CredentialKind string

const (
	CredentialCaller  CredentialKind = "caller"  // Cookie header supplied with the request
	CredentialSession CredentialKind = "session" // Cookies obtained through a login round-trip
	CredentialJar     CredentialKind = "jar"     // Netscape cookie jar on disk
	CredentialNone    CredentialKind = "none"    // Anonymous
)

// DefaultCredentialOrder is the fixed priority used unless configured otherwise
var DefaultCredentialOrder = []CredentialKind{
	CredentialCaller,
	CredentialSession,
	CredentialJar,
	CredentialNone,
}

// CredentialSource is one way of authenticating an extraction request
type CredentialSource struct {
	Kind         CredentialKind
	CookieHeader string // caller and session variants
	JarPath      string // jar variant
}

// Anonymous returns the None credential
func Anonymous() CredentialSource {
	return CredentialSource{Kind: CredentialNone}
}

// String renders the source without leaking cookie values
func (c CredentialSource) String() string {
	switch c.Kind {
	case CredentialJar:
		return fmt.Sprintf("jar(%s)", c.JarPath)
	case CredentialCaller, CredentialSession:
		return fmt.Sprintf("%s(%d bytes)", c.Kind, len(c.CookieHeader))
	default:
		return string(CredentialNone)
	}
}

// ParseCredentialKind validates a configured credential kind
func ParseCredentialKind(s string) (CredentialKind, error) {
	switch k := CredentialKind(s); k {
	case CredentialCaller, CredentialSession, CredentialJar, CredentialNone:
		return k, nil
	default:
		return "", fmt.Errorf("unknown credential source: %q", s)
	}
}

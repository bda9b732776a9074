package guard

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// LookupHostFunc resolves a hostname to IP literals. Injectable so
// policy tests never touch real DNS.
type LookupHostFunc func(host string) ([]string, error)

// NetworkPolicy validates outbound fetch targets for the url_fetch
// collaborator: URL prefix allowlisting plus denial of private,
// loopback and link-local destinations (both literal IPs and, when
// ResolveDNS is set, hostnames that resolve to them).
type NetworkPolicy struct {
	AllowedURLPrefixes []string
	DenyPrivateIPs     bool
	ResolveDNS         bool
	LookupHost         LookupHostFunc
}

// CheckURL returns a non-nil error when rawURL is not permitted.
func (p NetworkPolicy) CheckURL(rawURL string) error {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return fmt.Errorf("empty url")
	}
	if !URLAllowedByPrefixes(rawURL, p.AllowedURLPrefixes) {
		return fmt.Errorf("url %q does not match any allowed prefix", rawURL)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	return p.CheckHost(u.Hostname())
}

// CheckHost returns a non-nil error when host is a denied destination.
func (p NetworkPolicy) CheckHost(host string) error {
	if !p.DenyPrivateIPs {
		return nil
	}
	return ResolveAndCheckHost(host, p.ResolveDNS, p.LookupHost)
}

// ResolveAndCheckHost denies private destinations. Literal IPs are
// checked directly; non-IP hostnames are resolved through lookup when
// resolveDNS is set, and denied when any resolved address is private.
// A nil lookup falls back to net.LookupHost.
func ResolveAndCheckHost(host string, resolveDNS bool, lookup LookupHostFunc) error {
	host = strings.TrimSpace(host)
	if host == "" {
		return fmt.Errorf("empty host")
	}
	if IsDeniedPrivateHost(host) {
		return fmt.Errorf("host %q is a private or local destination", host)
	}
	if net.ParseIP(host) != nil || !resolveDNS {
		return nil
	}
	if lookup == nil {
		lookup = net.LookupHost
	}
	addrs, err := lookup(host)
	if err != nil {
		return fmt.Errorf("cannot resolve host %q: %w", host, err)
	}
	for _, addr := range addrs {
		if IsDeniedPrivateHost(addr) {
			return fmt.Errorf("host %q resolves to private address %q", host, addr)
		}
	}
	return nil
}

// IsDeniedPrivateHost reports whether host is, at the literal level, a
// private or local destination: localhost, loopback, RFC1918 ranges,
// link-local (including the cloud metadata address) and unspecified
// addresses. Non-IP hostnames are not denied here; DNS-level checks
// are ResolveAndCheckHost's job.
func IsDeniedPrivateHost(host string) bool {
	host = strings.TrimSpace(strings.ToLower(host))
	if host == "" || host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified()
}

// URLAllowedByPrefixes reports whether rawURL begins with one of the
// configured prefixes. An empty allowlist permits nothing.
func URLAllowedByPrefixes(rawURL string, prefixes []string) bool {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return false
	}
	for _, p := range prefixes {
		p = strings.TrimSpace(p)
		if p != "" && strings.HasPrefix(rawURL, p) {
			return true
		}
	}
	return false
}

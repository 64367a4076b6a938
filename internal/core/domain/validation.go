package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxSubdomainLength is the DNS label limit subdomains must fit in.
const MaxSubdomainLength = 63

var (
	validSubdomainRegex = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)
	invalidCharsRegex   = regexp.MustCompile(`[^a-z0-9-]+`)
	hyphenRunRegex      = regexp.MustCompile(`-{2,}`)
	validHostLabelRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?$`)
)

// Hostnames that must never be handed out as site subdomains.
var reservedSubdomains = map[string]bool{
	"www":      true,
	"api":      true,
	"app":      true,
	"admin":    true,
	"mail":     true,
	"ftp":      true,
	"staging":  true,
	"locasite": true,
}

// NormalizeSubdomain lowers the input and reduces it to the subdomain
// alphabet: apostrophes are dropped, runs of anything else outside
// [a-z0-9-] become a single hyphen, hyphen runs collapse, and
// leading/trailing hyphens are trimmed. "Joe's Diner!" becomes
// "joes-diner".
func NormalizeSubdomain(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	s = strings.ReplaceAll(s, "'", "")
	s = invalidCharsRegex.ReplaceAllString(s, "-")
	s = hyphenRunRegex.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > MaxSubdomainLength {
		s = strings.Trim(s[:MaxSubdomainLength], "-")
	}
	return s
}

// ValidateSubdomain checks a normalized candidate against the subdomain
// rules: non-empty, at most 63 chars, [a-z0-9-] with no leading/trailing
// hyphen, and not on the reserved list.
func ValidateSubdomain(s string) error {
	if s == "" {
		return fmt.Errorf("subdomain cannot be empty")
	}
	if len(s) > MaxSubdomainLength {
		return fmt.Errorf("subdomain exceeds %d characters", MaxSubdomainLength)
	}
	if !validSubdomainRegex.MatchString(s) {
		return fmt.Errorf("subdomain %q contains invalid characters or format", s)
	}
	if reservedSubdomains[s] {
		return fmt.Errorf("subdomain %q is reserved", s)
	}
	return nil
}

// ValidateCustomDomain checks a user-supplied custom domain: bare hostname
// (no scheme, path or port), at least two labels, each label valid.
func ValidateCustomDomain(name string) error {
	if name == "" {
		return fmt.Errorf("domain cannot be empty")
	}
	if strings.Contains(name, "://") || strings.ContainsAny(name, "/: ") {
		return fmt.Errorf("domain must be a bare hostname, got %q", name)
	}
	if len(name) > 253 {
		return fmt.Errorf("domain exceeds 253 characters")
	}
	labels := strings.Split(strings.TrimSuffix(name, "."), ".")
	if len(labels) < 2 {
		return fmt.Errorf("domain %q must contain at least one dot", name)
	}
	for _, label := range labels {
		if label == "" {
			return fmt.Errorf("domain contains empty label")
		}
		if !validHostLabelRegex.MatchString(label) {
			return fmt.Errorf("label %q contains invalid characters or format", label)
		}
	}
	return nil
}

// ApexName returns the registrable apex for a custom domain, e.g.
// "www.joesdiner.com" -> "joesdiner.com". Multi-label public suffixes are
// not resolved here; the provider response is authoritative when present.
func ApexName(name string) string {
	labels := strings.Split(strings.TrimSuffix(name, "."), ".")
	if len(labels) <= 2 {
		return strings.TrimSuffix(name, ".")
	}
	return strings.Join(labels[len(labels)-2:], ".")
}

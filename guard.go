package callout

import (
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// domainGuard gates outbound calls on the parent domain of the target host.
// The allow-list is configured once and immutable for the lifetime of the
// engine; an empty list permits every host (fail-open by configuration).
type domainGuard struct {
	allowed []string
	log     *zap.Logger
}

func newDomainGuard(domains []string, log *zap.Logger) *domainGuard {
	allowed := make([]string, 0, len(domains))
	for _, d := range domains {
		allowed = append(allowed, strings.ToLower(d))
	}

	return &domainGuard{
		allowed: allowed,
		log:     log,
	}
}

// Permit reports whether the target URL's host is allowed to be called.
func (g *domainGuard) Permit(u *url.URL) bool {
	if u == nil {
		g.log.Debug("provided url for domain restriction checking is nil")
		return false
	}

	if len(g.allowed) == 0 {
		g.log.Debug("no domains configured for domain restriction, allowing url by default",
			zap.String("url", u.String()))

		return true
	}

	domain := parentDomain(u.Hostname())
	if domain == "" {
		g.log.Error("unable to determine the domain of the url", zap.String("url", u.String()))
		return false
	}

	for _, allowed := range g.allowed {
		if domain == allowed {
			return true
		}
	}

	g.log.Debug("domain is not available in the allowed domain list",
		zap.String("domain", domain),
		zap.String("url", u.String()),
		zap.Strings("allowed_domains", g.allowed),
	)

	return false
}

// parentDomain extracts the parent domain from a host: the single label of a
// one-label host, otherwise the second-to-last label ("a.b.example.com" ->
// "example"). The two-label rule is deliberately naive and relied upon by
// existing allow-list configurations ("login.example.co.uk" -> "co").
func parentDomain(host string) string {
	if host == "" {
		return ""
	}

	labels := strings.FieldsFunc(host, func(r rune) bool { return r == '.' })
	if len(labels) == 0 {
		return ""
	}

	parent := labels[len(labels)-1]
	if len(labels) > 1 {
		parent = labels[len(labels)-2]
	}

	return strings.ToLower(parent)
}

package factor

import (
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// defaultTrustedDomains are well-known data publishers. Entries are matched on
// their registrable domain, so api.binance.com matches binance.com.
var defaultTrustedDomains = []string{
	"chain.link",
	"coingecko.com",
	"coinmarketcap.com",
	"coinbase.com",
	"binance.com",
	"kraken.com",
	"pyth.network",
	"bandprotocol.com",
	"api3.org",
	"openweathermap.org",
	"weather.gov",
	"noaa.gov",
	"nasa.gov",
	"ecb.europa.eu",
	"federalreserve.gov",
	"espn.com",
	"snapshot.org",
	"tally.xyz",
}

// DomainClassifier decides whether an attested domain is on the allow-list
type DomainClassifier struct {
	exact       map[string]bool
	registrable map[string]bool
}

// NewDomainClassifier builds a classifier over the built-in list plus extra
func NewDomainClassifier(extra []string) *DomainClassifier {
	c := &DomainClassifier{
		exact:       make(map[string]bool),
		registrable: make(map[string]bool),
	}
	for _, list := range [][]string{defaultTrustedDomains, extra} {
		for _, d := range list {
			host := NormalizeHost(d)
			if host == "" {
				continue
			}
			c.exact[host] = true
			c.registrable[registrableDomain(host)] = true
		}
	}
	return c
}

// IsTrusted reports whether domain (a host or URL) belongs to a trusted publisher
func (c *DomainClassifier) IsTrusted(domain string) bool {
	host := NormalizeHost(domain)
	if host == "" {
		return false
	}
	if c.exact[host] {
		return true
	}
	return c.registrable[registrableDomain(host)]
}

// NormalizeHost lowercases a host or URL and strips scheme, port and trailing dot
func NormalizeHost(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return ""
	}
	if strings.Contains(s, "://") {
		parsed, err := url.Parse(s)
		if err != nil {
			return ""
		}
		s = parsed.Host
	}
	if h, _, err := net.SplitHostPort(s); err == nil {
		s = h
	}
	return strings.TrimSuffix(s, ".")
}

// registrableDomain returns eTLD+1, or the host itself for IPs and bare suffixes
func registrableDomain(host string) string {
	if net.ParseIP(host) != nil {
		return host
	}
	d, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return d
}

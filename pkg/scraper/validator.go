package scraper

import (
	"net/url"
	"strings"
)

const articlePathPrefix = "/wiki/"

var DefaultExcludedNamespaces = []string{"Special", "Talk", "Help"}

// Validator accepts only article pages on the configured host.
type Validator struct {
	host     string
	excluded []string
}

func NewValidator(host string, excludedNamespaces []string) *Validator {
	if host == "" {
		host = "wikipedia.org"
	}
	if len(excludedNamespaces) == 0 {
		excludedNamespaces = DefaultExcludedNamespaces
	}
	return &Validator{
		host:     strings.ToLower(host),
		excluded: excludedNamespaces,
	}
}

// Validate returns an *InvalidURLError when rawURL does not point at an
// article on the host. It performs no I/O.
func (v *Validator) Validate(rawURL string) error {
	parsedURL, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return &InvalidURLError{URL: rawURL, Reason: "URL cannot be parsed"}
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return &InvalidURLError{URL: rawURL, Reason: "URL must use http or https"}
	}

	host := strings.ToLower(parsedURL.Hostname())
	if host != v.host && !strings.HasSuffix(host, "."+v.host) {
		return &InvalidURLError{URL: rawURL, Reason: "URL must be a Wikipedia article (" + v.host + ")"}
	}

	if !strings.HasPrefix(parsedURL.Path, articlePathPrefix) || len(parsedURL.Path) == len(articlePathPrefix) {
		return &InvalidURLError{URL: rawURL, Reason: "URL must point at an article under " + articlePathPrefix}
	}

	for _, ns := range v.excluded {
		if strings.HasPrefix(parsedURL.Path, articlePathPrefix+ns+":") {
			return &InvalidURLError{URL: rawURL, Reason: "URL must be a standard article, not a " + ns + " page"}
		}
	}

	return nil
}

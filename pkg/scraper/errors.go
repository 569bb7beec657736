package scraper

import "fmt"

// InvalidURLError reports a URL that is not a Wikipedia article.
type InvalidURLError struct {
	URL    string
	Reason string
}

func (e *InvalidURLError) Error() string {
	return fmt.Sprintf("invalid article URL %q: %s", e.URL, e.Reason)
}

// FetchError is returned once every fetch attempt has failed. It wraps the
// error of the last attempt.
type FetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s failed after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

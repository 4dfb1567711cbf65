// Package scrapers holds what the page scrapers of the upstream site share.
package scrapers

import (
	"errors"

	"precisebet/lib/fetch"
	"precisebet/lib/useragent"
)

// ErrNotFound means an expected element or pattern is missing from a page.
var ErrNotFound = errors.New("not found on page")

// PageEncoding is the charset of every page on the site except the ajax
// endpoints.
const PageEncoding = "gb2312"

type Options struct {
	Fetcher fetch.Fetcher
	Agent   useragent.Source
	// Attempts is passed through to the fetcher, 0 retries forever.
	Attempts int
}

// Get builds a GET request with the next user agent.
func (o Options) Get(url, encoding string) fetch.Request {
	return fetch.Request{
		URL:       url,
		UserAgent: o.userAgent(),
		Encoding:  encoding,
		Attempts:  o.Attempts,
	}
}

// Post builds a form POST request with the next user agent.
func (o Options) Post(url, encoding string, form map[string]string) fetch.Request {
	req := o.Get(url, encoding)
	req.Method = "POST"
	req.Form = form
	return req
}

func (o Options) userAgent() string {
	if o.Agent == nil {
		return useragent.DefaultUserAgent
	}
	return o.Agent.Next()
}

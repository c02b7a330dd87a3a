package scraper

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/aluiziolira/go-catalog-watch/config"
	"github.com/gocolly/colly/v2"
)

const responseKey = "response"

// Response is the part of an HTTP response the watcher consumes.
type Response struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

// Transport issues GET requests through a switchable egress proxy.
type Transport interface {
	Get(rawURL string, header http.Header) (*Response, error)
	SetProxy(proxyURL *url.URL)
}

// Client is a Transport backed by a colly collector. Each poller owns its own
// Client so cookies and proxy selection are never shared.
type Client struct {
	collector *colly.Collector
	proxy     *url.URL
}

// NewClient builds a client configured from cfg.
func NewClient(cfg *config.Config) (*Client, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Hostname()),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	collector.SetRequestTimeout(cfg.Timeout)
	collector.ParseHTTPErrorResponse = true

	c := &Client{collector: collector}
	collector.WithTransport(&http.Transport{
		Proxy: c.proxyFor,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}

	// colly only fills in the user agent when the caller passes no headers.
	userAgent := cfg.UserAgent
	collector.OnRequest(func(r *colly.Request) {
		if r.Headers.Get("User-Agent") == "" {
			r.Headers.Set("User-Agent", userAgent)
		}
		for key, value := range defaultHeaders {
			if r.Headers.Get(key) == "" {
				r.Headers.Set(key, value)
			}
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		resp := &Response{StatusCode: r.StatusCode, Body: r.Body}
		if r.Headers != nil {
			resp.Header = r.Headers.Clone()
		}
		r.Ctx.Put(responseKey, resp)
	})

	return c, nil
}

var defaultHeaders = map[string]string{
	"Accept-Language": "en,*;q=0.1",
	"Cache-Control":   "no-cache",
	"Pragma":          "no-cache",
}

// Get issues one GET request. Non-2xx statuses are returned as a Response, not
// an error; the error is reserved for requests that produced no response.
func (c *Client) Get(rawURL string, header http.Header) (*Response, error) {
	ctx := colly.NewContext()
	if err := c.collector.Request(http.MethodGet, rawURL, nil, ctx, header); err != nil {
		return nil, err
	}
	resp, ok := ctx.GetAny(responseKey).(*Response)
	if !ok {
		return nil, errors.New("request produced no response")
	}
	return resp, nil
}

// SetProxy routes subsequent requests through proxyURL, or directly when nil.
func (c *Client) SetProxy(proxyURL *url.URL) {
	c.proxy = proxyURL
}

func (c *Client) proxyFor(*http.Request) (*url.URL, error) {
	return c.proxy, nil
}

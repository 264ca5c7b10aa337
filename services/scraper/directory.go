package scraper

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

// ErrMarkup marks a page whose expected elements are absent. These failures
// are permanent for a given response and must not be retried.
var ErrMarkup = errors.New("unexpected page markup")

// Client scrapes issuer listings and per-instrument trade history from the
// exchange web site.
type Client struct {
	httpClient *http.Client
	baseURL    string
	historyURL string
}

// NewClient creates a scraper client for the given source URLs.
func NewClient(baseURL, historyURL string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:    baseURL,
		historyURL: historyURL,
	}
}

// getDocument fetches a URL and parses it into a goquery document.
func (c *Client) getDocument(url string) (*goquery.Document, error) {
	resp, err := c.httpClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch %s: status %d, body: %s", url, resp.StatusCode, string(body))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	return doc, nil
}

func containsDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// FetchIssuerCodes resolves the current universe of instrument codes. The
// first code on the issuer listing primes a history-page fetch whose code
// dropdown carries the full candidate set. Codes containing digits are bonds
// and other non-equity listings, and are excluded.
func (c *Client) FetchIssuerCodes() ([]string, error) {
	doc, err := c.getDocument(c.baseURL)
	if err != nil {
		return nil, err
	}

	firstIssuer := strings.TrimSpace(doc.Find("#otherlisting-table tbody tr td").First().Text())
	if firstIssuer == "" {
		return nil, fmt.Errorf("%w: no issuer rows in %s", ErrMarkup, c.baseURL)
	}

	doc, err = c.getDocument(c.historyURL + firstIssuer)
	if err != nil {
		return nil, err
	}

	options := doc.Find("#Code option")
	if options.Length() == 0 {
		return nil, fmt.Errorf("%w: code dropdown missing on history page for %s", ErrMarkup, firstIssuer)
	}

	seen := make(map[string]bool)
	var codes []string
	options.Each(func(_ int, s *goquery.Selection) {
		code := strings.TrimSpace(s.Text())
		if code == "" || containsDigit(code) || seen[code] {
			return
		}
		seen[code] = true
		codes = append(codes, code)
	})

	return codes, nil
}

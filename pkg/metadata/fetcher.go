package metadata

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
)

const userAgent = "Mozilla/5.0 (compatible; Commitly/1.0)"

var urlPattern = regexp.MustCompile(`(?i)https?://[\w\-._~:/?#\[\]@!$&'()*+,;=%]+`)

// Fetcher resolves best-effort title and image metadata for a shared link.
// Every failure is absorbed: a fetch returns an empty string, never an error.
type Fetcher interface {
	FetchTitle(ctx context.Context, url string) string
	FetchImageURL(ctx context.Context, url string) string
}

// ExtractURL finds the first URL in a block of shared text.
func ExtractURL(sharedText string) string {
	return urlPattern.FindString(sharedText)
}

// HTTPFetcher scrapes Open Graph / Twitter card tags from the linked page.
type HTTPFetcher struct {
	client *http.Client
}

func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (f *HTTPFetcher) FetchTitle(ctx context.Context, url string) string {
	doc := f.load(ctx, url)
	if doc == nil {
		return ""
	}

	// Open Graph title first, then Twitter card, then the document title.
	if title := content(doc, `meta[property="og:title"]`); title != "" {
		return title
	}
	if title := content(doc, `meta[name="twitter:title"]`); title != "" {
		return title
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

func (f *HTTPFetcher) FetchImageURL(ctx context.Context, url string) string {
	doc := f.load(ctx, url)
	if doc == nil {
		return ""
	}

	if image := content(doc, `meta[property="og:image"]`); image != "" {
		return image
	}
	return content(doc, `meta[name="twitter:image"]`)
}

func (f *HTTPFetcher) load(ctx context.Context, url string) *goquery.Document {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.Debugf("could not build metadata request for %s: %v", url, err)
		return nil
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		log.Debugf("metadata fetch failed for %s: %v", url, err)
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Debugf("metadata fetch for %s returned status %d", url, resp.StatusCode)
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		log.Debugf("could not parse page at %s: %v", url, err)
		return nil
	}
	return doc
}

func content(doc *goquery.Document, selector string) string {
	value, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(value)
}

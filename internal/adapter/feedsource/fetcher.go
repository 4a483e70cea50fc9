// Package feedsource reads RSS/Atom feeds and article pages over HTTP.
package feedsource

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"quietly-stated/internal/domain"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

const (
	// rssContentMinChars is the length above which feed content is used as is.
	rssContentMinChars = 500
	// selectorMinChars is the length a selector's text must exceed to be kept.
	selectorMinChars = 200
	maxArticleChars  = 10000
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "QuietlyStated/1.0"
)

// contentSelectors are tried in order when extracting page text.
var contentSelectors = []string{
	"article",
	".article-content",
	".post-content",
	".entry-content",
	"main",
	"body",
}

type Options struct {
	Timeout   time.Duration
	UserAgent string
	// Client overrides the HTTP client. Its Timeout is left untouched.
	Client *http.Client
}

// Fetcher implements domain.FeedFetcher.
type Fetcher struct {
	client    *http.Client
	userAgent string
	logger    *slog.Logger
}

var _ domain.FeedFetcher = (*Fetcher)(nil)

func New(opts Options, logger *slog.Logger) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &Fetcher{client: client, userAgent: opts.UserAgent, logger: logger}
}

// Fetch parses the feed at url. Entries without a publish date are stamped now.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]domain.FeedItem, error) {
	fp := gofeed.NewParser()
	fp.Client = f.client
	fp.UserAgent = f.userAgent

	feed, err := fp.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", url, err)
	}

	now := time.Now().UTC()
	items := make([]domain.FeedItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		item := domain.FeedItem{
			Title:       it.Title,
			Link:        it.Link,
			Summary:     StripTags(it.Description),
			Content:     it.Content,
			Author:      authorName(it),
			Tags:        it.Categories,
			PublishedAt: now,
		}
		if it.PublishedParsed != nil {
			item.PublishedAt = it.PublishedParsed.UTC()
		}
		items = append(items, item)
	}

	f.logger.DebugContext(ctx, "feed parsed", "url", url, "title", feed.Title, "entries", len(items))
	return items, nil
}

func authorName(it *gofeed.Item) string {
	if it.Author != nil && it.Author.Name != "" {
		return it.Author.Name
	}
	for _, a := range it.Authors {
		if a != nil && a.Name != "" {
			return a.Name
		}
	}
	return ""
}

// ArticleText returns plain text for an article. Long feed content wins;
// otherwise the page is fetched. Fetch failures fall back to the feed content.
func (f *Fetcher) ArticleText(ctx context.Context, url, rssContent string) (string, error) {
	if utf8.RuneCountInString(rssContent) > rssContentMinChars {
		return PlainText(rssContent), nil
	}

	text, err := f.pageText(ctx, url)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		f.logger.WarnContext(ctx, "failed to fetch article content, using feed content", "url", url, "error", err)
		return PlainText(rssContent), nil
	}
	return text, nil
}

func (f *Fetcher) pageText(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}
	return ExtractPageText(doc), nil
}

// ExtractPageText drops script and style, then keeps the text of the first
// content selector longer than selectorMinChars, else the whole document.
func ExtractPageText(doc *goquery.Document) string {
	doc.Find("script, style").Remove()

	text := ""
	for _, selector := range contentSelectors {
		el := doc.Find(selector).First()
		if el.Length() == 0 {
			continue
		}
		text = selectionText(el)
		if utf8.RuneCountInString(text) > selectorMinChars {
			break
		}
	}
	if utf8.RuneCountInString(text) < selectorMinChars {
		text = selectionText(doc.Selection)
	}
	return truncate(text, maxArticleChars)
}

// PlainText strips markup from an HTML fragment.
func PlainText(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return strings.TrimSpace(fragment)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	doc.Find("script, style").Remove()
	return selectionText(doc.Selection)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

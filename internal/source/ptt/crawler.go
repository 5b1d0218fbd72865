package ptt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"ptt_crawler/internal/domain"
	"ptt_crawler/internal/parser"
)

var (
	// ErrNoArticles is returned when a page or range yields nothing and no
	// more specific failure was recorded.
	ErrNoArticles   = errors.New("no articles found")
	ErrInvalidRange = errors.New("invalid page range")
)

var pageIndexRe = regexp.MustCompile(`index(\d+)\.html`)

// Fetcher retrieves and parses one HTML document.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*goquery.Document, error)
}

// Crawler walks board listings and assembles the articles they link to.
type Crawler struct {
	fetcher         Fetcher
	parser          *parser.Parser
	baseURL         *url.URL
	concurrency     int
	pageConcurrency int
	logger          *slog.Logger
}

func NewCrawler(fetcher Fetcher, p *parser.Parser, cfg Config, logger *slog.Logger) (*Crawler, error) {
	raw := cfg.BaseURL
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	return &Crawler{
		fetcher:         fetcher,
		parser:          p,
		baseURL:         base,
		concurrency:     max(cfg.Concurrency, 1),
		pageConcurrency: max(cfg.PageConcurrency, 1),
		logger:          logger,
	}, nil
}

// ListingURL returns the board index page URL. Page 0 is the latest page.
func (c *Crawler) ListingURL(board domain.BoardName, page int) string {
	name := "index.html"
	if page > 0 {
		name = "index" + strconv.Itoa(page) + ".html"
	}
	return c.baseURL.JoinPath("bbs", board.String(), name).String()
}

// CrawlURL fetches and assembles a single article.
func (c *Crawler) CrawlURL(ctx context.Context, articleURL string) (*domain.Article, error) {
	doc, err := c.fetcher.Fetch(ctx, articleURL)
	if err != nil {
		return nil, err
	}
	article, err := c.parser.Parse(doc)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", articleURL, err)
	}
	return article, nil
}

// CrawlPage returns the articles linked from one listing page in listing
// order. Articles that fail are logged and left out; the call fails only
// when none could be assembled.
func (c *Crawler) CrawlPage(ctx context.Context, board domain.BoardName, page int) ([]domain.Article, error) {
	logger := c.logger.With("board", board.String(), "page", page)

	doc, err := c.fetcher.Fetch(ctx, c.ListingURL(board, page))
	if err != nil {
		return nil, fmt.Errorf("fetch page %d: %w", page, err)
	}

	urls := c.articleURLs(doc)
	logger.Debug("listing fetched", "links", len(urls))

	// Each goroutine owns its slot, so listing order survives any
	// completion order.
	articles := make([]*domain.Article, len(urls))
	errs := make([]error, len(urls))

	g := new(errgroup.Group)
	g.SetLimit(c.concurrency)
	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			article, err := c.CrawlURL(ctx, u)
			if err != nil {
				errs[i] = err
				if errors.Is(err, parser.ErrDeletedArticle) {
					logger.Info("article deleted", "url", u)
				} else {
					logger.Warn("dropped article", "url", u, "error", err)
				}
				return nil
			}
			articles[i] = article
			return nil
		})
	}
	_ = g.Wait()

	result := make([]domain.Article, 0, len(articles))
	for _, a := range articles {
		if a != nil {
			result = append(result, *a)
		}
	}
	if len(result) == 0 {
		return nil, lastError(errs)
	}
	return result, nil
}

// articleURLs lists absolute article links in listing order. Rows without
// anchor text are removed entries and carry no link.
func (c *Crawler) articleURLs(doc *goquery.Document) []string {
	var urls []string
	doc.Find("div.r-ent").Each(func(_ int, row *goquery.Selection) {
		a := row.Find("div.title a").First()
		if strings.TrimSpace(a.Text()) == "" {
			return
		}
		href, ok := a.Attr("href")
		if !ok || href == "" {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			c.logger.Warn("skipped malformed link", "href", href, "error", err)
			return
		}
		urls = append(urls, c.baseURL.ResolveReference(ref).String())
	})
	return urls
}

// PageCount discovers the newest page number of board from the "previous
// page" link on its latest listing. A board without that link has one page.
func (c *Crawler) PageCount(ctx context.Context, board domain.BoardName) (int, error) {
	doc, err := c.fetcher.Fetch(ctx, c.ListingURL(board, 0))
	if err != nil {
		return 0, fmt.Errorf("fetch latest page: %w", err)
	}

	prev := doc.Find("div.btn-group-paging a").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(s.Text(), "上頁")
	}).First()
	href, ok := prev.Attr("href")
	if !ok {
		return 1, nil
	}

	m := pageIndexRe.FindStringSubmatch(href)
	if m == nil {
		return 0, fmt.Errorf("%w: previous page link %q", parser.ErrInvalidFormat, href)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("%w: page index %q", parser.ErrInvalidFormat, m[1])
	}
	return n + 1, nil
}

// CrawlRange crawls pages first..last inclusive and concatenates their
// articles in ascending page order. A failed page is logged and contributes
// nothing; the call fails only when the whole range yields no article, in
// which case the error of the last failed page is returned.
func (c *Crawler) CrawlRange(ctx context.Context, board domain.BoardName, first, last int) ([]domain.Article, error) {
	if first < 0 || first > last {
		return nil, fmt.Errorf("%w: %d..%d", ErrInvalidRange, first, last)
	}

	pages := make([][]domain.Article, last-first+1)
	errs := make([]error, len(pages))

	g := new(errgroup.Group)
	g.SetLimit(c.pageConcurrency)
	for i := range pages {
		i := i
		page := first + i
		g.Go(func() error {
			articles, err := c.CrawlPage(ctx, board, page)
			if err != nil {
				errs[i] = err
				c.logger.Warn("dropped page",
					"board", board.String(),
					"page", page,
					"error", err,
				)
				return nil
			}
			pages[i] = articles
			return nil
		})
	}
	_ = g.Wait()

	var result []domain.Article
	for _, articles := range pages {
		result = append(result, articles...)
	}
	if len(result) == 0 {
		return nil, lastError(errs)
	}

	c.logger.Info("range crawled",
		"board", board.String(),
		"first", first,
		"last", last,
		"articles", len(result),
	)
	return result, nil
}

// ResolveRange turns the user supplied page bounds into an inclusive range
// within 1..pageCount. No bounds select every page; a single bound runs to
// the newest page; two bounds may be given in either order.
func ResolveRange(pageCount int, bounds []int) (first, last int, err error) {
	switch len(bounds) {
	case 0:
		first, last = 1, pageCount
	case 1:
		first, last = bounds[0], pageCount
	case 2:
		first, last = bounds[0], bounds[1]
	default:
		return 0, 0, fmt.Errorf("%w: expected at most 2 bounds, got %d", ErrInvalidRange, len(bounds))
	}
	if first > last {
		first, last = last, first
	}
	if first < 1 || last > pageCount {
		return 0, 0, fmt.Errorf("%w: should be between 1 and %d", ErrInvalidRange, pageCount)
	}
	return first, last, nil
}

func lastError(errs []error) error {
	for i := len(errs) - 1; i >= 0; i-- {
		if errs[i] != nil {
			return errs[i]
		}
	}
	return ErrNoArticles
}

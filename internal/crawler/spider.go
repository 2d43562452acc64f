package crawler

import (
	"context"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/nao1215/docingest/internal/fault"
	"github.com/nao1215/docingest/internal/fetch"
	"github.com/nao1215/docingest/internal/markup"
	"github.com/nao1215/docingest/internal/metadata"
	"github.com/nao1215/docingest/internal/model"
)

// Default crawl limits.
const (
	DefaultMaxDepth = 3
	DefaultMaxPages = 100
	DefaultDelay    = 500 * time.Millisecond
)

// PageFetcher retrieves pages. *fetch.Fetcher implements it.
type PageFetcher interface {
	Fetch(ctx context.Context, url string, opts fetch.FetchOptions) (*fetch.Response, error)
	Render(ctx context.Context, url string) (*fetch.Response, error)
}

// Spider crawls documentation sites.
//
// Design decision: We call it "Spider" rather than "Crawler" because:
//  1. "Spider" is the traditional term for web crawlers
//  2. Distinguishes the component from the package name
type Spider struct {
	// fetcher performs every request of the crawl.
	fetcher PageFetcher

	// extractor turns page content into sections.
	extractor *markup.Extractor

	// generator turns sections into documents.
	generator *metadata.Generator

	// maxDepth limits how deep to crawl from the starting URL.
	// 0 means only the starting page, 1 means one level of links, etc.
	maxDepth int

	// maxPages limits the total number of pages fetched.
	maxPages int

	// delay is the time to wait between requests.
	delay time.Duration

	// render fetches pages through the script renderer.
	render bool

	// headers are sent with every plain fetch.
	headers map[string]string

	// ignorePatterns are URL path patterns to skip during crawling.
	ignorePatterns []string

	// followPatterns are URL path patterns to follow during crawling.
	// If set, only URLs matching these patterns are crawled.
	followPatterns []string

	logger *slog.Logger
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxDepth sets the maximum crawl depth.
// 0 = only the starting page, 1 = starting page plus linked pages, etc.
func WithMaxDepth(depth int) SpiderOption {
	return func(s *Spider) {
		if depth >= 0 {
			s.maxDepth = depth
		}
	}
}

// WithMaxPages sets the maximum number of pages to fetch.
func WithMaxPages(maxPages int) SpiderOption {
	return func(s *Spider) {
		if maxPages > 0 {
			s.maxPages = maxPages
		}
	}
}

// WithDelay sets the delay between requests.
func WithDelay(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.delay = d
	}
}

// WithRendering fetches pages through the fetcher's script renderer.
func WithRendering(render bool) SpiderOption {
	return func(s *Spider) {
		s.render = render
	}
}

// WithHeaders sets extra request headers.
func WithHeaders(headers map[string]string) SpiderOption {
	return func(s *Spider) {
		s.headers = headers
	}
}

// WithIgnorePatterns sets URL path patterns to skip during crawling.
// Patterns use doublestar glob syntax (e.g., "/admin/**", "*.pdf").
// A pattern without a slash is also matched against the last path element.
func WithIgnorePatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.ignorePatterns = patterns
	}
}

// WithFollowPatterns sets URL path patterns to follow during crawling.
// If set, only URLs matching at least one pattern are crawled.
// The start URL is always crawled.
func WithFollowPatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.followPatterns = patterns
	}
}

// WithExtractor sets the section extractor.
func WithExtractor(e *markup.Extractor) SpiderOption {
	return func(s *Spider) {
		if e != nil {
			s.extractor = e
		}
	}
}

// WithGenerator sets the metadata generator.
func WithGenerator(g *metadata.Generator) SpiderOption {
	return func(s *Spider) {
		if g != nil {
			s.generator = g
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSpider creates a new Spider that fetches through f.
func NewSpider(f PageFetcher, opts ...SpiderOption) *Spider {
	s := &Spider{
		fetcher:   f,
		extractor: markup.NewExtractor(),
		generator: metadata.NewGenerator(),
		maxDepth:  DefaultMaxDepth,
		maxPages:  DefaultMaxPages,
		delay:     DefaultDelay,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Crawl explores the site starting at startURL.
//
// Per-page failures are recorded in the result and the crawl continues.
// The returned error is non-nil only for an invalid start URL or a
// cancelled context; in the latter case the partial result is returned
// as well.
func (s *Spider) Crawl(ctx context.Context, startURL string) (*model.CrawlResult, error) {
	start, err := url.Parse(strings.TrimSpace(startURL))
	if err != nil || (start.Scheme != "http" && start.Scheme != "https") || start.Host == "" {
		return nil, fault.New(fault.KindInvalidInput, "start URL must be an absolute http(s) URL").With("url", startURL)
	}
	startNorm := normalizeURL(start.String())

	result := &model.CrawlResult{
		Documents:      make([]model.Document, 0),
		Pages:          make([]*model.Page, 0),
		RepositoryRefs: make([]model.RepositoryRef, 0),
		Failures:       make([]model.SkippedItem, 0),
	}
	seenRefs := make(map[string]struct{})
	nodes := make(map[string]*model.ContentNode)

	frontier := model.NewFrontier(s.maxDepth)
	frontier.Push(model.FrontierItem{URL: startNorm, Depth: 0})

	fetched := 0
	for frontier.Len() > 0 && fetched < s.maxPages {
		if err := ctx.Err(); err != nil {
			return result, fault.Wrap(fault.KindTimeout, err, "crawl aborted")
		}

		item, _ := frontier.Pop()
		if frontier.IsVisited(item.URL) || item.Depth > frontier.MaxDepth() {
			continue
		}
		frontier.MarkVisited(item.URL)
		fetched++

		v, err := s.visit(ctx, item)
		if err != nil {
			s.fail(result, item.URL, err)
		} else {
			s.record(result, nodes, item, v)
			for _, ref := range v.refs {
				if _, dup := seenRefs[ref.Key()]; dup {
					continue
				}
				seenRefs[ref.Key()] = struct{}{}
				result.RepositoryRefs = append(result.RepositoryRefs, ref)
			}
			if item.Depth < frontier.MaxDepth() {
				for _, link := range v.links {
					link = normalizeURL(link)
					if frontier.IsKnown(link) || !isSameSite(start.Host, link) || !s.shouldCrawl(link) {
						continue
					}
					frontier.Push(model.FrontierItem{URL: link, Depth: item.Depth + 1, Parent: item.URL})
				}
			}
		}

		// Politeness delay
		if s.delay > 0 && frontier.Len() > 0 && fetched < s.maxPages {
			select {
			case <-ctx.Done():
				return result, fault.Wrap(fault.KindTimeout, ctx.Err(), "crawl aborted")
			case <-time.After(s.delay):
			}
		}
	}

	s.logger.Debug("crawl finished",
		"url", startNorm,
		"pages", len(result.Pages),
		"visited", frontier.VisitedCount(),
		"documents", len(result.Documents),
		"failures", len(result.Failures),
		"repositories", len(result.RepositoryRefs),
	)
	return result, nil
}

// visited is everything learned from one page.
type visited struct {
	page     *model.Page
	sections []model.ExtractedSection
	links    []string
	refs     []model.RepositoryRef

	// extractErr is set when the page was fetched but its content could
	// not be turned into sections.
	extractErr error
}

// visit fetches a page and extracts its sections and links.
func (s *Spider) visit(ctx context.Context, item model.FrontierItem) (*visited, error) {
	resp, rendered, err := s.get(ctx, item.URL)
	if err != nil {
		return nil, err
	}

	page := &model.Page{
		URL:         item.URL,
		Parent:      item.Parent,
		Depth:       item.Depth,
		StatusCode:  resp.StatusCode,
		Headers:     resp.Headers,
		ContentType: resp.ContentType,
		Rendered:    rendered,
		FetchedAt:   resp.Timestamp,
		Raw:         []byte(resp.Content),
	}
	page.ComputeHash()
	page.TruncateRaw()

	v := &visited{page: page}

	linkHTML := resp.Content
	switch {
	case page.IsMarkdown() || isMarkdownPath(item.URL):
		v.sections, v.extractErr = s.extractor.ExtractMarkdown(resp.Content)
		if h, err := markup.MarkdownToHTML(resp.Content); err == nil {
			linkHTML = h
		} else {
			linkHTML = ""
		}
	case page.IsHTML() || rendered:
		v.sections, v.extractErr = s.extractor.Extract(resp.Content)
	default:
		return v, nil
	}
	page.SectionCount = len(v.sections)

	if linkHTML != "" {
		parser, err := NewParser(item.URL)
		if err == nil {
			if parsed, err := parser.Parse(strings.NewReader(linkHTML)); err == nil {
				page.Title = parsed.Title
				v.links = parsed.InternalLinks
				v.refs = parsed.RepositoryRefs
			}
		}
	}
	return v, nil
}

// get fetches url, through the renderer when rendering is enabled.
func (s *Spider) get(ctx context.Context, rawURL string) (*fetch.Response, bool, error) {
	if s.render {
		resp, err := s.fetcher.Render(ctx, rawURL)
		return resp, true, err
	}
	resp, err := s.fetcher.Fetch(ctx, rawURL, fetch.FetchOptions{Headers: s.headers})
	return resp, false, err
}

// record adds a fetched page to the result and the content tree.
func (s *Spider) record(result *model.CrawlResult, nodes map[string]*model.ContentNode, item model.FrontierItem, v *visited) {
	result.Pages = append(result.Pages, v.page)

	if v.extractErr != nil {
		s.fail(result, item.URL, v.extractErr)
	}

	u, _ := url.Parse(item.URL)
	node := model.NewContentNode(item.URL, u.Path, item.Depth)
	node.Title = v.page.Title
	node.Sections = v.sections
	nodes[item.URL] = node

	if parent, ok := nodes[item.Parent]; ok && item.Parent != "" {
		parent.AddChild(node)
	} else if item.Depth == 0 {
		result.Root = node
	}

	if len(v.sections) > 0 {
		sourceID := metadata.SourceID(u.Host + u.Path)
		result.Documents = append(result.Documents, s.generator.Documents(v.sections, sourceID, u.Path)...)
	}
}

func (s *Spider) fail(result *model.CrawlResult, pageURL string, err error) {
	kind := fault.KindOf(err)
	s.logger.Warn("page skipped", "url", pageURL, "kind", kind.String(), "error", err)
	result.Failures = append(result.Failures, model.SkippedItem{
		Path:    pageURL,
		Kind:    kind.String(),
		Message: err.Error(),
	})
}

// normalizeURL normalizes a URL for deduplication.
//
// Design decision: We normalize URLs because:
//  1. Same page can have different URL representations
//  2. Fragment (#anchor) doesn't change content
func normalizeURL(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return pageURL
	}

	u.Fragment = ""
	u.RawFragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	// Empty path and "/" are the same page.
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String()
}

// isSameSite checks if a URL is on the crawl's start host.
func isSameSite(baseHost, targetURL string) bool {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, baseHost)
}

func isMarkdownPath(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	switch strings.ToLower(path.Ext(u.Path)) {
	case ".md", ".markdown":
		return true
	default:
		return false
	}
}

// shouldCrawl checks if a URL should be crawled based on ignore/follow patterns.
//
// Logic:
//  1. If URL matches any ignorePattern, skip it (return false)
//  2. If followPatterns is set and URL matches none, skip it (return false)
//  3. Otherwise, crawl it (return true)
func (s *Spider) shouldCrawl(targetURL string) bool {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false
	}

	p := u.Path
	if p == "" {
		p = "/"
	}

	for _, pattern := range s.ignorePatterns {
		if matchPattern(pattern, p) {
			return false
		}
	}

	if len(s.followPatterns) > 0 {
		for _, pattern := range s.followPatterns {
			if matchPattern(pattern, p) {
				return true
			}
		}
		return false
	}

	return true
}

// matchPattern checks if a URL path matches a doublestar glob pattern.
// Patterns without a slash, like "*.pdf", are matched against the last
// path element as well.
func matchPattern(pattern, p string) bool {
	if ok, err := doublestar.Match(pattern, p); err == nil && ok {
		return true
	}
	if !strings.Contains(pattern, "/") {
		if ok, err := doublestar.Match(pattern, path.Base(p)); err == nil && ok {
			return true
		}
	}
	return false
}

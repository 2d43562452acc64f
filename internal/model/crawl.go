package model

import (
	"sort"
	"strings"
)

// FrontierItem is a crawl target waiting in the frontier.
type FrontierItem struct {
	URL    string `json:"url"`
	Depth  int    `json:"depth"`
	Parent string `json:"parent,omitempty"`
}

// Frontier is the breadth-first crawl queue plus the set of visited URLs.
//
// A URL is accepted by Push at most once for the lifetime of the frontier,
// and items whose depth exceeds the frontier's max depth are rejected.
// URLs must be normalized by the caller before they reach the frontier.
type Frontier struct {
	maxDepth int
	queue    []FrontierItem
	queued   map[string]struct{}
	visited  map[string]struct{}
}

// NewFrontier creates an empty frontier bounded by maxDepth.
func NewFrontier(maxDepth int) *Frontier {
	return &Frontier{
		maxDepth: maxDepth,
		queue:    make([]FrontierItem, 0),
		queued:   make(map[string]struct{}),
		visited:  make(map[string]struct{}),
	}
}

// Push appends item to the queue and reports whether it was accepted.
func (f *Frontier) Push(item FrontierItem) bool {
	if item.Depth > f.maxDepth {
		return false
	}
	if _, ok := f.queued[item.URL]; ok {
		return false
	}
	if _, ok := f.visited[item.URL]; ok {
		return false
	}
	f.queued[item.URL] = struct{}{}
	f.queue = append(f.queue, item)
	return true
}

// Pop removes and returns the oldest item.
func (f *Frontier) Pop() (FrontierItem, bool) {
	if len(f.queue) == 0 {
		return FrontierItem{}, false
	}
	item := f.queue[0]
	f.queue = f.queue[1:]
	return item, true
}

// MarkVisited records url as visited.
func (f *Frontier) MarkVisited(url string) {
	f.visited[url] = struct{}{}
}

// IsVisited reports whether url was visited.
func (f *Frontier) IsVisited(url string) bool {
	_, ok := f.visited[url]
	return ok
}

// IsKnown reports whether url was either queued or visited.
func (f *Frontier) IsKnown(url string) bool {
	if _, ok := f.queued[url]; ok {
		return true
	}
	return f.IsVisited(url)
}

// Len returns the number of items waiting in the queue.
func (f *Frontier) Len() int {
	return len(f.queue)
}

// VisitedCount returns the number of visited URLs.
func (f *Frontier) VisitedCount() int {
	return len(f.visited)
}

// MaxDepth returns the configured depth bound.
func (f *Frontier) MaxDepth() int {
	return f.maxDepth
}

// ContentNode is a node of the crawl content tree.
// Children are keyed by URL path.
type ContentNode struct {
	URL      string                  `json:"url"`
	Path     string                  `json:"path"`
	Title    string                  `json:"title,omitempty"`
	Depth    int                     `json:"depth"`
	Sections []ExtractedSection      `json:"sections,omitempty"`
	Children map[string]*ContentNode `json:"children,omitempty"`
}

// NewContentNode creates a tree node for a page.
func NewContentNode(url, path string, depth int) *ContentNode {
	return &ContentNode{
		URL:      url,
		Path:     path,
		Depth:    depth,
		Children: make(map[string]*ContentNode),
	}
}

// AddChild attaches child under its path, replacing an existing node for
// the same path.
func (n *ContentNode) AddChild(child *ContentNode) {
	if n.Children == nil {
		n.Children = make(map[string]*ContentNode)
	}
	n.Children[child.Path] = child
}

// Walk visits the node and its descendants depth-first, children in path
// order. Returning false from fn stops the descent below that node.
func (n *ContentNode) Walk(fn func(*ContentNode) bool) {
	if n == nil || !fn(n) {
		return
	}
	paths := make([]string, 0, len(n.Children))
	for p := range n.Children {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		n.Children[p].Walk(fn)
	}
}

// Count returns the number of nodes in the subtree rooted at n.
func (n *ContentNode) Count() int {
	count := 0
	n.Walk(func(*ContentNode) bool {
		count++
		return true
	})
	return count
}

// RepositoryRef is a hosted repository referenced by a crawled page.
type RepositoryRef struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`

	// URL is the first link the reference was discovered through.
	URL string `json:"url"`
}

// Key returns the "owner/name" key.
func (r RepositoryRef) Key() string {
	return RepositoryKey(r.Owner, r.Name)
}

// String returns "owner/name" preserving case.
func (r RepositoryRef) String() string {
	return strings.Join([]string{r.Owner, r.Name}, "/")
}

// CrawlResult is the outcome of a site crawl.
type CrawlResult struct {
	// Root is the content tree rooted at the start page. Nil when the
	// start page could not be fetched.
	Root *ContentNode `json:"root,omitempty"`

	// Documents are the produced section artifacts, in visit order.
	Documents []Document `json:"documents"`

	// Pages are the fetched pages, in visit order.
	Pages []*Page `json:"pages"`

	// RepositoryRefs are de-duplicated repository references.
	RepositoryRefs []RepositoryRef `json:"repository_refs"`

	// Failures lists pages that failed without aborting the crawl.
	Failures []SkippedItem `json:"failures,omitempty"`
}

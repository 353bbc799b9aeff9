package browser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"github.com/go-resty/resty/v2"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/entrhq/sessionkeeper/pkg/session"
)

// ErrSnapshotReadOnly is returned by every mutating call on a SnapshotPage.
var ErrSnapshotReadOnly = errors.New("browser: snapshot pages are read-only")

// hasTextPattern splits a trailing Playwright :has-text() pseudo-class off a
// CSS selector.
var hasTextPattern = regexp.MustCompile(`^(.*?):has-text\(\s*(?:'([^']*)'|"([^"]*)")\s*\)$`)

// SnapshotPage is a read-only session.Page over a saved HTML document. It
// lets the detector run against pages captured earlier or fetched without
// a browser. Selectors are CSS with optional trailing :has-text('...'), or
// XPath when prefixed with "xpath=" or "//".
type SnapshotPage struct {
	url     string
	content string
	root    *html.Node
	doc     *goquery.Document
}

var _ session.Page = (*SnapshotPage)(nil)

// ParseSnapshot reads an HTML document from r. Documents that are not
// valid UTF-8 are transcoded using the detected charset.
func ParseSnapshot(r io.Reader, url string) (*SnapshotPage, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxSnapshotSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	if len(data) > MaxSnapshotSize {
		return nil, fmt.Errorf("snapshot exceeds maximum size of %d bytes", MaxSnapshotSize)
	}

	root, err := htmlquery.Parse(decode(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc := goquery.NewDocumentFromNode(root)
	content, err := doc.Html()
	if err != nil {
		return nil, fmt.Errorf("failed to render HTML: %w", err)
	}

	return &SnapshotPage{url: url, content: content, root: root, doc: doc}, nil
}

// LoadSnapshot reads a saved page from disk. The file URL becomes the
// page URL.
func LoadSnapshot(path string) (*SnapshotPage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()
	return ParseSnapshot(f, "file://"+path)
}

// NewFetchClient returns the HTTP client used by FetchSnapshot.
func NewFetchClient() *resty.Client {
	return resty.New().
		SetRetryCount(2).
		SetHeader("User-Agent", DefaultUserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml")
}

// FetchSnapshot downloads url without running scripts. Pages that render
// their session banner client-side need a LivePage instead.
func FetchSnapshot(ctx context.Context, client *resty.Client, url string) (*SnapshotPage, error) {
	if client == nil {
		client = NewFetchClient()
	}

	resp, err := client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %w", session.ErrPageUnavailable, url, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: fetch %s: %s", session.ErrPageUnavailable, url, resp.Status())
	}

	final := url
	if raw := resp.RawResponse; raw != nil && raw.Request != nil && raw.Request.URL != nil {
		final = raw.Request.URL.String()
	}
	return ParseSnapshot(bytes.NewReader(resp.Body()), final)
}

func decode(data []byte) io.Reader {
	if utf8.Valid(data) {
		return bytes.NewReader(data)
	}

	detected := "windows-1252"
	if result, err := chardet.NewTextDetector().DetectBest(data); err == nil && result != nil {
		detected = strings.ToLower(result.Charset)
	}

	r, err := charset.NewReader(bytes.NewReader(data), "text/html; charset="+detected)
	if err != nil {
		return bytes.NewReader(data)
	}
	return r
}

func (p *SnapshotPage) Content() (string, error) {
	return p.content, nil
}

func (p *SnapshotPage) Find(selector string) (session.Element, error) {
	if expr, ok := xpathExpr(selector); ok {
		node, err := htmlquery.Query(p.root, expr)
		if err != nil {
			return nil, fmt.Errorf("invalid xpath %q: %w", expr, err)
		}
		if node == nil {
			return nil, nil
		}
		return &snapshotElement{selector: selector}, nil
	}

	base, text, hasText := splitHasText(selector)
	matcher, err := cascadia.Compile(base)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}

	sel := p.doc.FindMatcher(matcher)
	if hasText {
		want := normalizeText(text)
		sel = sel.FilterFunction(func(_ int, s *goquery.Selection) bool {
			return strings.Contains(normalizeText(s.Text()), want)
		})
	}
	if sel.Length() == 0 {
		return nil, nil
	}
	return &snapshotElement{selector: selector}, nil
}

func (p *SnapshotPage) URL() (string, error) {
	return p.url, nil
}

func (p *SnapshotPage) Goto(string) error {
	return ErrSnapshotReadOnly
}

func (p *SnapshotPage) GoBack() error {
	return ErrSnapshotReadOnly
}

// Title returns the document title.
func (p *SnapshotPage) Title() string {
	return strings.TrimSpace(p.doc.Find("title").First().Text())
}

type snapshotElement struct {
	selector string
}

func (e *snapshotElement) Click() error {
	return fmt.Errorf("click %s: %w", e.selector, ErrSnapshotReadOnly)
}

func (e *snapshotElement) Fill(string) error {
	return fmt.Errorf("fill %s: %w", e.selector, ErrSnapshotReadOnly)
}

func xpathExpr(selector string) (string, bool) {
	if expr, ok := strings.CutPrefix(selector, "xpath="); ok {
		return expr, true
	}
	if strings.HasPrefix(selector, "//") {
		return selector, true
	}
	return "", false
}

// splitHasText returns the CSS part of selector and the :has-text argument.
func splitHasText(selector string) (base, text string, ok bool) {
	m := hasTextPattern.FindStringSubmatch(selector)
	if m == nil {
		return selector, "", false
	}
	base = strings.TrimSpace(m[1])
	if base == "" {
		base = "*"
	}
	text = m[2]
	if text == "" {
		text = m[3]
	}
	return base, text, true
}

// normalizeText matches the way Playwright compares :has-text arguments:
// case-insensitive with collapsed whitespace.
func normalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/net/html"

	"github.com/Justype/modules/pkg/telemetry"
)

// MaxDescriptionRunes bounds cleaned descriptions, excluding the ellipsis.
const MaxDescriptionRunes = 150

const maxPageBytes = 4 << 20

// PageURL returns the overview page of a package on a channel.
func PageURL(base, channel, name string) string {
	return fmt.Sprintf("%s/channels/%s/packages/%s/overview",
		strings.TrimRight(base, "/"), url.PathEscape(channel), url.PathEscape(name))
}

// Describe scrapes the overview page of name. A 404 yields ErrNotFound
// without further attempts.
func (c *Client) Describe(ctx context.Context, name, channel string) (*Description, error) {
	ctx, span := c.tel.Tracer.StartPackageSpan(ctx, "remote.describe", name, "")
	page := PageURL(c.opts.PageBaseURL, channel, name)

	var result *Description
	err := c.retry(ctx, "fetch package page", name, func() error {
		body, err := c.fetch(ctx, page)
		if err != nil {
			return err
		}
		desc, err := ParsePage(body, page)
		if err != nil {
			return backoff.Permanent(err)
		}
		result = desc
		return nil
	})
	telemetry.EndSpan(span, err)
	c.record("describe", err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) fetch(ctx context.Context, page string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, page, nil)
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("invalid page URL: %w", err))
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", backoff.Permanent(ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d from %s", resp.StatusCode, page)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read page: %w", err)
	}
	return string(body), nil
}

// ParsePage extracts the description and homepage from an overview page.
// The package card is consulted first, then the page metadata. The homepage
// falls back to pageURL.
func ParsePage(raw, pageURL string) (*Description, error) {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	text, homepage := fromCard(doc)
	if text == "" {
		text = fromMeta(doc)
	}
	if homepage == "" {
		homepage = homeAnchor(doc)
	}
	if homepage == "" {
		homepage = pageURL
	}

	return &Description{Text: CleanDescription(text), Homepage: homepage}, nil
}

// fromCard reads the summary card in the right column of the overview:
// the second paragraph of its first block and the link of its sixth block.
func fromCard(doc *html.Node) (string, string) {
	column := findFirst(doc, func(n *html.Node) bool { return hasClass(n, "right-column") })
	if column == nil {
		return "", ""
	}
	body := findFirst(column, func(n *html.Node) bool { return n.Data == "kendo-card-body" })
	if body == nil {
		return "", ""
	}

	blocks := elementChildren(body)
	var text, homepage string
	if len(blocks) > 0 {
		if paras := elementChildren(blocks[0]); len(paras) > 1 && paras[1].Data == "p" {
			text = extractText(paras[1])
		}
	}
	if len(blocks) > 5 {
		for _, child := range elementChildren(blocks[5]) {
			if child.Data == "a" {
				homepage = getAttr(child, "href")
				break
			}
		}
	}
	return text, homepage
}

func fromMeta(doc *html.Node) string {
	var description, og string
	walk(doc, func(n *html.Node) {
		if n.Type != html.ElementNode || n.Data != "meta" {
			return
		}
		content := strings.TrimSpace(getAttr(n, "content"))
		switch {
		case strings.EqualFold(getAttr(n, "name"), "description") && description == "":
			description = content
		case getAttr(n, "property") == "og:description" && og == "":
			og = content
		}
	})
	if description != "" {
		return description
	}
	if og != "" {
		return og
	}

	p := findFirst(doc, func(n *html.Node) bool {
		return n.Data == "p" && extractText(n) != ""
	})
	if p == nil {
		return ""
	}
	return extractText(p)
}

func homeAnchor(doc *html.Node) string {
	a := findFirst(doc, func(n *html.Node) bool {
		if n.Data != "a" || getAttr(n, "href") == "" {
			return false
		}
		switch strings.ToLower(extractText(n)) {
		case "home", "homepage", "website":
			return true
		}
		return false
	})
	if a == nil {
		return ""
	}
	return getAttr(a, "href")
}

// CleanDescription normalizes scraped text to a single short sentence.
func CleanDescription(s string) string {
	s = strings.TrimSpace(s)
	if line, _, ok := strings.Cut(s, "\n"); ok {
		s = line
	}
	s = strings.ReplaceAll(s, "\t", " ")
	s = strings.NewReplacer(`"`, "", "'", "").Replace(s)
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, ".")
	s = strings.TrimSpace(s)

	if utf8.RuneCountInString(s) > MaxDescriptionRunes {
		runes := []rune(s)
		s = strings.TrimSpace(string(runes[:MaxDescriptionRunes])) + "..."
	}

	if r, size := utf8.DecodeRuneInString(s); r != utf8.RuneError {
		s = string(unicode.ToUpper(r)) + s[size:]
	}
	return s
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

func elementChildren(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

func hasClass(n *html.Node, class string) bool {
	for _, field := range strings.Fields(getAttr(n, "class")) {
		if field == class {
			return true
		}
	}
	return false
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func extractText(n *html.Node) string {
	var b strings.Builder
	walk(n, func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
	})
	return strings.TrimSpace(b.String())
}

package export

import (
	"context"
	"fmt"
	"strings"
)

// Page is a remote-controlled browser tab. Element lookups never block:
// they report whether a matching element exists right now, and the
// acquirer does the waiting.
type Page interface {
	Navigate(ctx context.Context, url string) error
	URL(ctx context.Context) (string, error)
	BodyText(ctx context.Context) (string, error)
	Screenshot(ctx context.Context) ([]byte, error)

	Exists(ctx context.Context, loc Locator) (bool, error)
	// Click clicks the first element matching loc and reports whether one
	// was found.
	Click(ctx context.Context, loc Locator) (bool, error)
	// Enabled reports whether loc matches an element and whether that
	// element accepts input.
	Enabled(ctx context.Context, loc Locator) (found, enabled bool, err error)
	Fill(ctx context.Context, css, value string) error

	// Downloads, Blobs and Links drain what the page observed since the
	// previous call: finished native downloads, object URLs created by page
	// scripts, and anchors carrying a download attribute.
	Downloads(ctx context.Context) ([]Download, error)
	Blobs(ctx context.Context) ([]Blob, error)
	Links(ctx context.Context) ([]Link, error)
	// FetchBlob reads the bytes behind an object URL from inside the page.
	FetchBlob(ctx context.Context, url string) ([]byte, error)

	Close() error
}

// Download is a native browser download that finished on disk.
type Download struct {
	Path              string
	SuggestedFilename string
}

// Blob is an object URL a page script created.
type Blob struct {
	URL  string
	Size int64
	Type string
}

// Link is an anchor with a download attribute.
type Link struct {
	Href     string
	Filename string
}

// Strategy selects how a Locator's Query is interpreted.
type Strategy int

const (
	// ByCSS matches the first visible element for the CSS selector Query.
	ByCSS Strategy = iota
	// ByXPath evaluates Query as an XPath expression.
	ByXPath
	// ByText matches elements within Query (a CSS selector) whose trimmed
	// text content contains any of Text.
	ByText
)

// InteractiveElements is the default scope of text matching.
const InteractiveElements = `button, a, [role="button"], [role="menuitem"], [role="option"]`

// Locator describes one way to find an element.
type Locator struct {
	By    Strategy
	Query string
	Text  []string
}

// CSS locates the first visible element matching selector.
func CSS(selector string) Locator { return Locator{By: ByCSS, Query: selector} }

// XPath locates the first visible element selected by expr.
func XPath(expr string) Locator { return Locator{By: ByXPath, Query: expr} }

// Text matches interactive elements containing any of texts.
func Text(texts ...string) Locator {
	return Locator{By: ByText, Query: InteractiveElements, Text: texts}
}

// Within narrows a text locator to elements matching selector.
func (l Locator) Within(selector string) Locator {
	l.Query = selector
	return l
}

func (l Locator) String() string {
	switch l.By {
	case ByXPath:
		return "xpath " + l.Query
	case ByText:
		return fmt.Sprintf("text %q in %s", strings.Join(l.Text, "|"), l.Query)
	default:
		return "css " + l.Query
	}
}

// cssString quotes s for use inside a CSS attribute selector.
func cssString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}

// xpathLiteral quotes s as an XPath 1.0 string literal, which has no escape
// syntax, falling back to concat() when s holds both quote kinds.
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, 0, 2*len(parts))
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		quoted = append(quoted, "'"+p+"'")
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}

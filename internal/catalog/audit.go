package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/html"
)

// DefaultAuditURL is the upstream README whose YAML examples name every published expectation
const DefaultAuditURL = "https://github.com/calogica/dbt-expectations?tab=readme-ov-file"

// auditUserAgent mimics a browser; GitHub serves highlighted code only to those
const auditUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/85.0.4183.121 Safari/537.36"

// AuditReport lists upstream identifiers the catalog does not know
type AuditReport struct {
	URL      string
	Upstream []string
	Missing  []string
}

// Audit fetches the upstream documentation page and compares the identifiers
// it mentions against the catalog.
func (c *Catalog) Audit(ctx context.Context, client *http.Client, url string) (*AuditReport, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build audit request: %w", err)
	}
	req.Header.Set("User-Agent", auditUserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: status %d", url, resp.StatusCode)
	}

	upstream, err := ExtractIdentifiers(resp.Body)
	if err != nil {
		return nil, err
	}

	report := &AuditReport{URL: url, Upstream: upstream, Missing: []string{}}
	for _, id := range upstream {
		if !c.Exists(id) {
			report.Missing = append(report.Missing, id)
		}
	}
	return report, nil
}

// ExtractIdentifiers returns every distinct dbt_-prefixed identifier rendered
// as a YAML key (span.pl-ent) in a highlighted HTML page, in page order.
func ExtractIdentifiers(r io.Reader) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	var ids []string
	seen := make(map[string]bool)

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "span" && hasClass(n, "pl-ent") {
			text := strings.TrimSpace(textContent(n))
			if strings.HasPrefix(text, "dbt_") && !seen[text] {
				seen[text] = true
				ids = append(ids, text)
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	return ids, nil
}

func hasClass(n *html.Node, class string) bool {
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(attr.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		b.WriteString(textContent(child))
	}
	return b.String()
}

package crawl

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

var (
	romanTitleRe = regexp.MustCompile(`(?i)\b([IVX]+(?:\.\d+)?)\s+([^(|·\-\n]{3,120})`)
	sizeRe       = regexp.MustCompile(`(?i)\b(\d+(?:[.,]\d+)?\s*(?:KB|MB|B))\b`)
	pubDateRe    = regexp.MustCompile(`(?i)(Última\s+modificación|Fecha\s+de\s+publicación)\s*[:\-]\s*(\d{2}/\d{2}/\d{4})`)
	extRe        = regexp.MustCompile(`(?i)\.(pdf|xlsx?)\b`)
	spacesRe     = regexp.MustCompile(`\s+`)
)

// contextTags are the ancestors searched, in order, for text describing a link.
var contextTags = []string{"li", "div", "td", "tr", "p", "article", "section"}

// snippetBytes is how much raw markup before a link is searched for a chapter heading.
const snippetBytes = 600

func cleanSpaces(s string) string { return strings.TrimSpace(spacesRe.ReplaceAllString(s, " ")) }

// DecodePage converts an index page to UTF-8 using the Content-Type and <meta> charset.
func DecodePage(data []byte, contentType string) (string, error) {
	r, err := charset.NewReader(bytes.NewReader(data), contentType)
	if err != nil {
		return "", err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ParsePage extracts one entry per pdf, xls or xlsx link on an index page.
func ParsePage(pageURL, page string) ([]Entry, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("page url: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	var out []Entry
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		m := extRe.FindStringSubmatch(href)
		if m == nil || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		e := Entry{FileType: "pdf", URL: base.ResolveReference(ref).String(), Page: pageURL}
		if strings.HasPrefix(strings.ToLower(m[1]), "xls") {
			e.FileType = "xls"
		}
		context := cleanSpaces(spacedText(a)) + " | " + cleanSpaces(nearBlock(a))

		if v, ok := a.Attr("title"); ok && strings.TrimSpace(v) != "" {
			e.Size = strings.TrimSpace(v)
		} else if v, ok := a.Attr("data-size"); ok && strings.TrimSpace(v) != "" {
			e.Size = strings.TrimSpace(v)
		} else if sm := sizeRe.FindStringSubmatch(context); sm != nil {
			e.Size = sm[1]
		}
		e.SizeBytes, _ = ParseSize(e.Size)
		if dm := pubDateRe.FindStringSubmatch(context); dm != nil {
			e.Published = dm[2]
		}
		if cm := romanTitleRe.FindStringSubmatch(context); cm != nil {
			e.Chapter, e.Title = strings.ToUpper(strings.TrimSpace(cm[1])), strings.TrimSpace(cm[2])
		}
		if e.Chapter == "" || e.Title == "" {
			if idx := strings.Index(page, href); idx > 0 {
				snippet := cleanSpaces(page[max(0, idx-snippetBytes):idx])
				if cm := romanTitleRe.FindStringSubmatch(snippet); cm != nil {
					if e.Chapter == "" {
						e.Chapter = strings.ToUpper(strings.TrimSpace(cm[1]))
					}
					if e.Title == "" {
						e.Title = strings.TrimSpace(cm[2])
					}
				}
			}
		}
		e.Chapter = ReconcileChapter(e.Chapter, href)
		e.Filename = FinalFilename(e.URL)
		out = append(out, e)
	})
	return out, nil
}

// nearBlock returns the text of the closest describing ancestor of a.
func nearBlock(a *goquery.Selection) string {
	for _, tag := range contextTags {
		if p := a.ParentsFiltered(tag).First(); p.Length() > 0 {
			return spacedText(p)
		}
	}
	return spacedText(a.Parent())
}

// spacedText joins the trimmed text nodes under s with single spaces.
func spacedText(s *goquery.Selection) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return strings.Join(parts, " ")
}

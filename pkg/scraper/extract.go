package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/xhad/wikiquiz/internal/models"
	"golang.org/x/net/html"
)

const (
	UntitledArticle     = "Untitled Article"
	IntroductionSection = "Introduction"

	titleSuffix = " - Wikipedia"
)

// Extraction is the structural content of an article page.
type Extraction struct {
	Title    string
	Summary  string
	Sections []models.Section
	Text     string
}

// Extract parses raw markup into title, lead summary, sections and the plain
// text of every paragraph. It never fails: unparseable markup or a missing
// content region yields empty outputs.
func Extract(rawHTML string) Extraction {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return Extraction{Title: UntitledArticle}
	}

	summary, sections, text := extractSections(doc)
	return Extraction{
		Title:    extractTitle(doc),
		Summary:  summary,
		Sections: sections,
		Text:     text,
	}
}

func cleanText(content string) string {
	return strings.Join(strings.Fields(content), " ")
}

func extractTitle(doc *goquery.Document) string {
	if title := cleanText(doc.Find("#firstHeading").First().Text()); title != "" {
		return title
	}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		if title = strings.TrimSpace(strings.TrimSuffix(title, titleSuffix)); title != "" {
			return title
		}
	}
	return UntitledArticle
}

// spacedText joins the trimmed text nodes under sel with single spaces, so
// "Paris<sup>[1]</sup> is<br>big." reads "Paris [1] is big.".
func spacedText(sel *goquery.Selection) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				parts = append(parts, text)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return cleanText(strings.Join(parts, " "))
}

func headingText(sel *goquery.Selection) string {
	return strings.TrimSpace(strings.ReplaceAll(spacedText(sel), "[edit]", ""))
}

func extractSections(doc *goquery.Document) (string, []models.Section, string) {
	content := doc.Find("#mw-content-text").First()
	if content.Length() == 0 {
		return "", nil, ""
	}

	// Edit links are rendered inside headings as "[edit]" spans.
	content.Find(".mw-editsection").Remove()

	var (
		paragraphs []string
		sections   []models.Section
		title      = IntroductionSection
		lines      []string
	)
	flush := func() {
		if body := strings.TrimSpace(strings.Join(lines, "\n")); body != "" {
			sections = append(sections, models.Section{Title: title, Content: body})
		}
		lines = nil
	}

	content.Find("h2, h3, p").Each(func(_ int, sel *goquery.Selection) {
		switch goquery.NodeName(sel) {
		case "h2", "h3":
			flush()
			title = headingText(sel)
		case "p":
			text := spacedText(sel)
			if text == "" {
				return
			}
			paragraphs = append(paragraphs, text)
			lines = append(lines, text)
		}
	})
	flush()

	summary := ""
	if len(paragraphs) > 0 {
		summary = paragraphs[0]
	}
	return summary, sections, strings.Join(paragraphs, "\n")
}

package models

import "time"

type Section struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type EntitySummary struct {
	People        []string `json:"people"`
	Organizations []string `json:"organizations"`
	Locations     []string `json:"locations"`
}

// Article is one scraped Wikipedia page. It is created once per URL and never updated.
type Article struct {
	ID        int64
	URL       string
	Title     string
	Summary   string
	Sections  []Section
	Entities  EntitySummary
	RawHTML   string
	CreatedAt time.Time
}

// ScrapedContent is the transient result of fetching and extracting a page.
type ScrapedContent struct {
	URL      string
	Title    string
	Summary  string
	Sections []Section
	Text     string
	RawHTML  string
	Entities EntitySummary
}

// NewArticle builds an unsaved Article from scraped content.
func NewArticle(sc *ScrapedContent) *Article {
	return &Article{
		URL:      sc.URL,
		Title:    sc.Title,
		Summary:  sc.Summary,
		Sections: sc.Sections,
		Entities: sc.Entities,
		RawHTML:  sc.RawHTML,
	}
}

// ArticleView is the outward representation of an Article; raw markup is not exposed.
type ArticleView struct {
	ID        int64         `json:"id"`
	URL       string        `json:"url"`
	Title     string        `json:"title"`
	Summary   string        `json:"summary,omitempty"`
	Sections  []Section     `json:"sections"`
	Entities  EntitySummary `json:"entities"`
	CreatedAt time.Time     `json:"created_at"`
}

func (a *Article) View() ArticleView {
	sections := a.Sections
	if sections == nil {
		sections = []Section{}
	}
	return ArticleView{
		ID:        a.ID,
		URL:       a.URL,
		Title:     a.Title,
		Summary:   a.Summary,
		Sections:  sections,
		Entities:  a.Entities.normalized(),
		CreatedAt: a.CreatedAt,
	}
}

func (e EntitySummary) normalized() EntitySummary {
	if e.People == nil {
		e.People = []string{}
	}
	if e.Organizations == nil {
		e.Organizations = []string{}
	}
	if e.Locations == nil {
		e.Locations = []string{}
	}
	return e
}

package main

import (
	"html/template"

	"github.com/pairents/edge/pkg/fn"
)

var articleTemplate = template.Must(template.New("article").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<meta name="description" content="{{.Excerpt}}">
<link rel="canonical" href="{{.Canonical}}">
{{if .ImageURL}}<meta property="og:image" content="{{.ImageURL}}">{{end}}
<meta property="og:title" content="{{.Title}}">
<meta property="og:type" content="article">
</head>
<body>
<main>
<article>
<h1>{{.Title}}</h1>
{{if .PublishedAt}}<p><time datetime="{{.PublishedAt}}">{{.PublishedAt}}</time></p>{{end}}
{{if .Paragraphs}}{{range .Paragraphs}}<p>{{.}}</p>
{{end}}{{else}}<p>{{.Excerpt}}</p>
<p><a href="{{.Canonical}}">Read the full article</a></p>{{end}}
</article>
<p><a href="index.html">All articles</a></p>
</main>
</body>
</html>
`))

var indexTemplate = template.Must(template.New("index").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Blog</title>
</head>
<body>
<main>
<h1>Blog</h1>
<ul>
{{range .Entries}}<li><a href="{{.Slug}}.html">{{.Title}}</a>{{if .PublishedAt}} — <time datetime="{{.PublishedAt}}">{{.PublishedAt}}</time>{{end}}</li>
{{end}}</ul>
</main>
</body>
</html>
`))

type articleData struct {
	Title       string
	Excerpt     string
	Canonical   string
	ImageURL    string
	PublishedAt string
	Paragraphs  []string
}

func articleView(cfg config, p page) articleData {
	d := articleData{
		Title:       p.Summary.Title,
		Excerpt:     p.Summary.Excerpt,
		Canonical:   p.Summary.Link,
		ImageURL:    p.Summary.ImageURL,
		PublishedAt: p.Summary.PublishedAt,
	}
	if p.Body != nil {
		if p.Body.Title != "" {
			d.Title = p.Body.Title
		}
		if p.Body.Excerpt != "" {
			d.Excerpt = p.Body.Excerpt
		}
		if p.Body.PublishedAt != "" {
			d.PublishedAt = p.Body.PublishedAt
		}
		d.Paragraphs = p.Body.Paragraphs
	}
	return d
}

type indexEntry struct {
	Slug        string
	Title       string
	PublishedAt string
}

type indexData struct {
	Entries []indexEntry
}

func indexView(_ config, pages []page) indexData {
	return indexData{Entries: fn.Map(pages, func(p page) indexEntry {
		return indexEntry{
			Slug:        slugOf(p.Summary.Link),
			Title:       p.Summary.Title,
			PublishedAt: p.Summary.PublishedAt,
		}
	})}
}

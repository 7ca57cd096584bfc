package export

import (
	"bytes"
	"html/template"
	"sort"
	"time"
)

var faqTemplate = template.Must(template.New("faq").Funcs(template.FuncMap{
	"formatDate": func(t time.Time) string {
		return t.Format("Jan 2, 2006")
	},
}).Parse(faqTemplateHTML))

// TemplateData holds data for FAQ template rendering
type TemplateData struct {
	Title       string
	GeneratedAt time.Time
	Categories  []TemplateCategory
}

// TemplateCategory groups entries under one category heading
type TemplateCategory struct {
	Name    string
	Entries []Entry
}

// RenderFAQHTML renders the FAQ set grouped by category, pinned entries
// first within each group. Grouping is a rendering concern only; the
// incoming slice keeps store order.
func RenderFAQHTML(title string, entries []Entry) (string, error) {
	grouped := make(map[string][]Entry)
	var order []string
	for _, entry := range entries {
		if _, seen := grouped[entry.Category]; !seen {
			order = append(order, entry.Category)
		}
		grouped[entry.Category] = append(grouped[entry.Category], entry)
	}
	sort.Strings(order)

	data := TemplateData{
		Title:       title,
		GeneratedAt: time.Now(),
	}
	for _, name := range order {
		group := grouped[name]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].IsPinned && !group[j].IsPinned
		})
		data.Categories = append(data.Categories, TemplateCategory{Name: name, Entries: group})
	}

	var buf bytes.Buffer
	if err := faqTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const faqTemplateHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; max-width: 800px; margin: 2rem auto; }
    h1 { border-bottom: 2px solid #333; padding-bottom: 0.5rem; }
    h2 { margin-top: 2rem; color: #444; }
    .meta { color: #666; font-size: 0.9em; margin-bottom: 2rem; }
    .entry { margin: 1.5rem 0; }
    .entry .pin { color: #b8860b; font-size: 0.85em; }
    .question { font-weight: bold; }
    .answer { margin: 0.25rem 0 0.5rem; }
    .comment { background: #f5f5f5; padding: 0.5rem 1rem; margin: 0.5rem 0; border-left: 3px solid #333; font-size: 0.9em; }
  </style>
</head>
<body>
  <h1>{{.Title}}</h1>
  <div class="meta">Generated {{formatDate .GeneratedAt}}</div>
  {{range .Categories}}
  <h2>{{.Name}}</h2>
  {{range .Entries}}
  <div class="entry">
    {{if .IsPinned}}<div class="pin">Pinned</div>{{end}}
    <div class="question">{{.Question}}</div>
    <div class="answer">{{.Answer}}</div>
    <div class="meta">Last updated by {{.UpdatedBy}} on {{formatDate .UpdatedAt}}</div>
    {{range .Comments}}<div class="comment">{{.Author}}: {{.Content}}</div>{{end}}
  </div>
  {{end}}
  {{end}}
</body>
</html>`

package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
)

//go:embed templates
var TemplatesFS embed.FS

//go:embed static
var StaticFS embed.FS

// Templates maps a page file name (e.g. "login.html") to its parsed set.
// Every page gets its own set so the "content" blocks do not collide.
type Templates map[string]*template.Template

// LoadTemplates parses each page under templates/pages together with the
// base layout.
func LoadTemplates() (Templates, error) {
	return loadTemplates(TemplatesFS)
}

func loadTemplates(fsys fs.FS) (Templates, error) {
	baseContent, err := fs.ReadFile(fsys, "templates/layouts/base.html")
	if err != nil {
		return nil, err
	}

	entries, err := fs.ReadDir(fsys, "templates/pages")
	if err != nil {
		return nil, err
	}

	pages := make(Templates, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".html" {
			continue
		}
		pageContent, err := fs.ReadFile(fsys, "templates/pages/"+entry.Name())
		if err != nil {
			return nil, err
		}

		// Base first, then the page, whose defines fill the base's blocks.
		tmpl, err := template.New(entry.Name()).Parse(string(baseContent))
		if err != nil {
			return nil, fmt.Errorf("parsing layout for %s: %w", entry.Name(), err)
		}
		if _, err := tmpl.Parse(string(pageContent)); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", entry.Name(), err)
		}
		pages[entry.Name()] = tmpl
	}

	return pages, nil
}

// Render executes the named page.
func (t Templates) Render(w io.Writer, name string, data interface{}) error {
	tmpl, ok := t[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	return tmpl.Execute(w, data)
}

// GetStaticFS returns the static file system for serving static files
func GetStaticFS() (fs.FS, error) {
	return fs.Sub(StaticFS, "static")
}

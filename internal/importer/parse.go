// Package importer turns HTML files dropped into a watched directory into
// session content.
package importer

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/starford/redline/internal/models"
)

// Document is one parsed import file.
type Document struct {
	Session string
	Action  models.Action
	HTML    string
}

type frontmatter struct {
	Session string `yaml:"session"`
	Action  string `yaml:"action"`
}

func (f frontmatter) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Action, validation.In(
			string(models.ActionImport),
			string(models.ActionSetContent),
		)),
	)
}

// Parse reads an import file. Optional YAML frontmatter between leading ---
// delimiters may name the target session and the log action; otherwise the
// session is the file name without extension and the action is IMPORT.
func Parse(name string, data []byte) (Document, error) {
	fm, body := splitFrontmatter(data)
	if err := fm.Validate(); err != nil {
		return Document{}, fmt.Errorf("importer: %s: %w", name, err)
	}
	doc := Document{
		Session: strings.TrimSpace(fm.Session),
		Action:  models.Action(fm.Action),
		HTML:    strings.TrimSpace(body),
	}
	if doc.Session == "" {
		base := filepath.Base(name)
		doc.Session = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if doc.Action == "" {
		doc.Action = models.ActionImport
	}
	return doc, nil
}

// splitFrontmatter separates YAML frontmatter from the body. Missing or
// unparsable frontmatter leaves the whole input as body.
func splitFrontmatter(data []byte) (frontmatter, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return frontmatter{}, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return frontmatter{}, string(data)
	}

	yamlBlock := rest[:idx]
	body := strings.TrimLeft(string(rest[idx+1+len(delim):]), "\n\r")

	var fm frontmatter
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return frontmatter{}, string(data)
	}
	return fm, body
}

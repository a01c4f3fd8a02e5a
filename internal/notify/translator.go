package notify

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strings"

	yaml "go.yaml.in/yaml/v3"
)

// CanonicalLanguage is the language notification text is stored in.
const CanonicalLanguage = "en"

//go:embed catalogs/*.yaml
var embeddedCatalogs embed.FS

var placeholderPattern = regexp.MustCompile(`\\\{([a-z_]+)\\\}`)

type catalogFile struct {
	Language  string            `yaml:"language"`
	Strings   map[string]string `yaml:"strings"`
	Templates map[string]string `yaml:"templates"`
}

// template matches canonical formatted content and extracts its parameters.
type template struct {
	key     string
	pattern *regexp.Regexp
}

// Translator renders canonical notification text in a display language.
// It is immutable after construction and safe for concurrent use.
type Translator struct {
	catalogs  map[string]catalogFile
	templates []template
}

// NewTranslator loads the catalogs bundled with the binary.
func NewTranslator() (*Translator, error) {
	return LoadTranslator(embeddedCatalogs, "catalogs")
}

// LoadTranslator loads every *.yaml catalog under dir. The canonical catalog
// must be present and its templates become the recognised patterns.
func LoadTranslator(fsys fs.FS, dir string) (*Translator, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("notify: read catalogs: %w", err)
	}

	catalogs := make(map[string]catalogFile)
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".yaml" {
			continue
		}
		raw, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("notify: read catalog %s: %w", entry.Name(), err)
		}
		var file catalogFile
		if err := yaml.Unmarshal(raw, &file); err != nil {
			return nil, fmt.Errorf("notify: parse catalog %s: %w", entry.Name(), err)
		}
		if file.Language == "" {
			file.Language = strings.TrimSuffix(entry.Name(), ".yaml")
		}
		catalogs[file.Language] = file
	}

	canonical, ok := catalogs[CanonicalLanguage]
	if !ok {
		return nil, fmt.Errorf("notify: canonical catalog %q missing", CanonicalLanguage)
	}

	keys := make([]string, 0, len(canonical.Templates))
	for key := range canonical.Templates {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	templates := make([]template, 0, len(keys))
	for _, key := range keys {
		pattern, err := compileTemplate(canonical.Templates[key])
		if err != nil {
			return nil, fmt.Errorf("notify: template %s: %w", key, err)
		}
		templates = append(templates, template{key: key, pattern: pattern})
	}

	return &Translator{catalogs: catalogs, templates: templates}, nil
}

// Languages lists the loaded catalogs in sorted order.
func (t *Translator) Languages() []string {
	languages := make([]string, 0, len(t.catalogs))
	for language := range t.catalogs {
		languages = append(languages, language)
	}
	sort.Strings(languages)
	return languages
}

// Supports reports whether a catalog exists for language.
func (t *Translator) Supports(language string) bool {
	_, ok := t.catalogs[language]
	return ok
}

// Translate renders a single canonical string in language. Unknown strings
// and unknown languages pass through unchanged.
func (t *Translator) Translate(text, language string) string {
	catalog, ok := t.catalogs[language]
	if !ok || language == CanonicalLanguage {
		return text
	}

	if translated, ok := catalog.Strings[text]; ok {
		return translated
	}

	for _, tmpl := range t.templates {
		match := tmpl.pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		target, ok := catalog.Templates[tmpl.key]
		if !ok {
			return text
		}
		for i, name := range tmpl.pattern.SubexpNames() {
			if name == "" {
				continue
			}
			target = strings.ReplaceAll(target, "{"+name+"}", match[i])
		}
		return target
	}
	return text
}

// Format renders a canonical template with params. Missing keys yield an
// empty string.
func (t *Translator) Format(key string, params map[string]string) string {
	text := t.catalogs[CanonicalLanguage].Templates[key]
	for name, value := range params {
		text = strings.ReplaceAll(text, "{"+name+"}", value)
	}
	return text
}

// compileTemplate turns "House {house} updated" into an anchored pattern with
// one named numeric group per placeholder.
func compileTemplate(text string) (*regexp.Regexp, error) {
	quoted := regexp.QuoteMeta(text)
	expr := placeholderPattern.ReplaceAllString(quoted, `(?P<$1>-?\d+)`)
	return regexp.Compile("^" + expr + "$")
}

package domain

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strings"
	"time"
)

// User identifies a person in audit and lock fields.
type User struct {
	Login string `json:"login" xml:"login,attr"`
	Name  string `json:"name,omitempty" xml:",chardata"`
}

// Pagelet is a module component placed in a page composer.
type Pagelet struct {
	Module     string            `json:"module"`
	ID         string            `json:"id"`
	Composer   string            `json:"composer"`
	Properties map[string]string `json:"properties,omitempty"`
}

// Content is a language specific body of a resource.
type Content struct {
	Language         string    `json:"language"`
	Created          time.Time `json:"created"`
	Creator          *User     `json:"creator,omitempty"`
	Source           string    `json:"source,omitempty"`
	ExternalLocation string    `json:"external_location,omitempty"`
	Filename         string    `json:"filename,omitempty"`
	MimeType         string    `json:"mimetype,omitempty"`
	Size             int64     `json:"size,omitempty"`
}

// Resource is a versioned content unit handed to the index for writing.
// Localized attributes are keyed by language id.
type Resource struct {
	URI ResourceURI `json:"uri"`

	Titles       map[string]string `json:"titles,omitempty"`
	Descriptions map[string]string `json:"descriptions,omitempty"`
	Coverage     map[string]string `json:"coverage,omitempty"`
	Rights       map[string]string `json:"rights,omitempty"`
	Subjects     []string          `json:"subjects,omitempty"`
	Series       []string          `json:"series,omitempty"`
	Template     string            `json:"template,omitempty"`

	Owner     *User `json:"owner,omitempty"`
	Creator   *User `json:"creator,omitempty"`
	Modifier  *User `json:"modifier,omitempty"`
	Publisher *User `json:"publisher,omitempty"`
	LockOwner *User `json:"lock_owner,omitempty"`

	Created     time.Time `json:"created"`
	Modified    time.Time `json:"modified"`
	PublishFrom time.Time `json:"publish_from"`
	PublishTo   time.Time `json:"publish_to"`

	Pagelets []Pagelet `json:"pagelets,omitempty"`
	Contents []Content `json:"contents,omitempty"`
}

// IsLocked reports whether the resource has a lock owner.
func (r *Resource) IsLocked() bool {
	return r.LockOwner != nil && strings.TrimSpace(r.LockOwner.Login) != ""
}

// Languages returns the sorted set of languages the resource carries
// localized attributes or content in.
func (r *Resource) Languages() []string {
	set := make(map[string]struct{})
	for _, m := range []map[string]string{r.Titles, r.Descriptions, r.Coverage, r.Rights} {
		for l := range m {
			set[l] = struct{}{}
		}
	}
	for _, c := range r.Contents {
		if c.Language != "" {
			set[c.Language] = struct{}{}
		}
	}
	langs := make([]string, 0, len(set))
	for l := range set {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	return langs
}

// Content returns the content for a language.
func (r *Resource) Content(lang string) (Content, bool) {
	for _, c := range r.Contents {
		if c.Language == lang {
			return c, true
		}
	}
	return Content{}, false
}

type localizedXML struct {
	Language string `xml:"language,attr"`
	Value    string `xml:",chardata"`
}

type resourceXML struct {
	XMLName xml.Name `xml:"resource"`
	ID      string   `xml:"id,attr"`
	Path    string   `xml:"path,attr,omitempty"`
	Type    string   `xml:"type,attr"`
	Version int64    `xml:"version,attr"`
	Head    headXML  `xml:"head"`
	Body    bodyXML  `xml:"body"`
}

type headXML struct {
	Template     string         `xml:"template,omitempty"`
	Titles       []localizedXML `xml:"title"`
	Descriptions []localizedXML `xml:"description"`
	Coverage     []localizedXML `xml:"coverage"`
	Rights       []localizedXML `xml:"rights"`
	Subjects     []string       `xml:"subject"`
	Series       []string       `xml:"series"`
	Owner        *User          `xml:"owner,omitempty"`
	Created      string         `xml:"created>date,omitempty"`
	Creator      *User          `xml:"created>user,omitempty"`
	Modified     string         `xml:"modified>date,omitempty"`
	Modifier     *User          `xml:"modified>user,omitempty"`
	PublishFrom  string         `xml:"published>from,omitempty"`
	PublishTo    string         `xml:"published>to,omitempty"`
	Publisher    *User          `xml:"published>user,omitempty"`
	LockOwner    *User          `xml:"locked,omitempty"`
}

type bodyXML struct {
	Pagelets []pageletXML `xml:"pagelet"`
	Contents []contentXML `xml:"content"`
}

type pageletXML struct {
	Module     string        `xml:"module,attr"`
	ID         string        `xml:"id,attr"`
	Composer   string        `xml:"composer,attr"`
	Properties []propertyXML `xml:"property"`
}

type propertyXML struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type contentXML struct {
	XMLName          xml.Name `xml:"content"`
	Language         string   `xml:"language,attr"`
	Created          string   `xml:"created>date,omitempty"`
	Creator          *User    `xml:"created>user,omitempty"`
	Source           string   `xml:"source,omitempty"`
	ExternalLocation string   `xml:"external,omitempty"`
	Filename         string   `xml:"filename,omitempty"`
	MimeType         string   `xml:"mimetype,omitempty"`
	Size             int64    `xml:"size,omitempty"`
}

// ToXML serializes the resource, its head and body.
func (r *Resource) ToXML() (string, error) {
	doc := resourceXML{
		ID:      r.URI.Identifier,
		Path:    r.URI.Path,
		Type:    r.URI.Type,
		Version: r.URI.Version,
		Head: headXML{
			Template:     r.Template,
			Titles:       localized(r.Titles),
			Descriptions: localized(r.Descriptions),
			Coverage:     localized(r.Coverage),
			Rights:       localized(r.Rights),
			Subjects:     r.Subjects,
			Series:       r.Series,
			Owner:        r.Owner,
			Creator:      r.Creator,
			Modifier:     r.Modifier,
			Publisher:    r.Publisher,
			LockOwner:    r.LockOwner,
			Created:      formatDate(r.Created),
			Modified:     formatDate(r.Modified),
			PublishFrom:  formatDate(r.PublishFrom),
			PublishTo:    formatDate(r.PublishTo),
		},
	}
	for _, p := range r.Pagelets {
		doc.Body.Pagelets = append(doc.Body.Pagelets, pageletXML{
			Module:     p.Module,
			ID:         p.ID,
			Composer:   p.Composer,
			Properties: properties(p.Properties),
		})
	}
	for _, c := range r.Contents {
		doc.Body.Contents = append(doc.Body.Contents, c.xml())
	}

	out, err := xml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to serialize resource %s: %w", r.URI, err)
	}
	return string(out), nil
}

// ToXML serializes a single content variant.
func (c Content) ToXML() (string, error) {
	out, err := xml.Marshal(c.xml())
	if err != nil {
		return "", fmt.Errorf("failed to serialize content %s: %w", c.Language, err)
	}
	return string(out), nil
}

func (c Content) xml() contentXML {
	return contentXML{
		Language:         c.Language,
		Created:          formatDate(c.Created),
		Creator:          c.Creator,
		Source:           c.Source,
		ExternalLocation: c.ExternalLocation,
		Filename:         c.Filename,
		MimeType:         c.MimeType,
		Size:             c.Size,
	}
}

func localized(m map[string]string) []localizedXML {
	if len(m) == 0 {
		return nil
	}
	langs := make([]string, 0, len(m))
	for l := range m {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	out := make([]localizedXML, 0, len(langs))
	for _, l := range langs {
		out = append(out, localizedXML{Language: l, Value: m[l]})
	}
	return out
}

func properties(m map[string]string) []propertyXML {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]propertyXML, 0, len(keys))
	for _, k := range keys {
		out = append(out, propertyXML{Name: k, Value: m[k]})
	}
	return out
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

package mapper

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/sha1n/mcp-lounge-server/internal/domain"
	"github.com/sha1n/mcp-lounge-server/internal/metadata"
)

var bodyPattern = regexp.MustCompile(`<body[^>]*>[\s\S]*?</body>`)

// Map converts a resource into the metadata collection that is indexed
// for uri. The uri must carry an identifier; Map never invents one.
func Map(r *domain.Resource, uri domain.ResourceURI) (*metadata.Collection, error) {
	if r == nil {
		return nil, domain.InvalidArgument("resource cannot be nil")
	}
	if !uri.HasIdentifier() {
		return nil, domain.InvalidArgument("resource %s has no identifier", uri)
	}
	if uri.Type == "" {
		uri.Type = r.URI.Type
	}
	uri.Path = NormalizePath(uri.Path)

	c := metadata.NewCollection()
	addIdentity(c, uri)
	AddPathTokens(c, uri.Path)

	// Resource level
	addAll(c, metadata.FieldSubject, r.Subjects)
	addAll(c, metadata.FieldSeries, r.Series)
	add(c, metadata.FieldTemplate, r.Template)

	addUser(c, metadata.FieldOwnedBy, metadata.FieldOwnedByName, r.Owner)
	add(c, metadata.FieldCreated, r.Created)
	addUser(c, metadata.FieldCreatedBy, metadata.FieldCreatedByName, r.Creator)
	add(c, metadata.FieldModified, r.Modified)
	addUser(c, metadata.FieldModifiedBy, metadata.FieldModifiedByName, r.Modifier)
	add(c, metadata.FieldPublishedFrom, r.PublishFrom)
	add(c, metadata.FieldPublishedTo, r.PublishTo)
	addUser(c, metadata.FieldPublishedBy, metadata.FieldPublishedByName, r.Publisher)
	if r.IsLocked() {
		addUser(c, metadata.FieldLockedBy, metadata.FieldLockedByName, r.LockOwner)
	}

	langs := r.Languages()
	for _, l := range langs {
		addLocalized(c, metadata.FieldDescription, metadata.FieldDescriptionLocalized, l, r.Descriptions[l])
		addLocalized(c, metadata.FieldCoverage, metadata.FieldCoverageLocalized, l, r.Coverage[l])
		addLocalized(c, metadata.FieldRights, metadata.FieldRightsLocalized, l, r.Rights[l])
		addLocalized(c, metadata.FieldTitle, metadata.FieldTitleLocalized, l, r.Titles[l])
	}

	// Serialized resource and its header
	serialized := *r
	serialized.URI = uri
	xml, err := serialized.ToXML()
	if err != nil {
		return nil, err
	}
	add(c, metadata.FieldXML, xml)
	if header := HeaderXML(xml); strings.TrimSpace(header) != "" {
		add(c, metadata.FieldHeaderXML, header)
	}

	// Contents
	for _, l := range langs {
		content, ok := r.Content(l)
		if !ok {
			continue
		}
		if err := addContent(c, content); err != nil {
			return nil, err
		}
	}

	addPagelets(c, r.Pagelets)
	return c, nil
}

// HeaderXML strips the body element from a serialized resource.
func HeaderXML(xml string) string {
	return bodyPattern.ReplaceAllString(xml, "")
}

// AddPathTokens adds the path field and its hierarchical tokens.
// Existing path fields are replaced.
func AddPathTokens(c *metadata.Collection, path string) {
	c.Remove(metadata.FieldPath)
	c.Remove(metadata.FieldPathPrefix)
	add(c, metadata.FieldPath, path)
	for _, t := range PathTokens(path) {
		add(c, metadata.FieldPathPrefix, t)
	}
}

func addIdentity(c *metadata.Collection, uri domain.ResourceURI) {
	add(c, metadata.FieldUID, uri.UID())
	add(c, metadata.FieldResourceID, uri.Identifier)
	add(c, metadata.FieldType, uri.Type)
	add(c, metadata.FieldVersion, FormatVersion(uri.Version))
}

func addContent(c *metadata.Collection, content domain.Content) error {
	l := content.Language
	xml, err := content.ToXML()
	if err != nil {
		return err
	}
	add(c, metadata.LocalizedFieldName(metadata.FieldContentXMLLocalized, l), xml)
	add(c, metadata.LocalizedFieldName(metadata.FieldContentCreatedLocalized, l), content.Created)
	if content.Creator != nil {
		add(c, metadata.LocalizedFieldName(metadata.FieldContentCreatorLocalized, l), content.Creator.Login)
	}
	add(c, metadata.FieldContentSource, content.Source)
	add(c, metadata.FieldContentExternal, content.ExternalLocation)
	add(c, metadata.FieldContentFilename, content.Filename)
	add(c, metadata.LocalizedFieldName(metadata.FieldContentFilenameLocalized, l), content.Filename)
	add(c, metadata.FieldContentMimetype, content.MimeType)
	add(c, metadata.LocalizedFieldName(metadata.FieldContentMimetypeLocalized, l), content.MimeType)
	return nil
}

func addPagelets(c *metadata.Collection, pagelets []domain.Pagelet) {
	positions := make(map[string]int)
	for _, p := range pagelets {
		term := PageletTerm(p.Module, p.ID)
		add(c, metadata.FieldPageletType, term)
		if p.Composer != "" {
			pos := positions[p.Composer]
			positions[p.Composer] = pos + 1
			add(c, metadata.LocalizedFieldName(metadata.FieldPageletTypeComposer, p.Composer), term)
			add(c, PageletPositionField(p.Composer, pos), term)
		}
		keys := make([]string, 0, len(p.Properties))
		for k := range p.Properties {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			add(c, metadata.FieldPageletProperties, PropertyTerm(k, p.Properties[k]))
		}
	}
}

// PageletTerm is the indexed value identifying a pagelet type.
func PageletTerm(module, id string) string {
	return module + "/" + id
}

// PageletPositionField is the field recording pagelets at a position of a
// composer.
func PageletPositionField(composer string, position int) string {
	return fmt.Sprintf(metadata.FieldPageletTypeComposerPosition, strings.ToLower(composer), position)
}

// PropertyTerm is the indexed value of a pagelet property.
func PropertyTerm(name, value string) string {
	return name + "=" + value
}

// FormatVersion formats a version number the way it is indexed.
func FormatVersion(v int64) string {
	return strconv.FormatInt(v, 10)
}

func addUser(c *metadata.Collection, idField, nameField string, u *domain.User) {
	if u == nil {
		return
	}
	add(c, idField, u.Login)
	add(c, nameField, u.Name)
}

func addLocalized(c *metadata.Collection, field, pattern, lang, value string) {
	add(c, field, value)
	add(c, metadata.LocalizedFieldName(pattern, lang), value)
}

func addAll(c *metadata.Collection, field string, values []string) {
	for _, v := range values {
		add(c, field, v)
	}
}

func add(c *metadata.Collection, field string, value any) {
	fulltext, text := metadata.AggregationFlags(field)
	c.AddValue(field, value, fulltext, text)
}

package metadata

import (
	"fmt"
	"strings"
)

// Field names of the resource document schema. Localized variants are
// patterns taking a language id, see LocalizedFieldName.
const (
	FieldUID              = "uid"
	FieldResourceID       = "resourceid"
	FieldPath             = "path"
	FieldPathPrefix       = "path_prefix"
	FieldType             = "type"
	FieldVersion          = "version"
	FieldAlternateVersion = "alternate_version"
	FieldPrimaryVersion   = "primary_version"

	FieldSubject  = "subject"
	FieldSeries   = "series"
	FieldTemplate = "template"

	FieldOwnedBy         = "owned_by"
	FieldOwnedByName     = "owned_by_name"
	FieldCreated         = "created"
	FieldCreatedBy       = "created_by"
	FieldCreatedByName   = "created_by_name"
	FieldModified        = "modified"
	FieldModifiedBy      = "modified_by"
	FieldModifiedByName  = "modified_by_name"
	FieldPublishedFrom   = "published_from"
	FieldPublishedTo     = "published_to"
	FieldPublishedBy     = "published_by"
	FieldPublishedByName = "published_by_name"
	FieldLockedBy        = "locked_by"
	FieldLockedByName    = "locked_by_name"

	FieldTitle       = "title"
	FieldDescription = "description"
	FieldCoverage    = "coverage"
	FieldRights      = "rights"

	FieldXML       = "xml"
	FieldHeaderXML = "header_xml"

	FieldContentSource   = "content_source"
	FieldContentExternal = "content_external"
	FieldContentFilename = "content_filename"
	FieldContentMimetype = "content_mimetype"

	FieldPageletType                 = "pagelet_type"
	FieldPageletTypeComposerPosition = "pagelet_type_composer_%s_position_%d"
	FieldPageletProperties           = "pagelet_properties"

	// FieldFulltext aggregates every field flagged for the backend fulltext.
	FieldFulltext = "fulltext"
	// FieldText aggregates every field flagged for user facing text search.
	FieldText = "text"
)

// Localized field name patterns.
const (
	FieldTitleLocalized           = "title_%s"
	FieldDescriptionLocalized     = "description_%s"
	FieldCoverageLocalized        = "coverage_%s"
	FieldRightsLocalized          = "rights_%s"
	FieldContentXMLLocalized      = "content_xml_%s"
	FieldContentCreatedLocalized  = "content_created_%s"
	FieldContentCreatorLocalized  = "content_creator_%s"
	FieldContentFilenameLocalized = "content_filename_%s"
	FieldContentMimetypeLocalized = "content_mimetype_%s"
	FieldPageletTypeComposer      = "pagelet_type_composer_%s"
)

// LocalizedFieldName returns the name of a field following the
// "<base>_<languageId>" scheme for the given pattern.
func LocalizedFieldName(pattern, lang string) string {
	return fmt.Sprintf(pattern, strings.ToLower(strings.TrimSpace(lang)))
}

// dateFields hold time values and are parsed back to time.Time when
// reading stored documents.
var dateFields = map[string]bool{
	FieldCreated:       true,
	FieldModified:      true,
	FieldPublishedFrom: true,
	FieldPublishedTo:   true,
}

// IsDateField reports whether name carries time values.
func IsDateField(name string) bool {
	if dateFields[name] {
		return true
	}
	return strings.HasPrefix(name, strings.TrimSuffix(FieldContentCreatedLocalized, "%s"))
}

// fulltextFields are the fields that feed the fulltext and text aggregates.
// The flags are re-derived from here when stored documents are rewritten.
// Subjects and series are exact-match keywords and stay out of both.
var fulltextFields = map[string]struct{ fulltext, text bool }{
	FieldResourceID:      {true, false},
	FieldPath:            {true, true},
	FieldType:            {true, false},
	FieldSubject:         {false, false},
	FieldSeries:          {false, false},
	FieldOwnedByName:     {true, false},
	FieldCreatedByName:   {true, false},
	FieldModifiedByName:  {true, false},
	FieldPublishedByName: {true, false},
	FieldLockedByName:    {true, false},
	FieldTitle:           {true, true},
	FieldDescription:     {true, true},
	FieldCoverage:        {true, false},
	FieldRights:          {true, false},
	FieldContentSource:   {true, false},
	FieldContentExternal: {true, false},
	FieldContentFilename: {true, true},
	FieldContentMimetype: {true, false},
}

// AggregationFlags returns the fulltext and text flags the schema assigns
// to a field name.
func AggregationFlags(name string) (fulltext bool, text bool) {
	f := fulltextFields[name]
	return f.fulltext, f.text
}

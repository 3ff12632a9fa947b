package searchindex

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/analysis/datetime/optional"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/sha1n/mcp-lounge-server/internal/domain"
	"github.com/sha1n/mcp-lounge-server/internal/metadata"
)

const (
	// SchemaVersion is the index layout version this build reads and writes.
	// Indexes carrying another version need a reindex.
	SchemaVersion = 2

	// VersionMarkerID is the document id of the index version marker.
	VersionMarkerID = "root"

	// VersionMarkerType is the document type of the index version marker.
	VersionMarkerType = "version"

	// FieldIndexVersion is the sole field of the version marker.
	FieldIndexVersion = "index_version"

	// IndexSuffix is the suffix for index directories
	IndexSuffix = ".bleve"
)

// Exact match fields. Values are indexed as a single term.
var keywordFields = []string{
	metadata.FieldUID,
	metadata.FieldResourceID,
	metadata.FieldPath,
	metadata.FieldPathPrefix,
	metadata.FieldType,
	metadata.FieldVersion,
	metadata.FieldAlternateVersion,
	metadata.FieldPrimaryVersion,
	metadata.FieldSubject,
	metadata.FieldSeries,
	metadata.FieldTemplate,
	metadata.FieldOwnedBy,
	metadata.FieldCreatedBy,
	metadata.FieldModifiedBy,
	metadata.FieldPublishedBy,
	metadata.FieldLockedBy,
	metadata.FieldContentSource,
	metadata.FieldContentExternal,
	metadata.FieldContentFilename,
	metadata.FieldContentMimetype,
	metadata.FieldPageletType,
	metadata.FieldPageletProperties,
}

// Analyzed, stored fields.
var textFields = []string{
	metadata.FieldTitle,
	metadata.FieldDescription,
	metadata.FieldCoverage,
	metadata.FieldRights,
	metadata.FieldOwnedByName,
	metadata.FieldCreatedByName,
	metadata.FieldModifiedByName,
	metadata.FieldPublishedByName,
	metadata.FieldLockedByName,
}

var dateFields = []string{
	metadata.FieldCreated,
	metadata.FieldModified,
	metadata.FieldPublishedFrom,
	metadata.FieldPublishedTo,
}

// CreateIndexMapping creates the bleve index mapping shared by every
// resource type, plus the mapping of the version marker.
func CreateIndexMapping() mapping.IndexMapping {
	resourceMapping := bleve.NewDocumentMapping()

	for _, name := range keywordFields {
		resourceMapping.AddFieldMappingsAt(name, keywordField())
	}

	for _, name := range textFields {
		f := bleve.NewTextFieldMapping()
		f.Analyzer = standard.Name
		f.Store = true
		resourceMapping.AddFieldMappingsAt(name, f)
	}

	// Dates arrive as RFC 3339 strings. The parser keeps the matched layout
	// so stored values come back with their nanoseconds.
	for _, name := range dateFields {
		f := bleve.NewDateTimeFieldMapping()
		f.DateFormat = optional.Name
		f.Store = true
		resourceMapping.AddFieldMappingsAt(name, f)
	}

	// Serialized resource - stored but not indexed
	for _, name := range []string{metadata.FieldXML, metadata.FieldHeaderXML} {
		f := bleve.NewTextFieldMapping()
		f.Index = false
		f.Store = true
		resourceMapping.AddFieldMappingsAt(name, f)
	}

	// Aggregates - analyzed for full-text search, derived again on rewrite
	for _, name := range []string{metadata.FieldFulltext, metadata.FieldText} {
		f := bleve.NewTextFieldMapping()
		f.Analyzer = standard.Name
		f.Store = false
		f.IncludeTermVectors = true
		resourceMapping.AddFieldMappingsAt(name, f)
	}

	markerMapping := bleve.NewDocumentMapping()
	markerMapping.AddFieldMappingsAt(metadata.FieldType, keywordField())
	versionField := bleve.NewNumericFieldMapping()
	versionField.Store = true
	markerMapping.AddFieldMappingsAt(FieldIndexVersion, versionField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.TypeField = metadata.FieldType
	indexMapping.DefaultMapping = resourceMapping
	for _, t := range domain.ResourceTypes() {
		indexMapping.AddDocumentMapping(t, resourceMapping)
	}
	indexMapping.AddDocumentMapping(VersionMarkerType, markerMapping)

	// Localized and composer fields are dynamic. They are exact match
	// fields and must be stored so documents can be rewritten.
	indexMapping.DefaultAnalyzer = keyword.Name
	indexMapping.StoreDynamic = true
	indexMapping.IndexDynamic = true

	return indexMapping
}

func keywordField() *mapping.FieldMapping {
	f := bleve.NewTextFieldMapping()
	f.Analyzer = keyword.Name
	f.Store = true
	return f
}

// Package document defines the indexable unit of the search core and its
// engine export rules: field truncation, timestamp formatting, and the
// derived records produced for attached files.
package document

import (
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"github.com/lanternsearch/lantern/internal/errors"
)

// Type distinguishes primary content records from attached-file records.
type Type int

const (
	// TypeText is a primary content document.
	TypeText Type = 1
	// TypeFile is one attached file, tied to its parent by grouping id.
	TypeFile Type = 2
)

const (
	// MaxFieldBytes is the byte limit applied to exported string fields.
	// Matches the engine's default maximum term size (2^15 - 2).
	MaxFieldBytes = 32766

	// FileFieldBytes caps the description and tmpcontent fields on
	// exported file records. The full text lives on the parent record.
	FileFieldBytes = 256

	// engineTimeLayout is the fixed UTC timestamp format the engine stores.
	engineTimeLayout = "2006-01-02T15:04:05Z"
)

// Wire field names shared by every engine backend.
const (
	FieldID              = "id"
	FieldAreaID          = "areaid"
	FieldItemID          = "itemid"
	FieldType            = "type"
	FieldTitle           = "title"
	FieldContent         = "content"
	FieldDescription1    = "description1"
	FieldDescription2    = "description2"
	FieldContextID       = "contextid"
	FieldOwner           = "owneruserid"
	FieldModified        = "modified"
	FieldGroupingID      = "solr_filegroupingid"
	FieldFileID          = "fileid"
	FieldFilename        = "filename"
	FieldTmpContent      = "tmpcontent"
	FieldFileContentHash = "solr_filecontenthash"
)

// File is one attached file reference, as surfaced by the file store.
// ContentHash and Modified drive the incremental reindex change detection.
type File struct {
	ID          int64
	Filename    string
	Modified    int64
	ContentHash string
	MimeType    string
	Content     io.Reader
}

// FileHit is a matched file record attached to a grouped query result.
type FileHit struct {
	ID         int64
	Filename   string
	GroupingID string
}

// Document is one indexable unit. The caller builds it from a source
// record; export applies engine defaults without mutating the original.
type Document struct {
	ID         string
	AreaID     string
	ItemID     int64
	Type       Type
	GroupingID string

	Title        string
	Content      string
	Description1 string
	Description2 string
	ContextID    int64
	Owner        int64
	Modified     int64

	// Extra holds area-specific fields declared by the engine schema.
	Extra map[string]any

	// Files are the currently attached files. Only meaningful for
	// TypeText documents whose area supports attachments.
	Files []File

	// New marks a document that has never been indexed. A new document
	// has no prior file-index state to reconcile against.
	New bool

	// MatchedFiles is populated on query results assembled in grouped
	// mode: the file records that matched alongside this document.
	MatchedFiles []FileHit
}

// FormatTimeForEngine renders an epoch timestamp in the engine's fixed
// UTC format.
func FormatTimeForEngine(epoch int64) string {
	return time.Unix(epoch, 0).UTC().Format(engineTimeLayout)
}

// ImportTimeFromEngine parses a timestamp previously produced by
// FormatTimeForEngine back to epoch seconds.
func ImportTimeFromEngine(value string) (int64, error) {
	t, err := time.Parse(engineTimeLayout, value)
	if err != nil {
		return 0, errors.New(errors.ErrCodeMalformedDocument,
			fmt.Sprintf("invalid engine timestamp %q", value), err)
	}
	return t.Unix(), nil
}

// FormatStringForEngine truncates s to MaxFieldBytes bytes without ever
// splitting a multi-byte UTF-8 sequence.
func FormatStringForEngine(s string) string {
	return truncateBytes(s, MaxFieldBytes)
}

// truncateBytes cuts s at a UTF-8 rune boundary so the result is at most
// limit bytes and remains valid encoded text.
func truncateBytes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// Validate checks the mandatory identity fields. Exporting an invalid
// document fails before anything reaches the engine.
func (d *Document) Validate() error {
	switch {
	case d.ID == "":
		return errors.New(errors.ErrCodeMalformedDocument, "document missing id", nil)
	case d.AreaID == "":
		return errors.New(errors.ErrCodeMalformedDocument, "document missing areaid", nil).
			WithDetail("id", d.ID)
	case d.ItemID == 0:
		return errors.New(errors.ErrCodeMalformedDocument, "document missing itemid", nil).
			WithDetail("id", d.ID)
	case d.Type != TypeText && d.Type != TypeFile:
		return errors.New(errors.ErrCodeMalformedDocument,
			fmt.Sprintf("document has invalid type %d", d.Type), nil).
			WithDetail("id", d.ID)
	}
	return nil
}

// ExportForEngine produces the flat wire record for this document.
// String fields are truncated to the engine byte limit, timestamps take
// the fixed UTC format, and an unset grouping id defaults to the document
// id. The document itself is never mutated.
func (d *Document) ExportForEngine() (map[string]any, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	grouping := d.GroupingID
	if grouping == "" {
		grouping = d.ID
	}

	rec := map[string]any{
		FieldID:         d.ID,
		FieldAreaID:     d.AreaID,
		FieldItemID:     d.ItemID,
		FieldType:       int(d.Type),
		FieldTitle:      FormatStringForEngine(d.Title),
		FieldContent:    FormatStringForEngine(d.Content),
		FieldContextID:  d.ContextID,
		FieldModified:   FormatTimeForEngine(d.Modified),
		FieldGroupingID: grouping,
	}
	if d.Description1 != "" {
		rec[FieldDescription1] = FormatStringForEngine(d.Description1)
	}
	if d.Description2 != "" {
		rec[FieldDescription2] = FormatStringForEngine(d.Description2)
	}
	if d.Owner != 0 {
		rec[FieldOwner] = d.Owner
	}
	for k, v := range d.Extra {
		if s, ok := v.(string); ok {
			rec[k] = FormatStringForEngine(s)
			continue
		}
		rec[k] = v
	}
	return rec, nil
}

// ExportFileForEngine produces the derived record for one attached file.
// The record shares the parent's grouping id, gets a composite id, and
// carries only a 256-byte stand-in for the parent content; the file body
// itself is streamed separately by the engine adapter.
func (d *Document) ExportFileForEngine(f File) (map[string]any, error) {
	rec, err := d.ExportForEngine()
	if err != nil {
		return nil, err
	}
	if f.ID == 0 {
		return nil, errors.New(errors.ErrCodeMalformedDocument, "file missing id", nil).
			WithDetail("id", d.ID)
	}

	rec[FieldID] = FileRecordID(d.ID, f.ID)
	rec[FieldType] = int(TypeFile)

	// Long strings on file records travel by URL on some engines, and the
	// parent record indexes the full text anyway.
	if content, ok := rec[FieldContent].(string); ok {
		rec[FieldTmpContent] = truncateBytes(content, FileFieldBytes)
	}
	delete(rec, FieldContent)
	if v, ok := rec[FieldDescription1].(string); ok {
		rec[FieldDescription1] = truncateBytes(v, FileFieldBytes)
	}
	if v, ok := rec[FieldDescription2].(string); ok {
		rec[FieldDescription2] = truncateBytes(v, FileFieldBytes)
	}

	rec[FieldFileID] = f.ID
	rec[FieldFilename] = f.Filename
	rec[FieldTitle] = FormatStringForEngine(f.Filename)
	rec[FieldFileContentHash] = f.ContentHash
	rec[FieldModified] = FormatTimeForEngine(f.Modified)
	return rec, nil
}

// FileRecordID builds the index id of a file record from its parent
// document id and file id.
func FileRecordID(docID string, fileID int64) string {
	return fmt.Sprintf("%s-file%d", docID, fileID)
}

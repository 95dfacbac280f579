// Package result turns raw engine responses into access-checked
// documents. Two strategies exist: flat (one record, one document) and
// grouped (a parent document reassembled with its matched file records).
// Both enforce the result cap independently of the query layer.
package result

import (
	"context"
	"log/slog"

	"github.com/lanternsearch/lantern/internal/area"
	"github.com/lanternsearch/lantern/internal/document"
	"github.com/lanternsearch/lantern/internal/engine"
	"github.com/lanternsearch/lantern/internal/query"
)

// Assembler builds result documents from engine responses.
type Assembler struct {
	areas      *area.Registry
	eng        engine.Engine
	maxResults int
	log        *slog.Logger
}

// New creates an assembler.
func New(areas *area.Registry, eng engine.Engine, maxResults int, log *slog.Logger) *Assembler {
	if maxResults <= 0 || maxResults > query.MaxResults {
		maxResults = query.MaxResults
	}
	if log == nil {
		log = slog.Default()
	}
	return &Assembler{areas: areas, eng: eng, maxResults: maxResults, log: log}
}

// Flat assembles a non-grouped response: highlight merge first, then the
// per-result access filter.
func (a *Assembler) Flat(ctx context.Context, res *engine.Results) []*document.Document {
	accepted := make([]*document.Document, 0, len(res.Docs))
	for _, raw := range res.Docs {
		if len(accepted) >= a.maxResults {
			break
		}
		mergeHighlights(raw, res)

		_, decision, ok := a.checkAccess(ctx, raw)
		if !ok {
			continue
		}
		switch decision {
		case area.AccessDeleted:
			a.selfHeal(ctx, raw.ID())
		case area.AccessGranted:
			accepted = append(accepted, toDocument(raw))
		}
		// Denied results are dropped silently.
	}
	return accepted
}

// Grouped assembles a file-grouped response. Access is decided once per
// group; a deleted group drops entirely and self-heals via the main
// record's id. A group whose main record was truncated out by the
// per-group limit is reconstructed from the source system so the result
// is never lost.
func (a *Assembler) Grouped(ctx context.Context, res *engine.Results) []*document.Document {
	accepted := make([]*document.Document, 0, len(res.Groups))
	for _, group := range res.Groups {
		if len(accepted) >= a.maxResults {
			break
		}
		if len(group.Docs) == 0 {
			continue
		}
		first := group.Docs[0]

		provider, decision, ok := a.checkAccess(ctx, first)
		if !ok {
			continue
		}
		switch decision {
		case area.AccessDeleted:
			a.selfHeal(ctx, group.Value)
			continue
		case area.AccessDenied:
			continue
		}

		var main engine.RawDoc
		var fileDocs []engine.RawDoc
		for _, raw := range group.Docs {
			if raw.ID() == group.Value {
				main = raw
			} else {
				fileDocs = append(fileDocs, raw)
			}
		}

		var doc *document.Document
		if main != nil {
			doc = toDocument(main)
		} else {
			// The per-group limit squeezed out the canonical record;
			// build it from the source system rather than dropping the
			// group or re-querying with a larger limit.
			rebuilt, err := provider.DocumentForID(ctx, first.Int64(document.FieldItemID))
			if err != nil {
				a.log.Warn("main_record_rebuild_failed",
					slog.String("groupingid", group.Value),
					slog.String("error", err.Error()))
				continue
			}
			a.log.Debug("main_record_rebuilt", slog.String("groupingid", group.Value))
			doc = rebuilt
		}

		for _, raw := range fileDocs {
			doc.MatchedFiles = append(doc.MatchedFiles, document.FileHit{
				ID:         raw.Int64(document.FieldFileID),
				Filename:   raw.String(document.FieldFilename),
				GroupingID: raw.String(document.FieldGroupingID),
			})
		}
		accepted = append(accepted, doc)
	}
	return accepted
}

// checkAccess resolves the area provider and the access decision for one
// raw record. ok is false when the result must be skipped without any
// side effect: unknown area (likely uninstalled) or a failing check.
func (a *Assembler) checkAccess(ctx context.Context, raw engine.RawDoc) (area.Provider, area.AccessDecision, bool) {
	areaID := raw.String(document.FieldAreaID)
	provider, found := a.areas.Lookup(areaID)
	if !found {
		a.log.Debug("unknown_area_dropped", slog.String("areaid", areaID))
		return nil, area.AccessDenied, false
	}

	decision, err := provider.CheckAccess(ctx, raw.Int64(document.FieldItemID))
	if err != nil {
		// An access-check failure is not a denial: skip this one
		// result and keep processing.
		a.log.Warn("access_check_failed",
			slog.String("areaid", areaID),
			slog.Int64("itemid", raw.Int64(document.FieldItemID)),
			slog.String("error", err.Error()))
		return nil, area.AccessDenied, false
	}
	return provider, decision, true
}

// selfHeal deletes a stale index entry whose source record disappeared
// without an explicit delete call.
func (a *Assembler) selfHeal(ctx context.Context, id string) {
	a.log.Info("stale_entry_deleted", slog.String("id", id))
	if err := a.eng.DeleteByID(ctx, id); err != nil {
		a.log.Warn("stale_entry_delete_failed",
			slog.String("id", id),
			slog.String("error", err.Error()))
	}
}

// mergeHighlights replaces each highlighted field's value with the first
// returned fragment. Multi-valued highlight arrays collapse to their
// first element.
func mergeHighlights(raw engine.RawDoc, res *engine.Results) {
	for _, field := range query.HighlightFields {
		if raw.String(field) == "" {
			continue
		}
		if frags := res.Fragments(raw.ID(), field); len(frags) > 0 {
			raw[field] = frags[0]
		}
	}
}

// toDocument converts a raw engine record into a result document.
func toDocument(raw engine.RawDoc) *document.Document {
	modified, _ := document.ImportTimeFromEngine(raw.String(document.FieldModified))
	return &document.Document{
		ID:           raw.ID(),
		AreaID:       raw.String(document.FieldAreaID),
		ItemID:       raw.Int64(document.FieldItemID),
		Type:         document.Type(raw.Int64(document.FieldType)),
		GroupingID:   raw.String(document.FieldGroupingID),
		Title:        raw.String(document.FieldTitle),
		Content:      raw.String(document.FieldContent),
		Description1: raw.String(document.FieldDescription1),
		Description2: raw.String(document.FieldDescription2),
		ContextID:    raw.Int64(document.FieldContextID),
		Owner:        raw.Int64(document.FieldOwner),
		Modified:     modified,
	}
}

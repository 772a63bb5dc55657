// Package backup transfers the catalog through a zip archive of JSON
// documents, one per novel, for moving a library between installations.
package backup

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"novelshelf/internal/catalog"
)

// FormatVersion identifies the backup layout; bumped on breaking changes.
const FormatVersion = 1

const manifestName = "manifest.json"

// ErrBadManifest indicates the zip is not a novelshelf backup or its format
// version is unsupported.
var ErrBadManifest = errors.New("not a recognized backup archive")

type manifest struct {
	FormatVersion int       `json:"format_version"`
	ExportedAt    time.Time `json:"exported_at"`
	NovelCount    int       `json:"novel_count"`
}

type novelExport struct {
	Title    string           `json:"title"`
	Author   string           `json:"author,omitempty"`
	Language string           `json:"language,omitempty"`
	Source   string           `json:"source,omitempty"`
	Chapters []chapterExport  `json:"chapters"`
	Progress []progressExport `json:"progress,omitempty"`
}

type chapterExport struct {
	Sequence     int             `json:"sequence"`
	DisplayTitle string          `json:"display_title"`
	Variants     []variantExport `json:"variants"`
}

type variantExport struct {
	VariantType       string `json:"variant_type"`
	LanguageCode      string `json:"language_code,omitempty"`
	Title             string `json:"title,omitempty"`
	Content           string `json:"content"`
	SourceAttribution string `json:"source_attribution,omitempty"`
	IsPrimary         bool   `json:"is_primary"`
}

// Progress is carried by chapter sequence, not chapter id, so it survives
// the id remapping an import performs.
type progressExport struct {
	DeviceID        string  `json:"device_id"`
	ChapterSequence int     `json:"chapter_sequence"`
	Position        float64 `json:"position"`
}

// Export writes the whole catalog as a backup zip to w.
func Export(ctx context.Context, store *catalog.Store, w io.Writer) error {
	novels, err := store.ListNovels(ctx)
	if err != nil {
		return err
	}

	zw := zip.NewWriter(w)

	m := manifest{
		FormatVersion: FormatVersion,
		ExportedAt:    time.Now().UTC(),
		NovelCount:    len(novels),
	}
	if err := writeJSONEntry(zw, manifestName, m); err != nil {
		return err
	}

	for _, novel := range novels {
		export, err := exportNovel(ctx, store, novel)
		if err != nil {
			return err
		}
		name := fmt.Sprintf("novels/%d.json", novel.ID)
		if err := writeJSONEntry(zw, name, export); err != nil {
			return err
		}
	}

	return zw.Close()
}

// Import reads a backup zip and inserts its novels into the store. Every
// novel in the backup becomes a new catalog entry; nothing is deduplicated.
// Returns the number of novels imported.
func Import(ctx context.Context, store *catalog.Store, r io.ReaderAt, size int64) (int, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return 0, fmt.Errorf("open backup archive: %w", err)
	}

	var m manifest
	if err := readJSONEntry(zr, manifestName, &m); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadManifest, err)
	}
	if m.FormatVersion != FormatVersion {
		return 0, fmt.Errorf("%w: format version %d", ErrBadManifest, m.FormatVersion)
	}

	imported := 0
	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, "novels/") || !strings.HasSuffix(f.Name, ".json") {
			continue
		}
		var export novelExport
		if err := readJSONEntry(zr, f.Name, &export); err != nil {
			return imported, fmt.Errorf("read %s: %w", f.Name, err)
		}
		if err := importNovel(ctx, store, export); err != nil {
			return imported, fmt.Errorf("import %s: %w", f.Name, err)
		}
		imported++
	}
	return imported, nil
}

func exportNovel(ctx context.Context, store *catalog.Store, novel *catalog.Novel) (novelExport, error) {
	export := novelExport{
		Title:    novel.Title,
		Author:   novel.Author,
		Language: novel.Language,
		Source:   novel.Source,
	}

	chapters, err := store.ChaptersByNovel(ctx, novel.ID)
	if err != nil {
		return export, err
	}

	sequenceByID := make(map[int64]int, len(chapters))
	for _, ch := range chapters {
		sequenceByID[ch.ID] = ch.SequenceNumber

		variants, err := store.VariantsByChapter(ctx, ch.ID)
		if err != nil {
			return export, err
		}
		ce := chapterExport{Sequence: ch.SequenceNumber, DisplayTitle: ch.DisplayTitle}
		for _, v := range variants {
			ce.Variants = append(ce.Variants, variantExport{
				VariantType:       v.VariantType,
				LanguageCode:      v.LanguageCode,
				Title:             v.Title,
				Content:           v.Content,
				SourceAttribution: v.SourceAttribution,
				IsPrimary:         v.IsPrimary,
			})
		}
		export.Chapters = append(export.Chapters, ce)
	}

	progress, err := store.ProgressByNovel(ctx, novel.ID)
	if err != nil {
		return export, err
	}
	for _, p := range progress {
		seq, ok := sequenceByID[p.ChapterID]
		if !ok {
			continue
		}
		export.Progress = append(export.Progress, progressExport{
			DeviceID:        p.DeviceID,
			ChapterSequence: seq,
			Position:        p.Position,
		})
	}

	return export, nil
}

func importNovel(ctx context.Context, store *catalog.Store, export novelExport) error {
	novel, err := store.CreateNovel(ctx, export.Title, export.Author, export.Language, export.Source)
	if err != nil {
		return err
	}

	chapterIDBySequence := make(map[int]int64, len(export.Chapters))
	for _, ce := range export.Chapters {
		draft := catalog.ChapterDraft{
			NovelID:      novel.ID,
			Sequence:     ce.Sequence,
			DisplayTitle: ce.DisplayTitle,
		}
		if len(ce.Variants) > 0 {
			first := ce.Variants[0]
			draft.LanguageCode = first.LanguageCode
			draft.Title = first.Title
			draft.Content = first.Content
			draft.SourceAttribution = first.SourceAttribution
		}
		chapterID, err := store.InsertChapter(ctx, draft)
		if err != nil {
			return err
		}
		chapterIDBySequence[ce.Sequence] = chapterID

		if len(ce.Variants) < 2 {
			continue
		}
		for _, v := range ce.Variants[1:] {
			_, err := store.InsertVariant(ctx, catalog.ChapterVariant{
				ChapterID:         chapterID,
				VariantType:       v.VariantType,
				LanguageCode:      v.LanguageCode,
				Title:             v.Title,
				Content:           v.Content,
				SourceAttribution: v.SourceAttribution,
				IsPrimary:         v.IsPrimary,
			})
			if err != nil {
				return err
			}
		}
	}

	for _, p := range export.Progress {
		chapterID, ok := chapterIDBySequence[p.ChapterSequence]
		if !ok {
			continue
		}
		err := store.SetProgress(ctx, catalog.ReadingProgress{
			NovelID:   novel.ID,
			DeviceID:  p.DeviceID,
			ChapterID: chapterID,
			Position:  p.Position,
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func writeJSONEntry(zw *zip.Writer, name string, v any) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return nil
}

func readJSONEntry(zr *zip.Reader, name string, v any) error {
	f, err := zr.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewDecoder(f).Decode(v)
}

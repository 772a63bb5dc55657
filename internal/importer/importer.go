// Package importer sequences the epub pipeline over a resolved item list,
// assigns increasing chapter numbers, and hands finished records to the
// catalog store. It also covers plain-text single-file import.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"novelshelf/internal/catalog"
	"novelshelf/internal/epub"
)

// ErrNoImportableChapters indicates content was found in the archive but
// every item was filtered out. Distinct from epub.ErrNoReadableContent,
// which means no content was found at all; callers present different
// messages for the two.
var ErrNoImportableChapters = errors.New("no importable chapters after filtering")

// PersistenceError reports a storage failure mid-import, including how many
// chapters were already committed before the failure.
type PersistenceError struct {
	Committed int
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed after %d committed chapters: %v", e.Committed, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Store is the storage collaborator. Sequence allocation is a single atomic
// operation per persisted chapter; inserts are not deduplicated and are not
// retried.
type Store interface {
	NextSequence(ctx context.Context, novelID int64) (int, error)
	InsertChapter(ctx context.Context, draft catalog.ChapterDraft) (int64, error)
}

// ProgressFunc receives (processed, total) after each candidate is
// resolved, whether kept or filtered.
type ProgressFunc func(processed, total int)

// Options configures a single import run.
type Options struct {
	NovelID        int64
	FallbackTitle  string
	FallbackAuthor string
	Language       string
	Progress       ProgressFunc
	Logger         *slog.Logger
}

// ImportedChapter describes one persisted chapter in the result.
type ImportedChapter struct {
	ChapterID int64
	Sequence  int
	Title     string
}

// Result is the sole artifact an import exposes outward.
type Result struct {
	NovelTitle string
	Author     string
	Chapters   []ImportedChapter
}

// ImportEPUB runs the full ingestion pipeline over a zip-packaged e-book
// archive and persists every surviving chapter through the store.
//
// Cancellation is checked at each per-item boundary. When chapters were
// already committed, both cancellation and storage failures surface as a
// *PersistenceError naming the committed count, so a partially populated
// novel is never silent.
func ImportEPUB(ctx context.Context, data []byte, store Store, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	archive, err := epub.OpenArchive(data)
	if err != nil {
		return nil, err
	}

	rootfile, err := epub.ResolveRootfile(archive)
	if err != nil {
		return nil, err
	}

	pkgText, ok := archive.ReadText(rootfile)
	if !ok {
		// The descriptor names a package document that does not exist;
		// nothing downstream can recover from that.
		return nil, fmt.Errorf("%w: package document %q missing", epub.ErrInvalidContainer, rootfile)
	}
	pkg := epub.ParsePackage(pkgText, rootfile)

	items, err := epub.ResolveNavigation(archive, pkg, logger)
	if err != nil {
		return nil, err
	}

	total := len(items)
	committed := 0
	var chapters []ImportedChapter

	for i, item := range items {
		select {
		case <-ctx.Done():
			return nil, abortErr(ctx.Err(), committed)
		default:
		}

		candidate, keep := resolveCandidate(archive, item, logger)
		if keep {
			seq, err := store.NextSequence(ctx, opts.NovelID)
			if err != nil {
				return nil, &PersistenceError{Committed: committed, Err: err}
			}

			title := candidate.Title
			if title == "" {
				title = fmt.Sprintf("Chapter %d", seq)
			}

			chapterID, err := store.InsertChapter(ctx, catalog.ChapterDraft{
				NovelID:           opts.NovelID,
				Sequence:          seq,
				DisplayTitle:      title,
				LanguageCode:      opts.Language,
				Title:             title,
				Content:           candidate.Body,
				SourceAttribution: "epub",
			})
			if err != nil {
				return nil, &PersistenceError{Committed: committed, Err: err}
			}

			committed++
			chapters = append(chapters, ImportedChapter{ChapterID: chapterID, Sequence: seq, Title: title})
		}

		if opts.Progress != nil {
			opts.Progress(i+1, total)
		}
	}

	if len(chapters) == 0 {
		return nil, ErrNoImportableChapters
	}

	result := &Result{
		NovelTitle: pkg.Title,
		Author:     pkg.Creator,
		Chapters:   chapters,
	}
	if result.NovelTitle == "" {
		result.NovelTitle = opts.FallbackTitle
	}
	if result.Author == "" {
		result.Author = opts.FallbackAuthor
	}
	return result, nil
}

// resolveCandidate extracts one item and applies the content filter stage
// (the structural stage already ran during navigation resolution).
// Exclusions and unreadable entries are never errors; the item is simply
// omitted and does not consume a sequence number.
func resolveCandidate(archive *epub.Archive, item epub.ResolvedItem, logger *slog.Logger) (epub.ChapterCandidate, bool) {
	candidate, ok := epub.Extract(archive, item)
	if !ok {
		logger.Warn("entry unreadable, skipping", "path", item.Path)
		return epub.ChapterCandidate{}, false
	}

	if epub.ExcludedByContent(candidate) {
		logger.Debug("excluded by content", "path", item.Path, "title", candidate.Title)
		return epub.ChapterCandidate{}, false
	}
	return candidate, true
}

func abortErr(cause error, committed int) error {
	if committed > 0 {
		return &PersistenceError{Committed: committed, Err: cause}
	}
	return cause
}

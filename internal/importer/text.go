package importer

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"novelshelf/internal/catalog"
)

// ImportText imports a plain-text file as a single chapter. The display
// title is taken from the file name; sequence allocation and variant
// persistence follow the same contract as the archive path.
func ImportText(ctx context.Context, name string, data []byte, store Store, opts Options) (*Result, error) {
	body := strings.TrimSpace(string(data))
	if body == "" {
		return nil, ErrNoImportableChapters
	}

	seq, err := store.NextSequence(ctx, opts.NovelID)
	if err != nil {
		return nil, &PersistenceError{Committed: 0, Err: err}
	}

	title := titleFromFilename(name)
	if title == "" {
		title = fmt.Sprintf("Chapter %d", seq)
	}

	chapterID, err := store.InsertChapter(ctx, catalog.ChapterDraft{
		NovelID:           opts.NovelID,
		Sequence:          seq,
		DisplayTitle:      title,
		LanguageCode:      opts.Language,
		Title:             title,
		Content:           body,
		SourceAttribution: "text",
	})
	if err != nil {
		return nil, &PersistenceError{Committed: 0, Err: err}
	}

	if opts.Progress != nil {
		opts.Progress(1, 1)
	}

	return &Result{
		NovelTitle: opts.FallbackTitle,
		Author:     opts.FallbackAuthor,
		Chapters:   []ImportedChapter{{ChapterID: chapterID, Sequence: seq, Title: title}},
	}, nil
}

func titleFromFilename(name string) string {
	base := strings.TrimSpace(filepath.Base(name))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.TrimSpace(base)
}

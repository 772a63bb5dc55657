package backup

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"novelshelf/internal/catalog"
)

func openTestStore(t *testing.T) *catalog.Store {
	t.Helper()
	store, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestBackupRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := openTestStore(t)

	novel, err := src.CreateNovel(ctx, "River Town", "Wen Shu", "en", "epub")
	if err != nil {
		t.Fatalf("CreateNovel() error = %v", err)
	}

	ch1, err := src.InsertChapter(ctx, catalog.ChapterDraft{
		NovelID: novel.ID, Sequence: 1, DisplayTitle: "The Flood",
		LanguageCode: "en", Title: "The Flood", Content: "rain for days",
		SourceAttribution: "epub",
	})
	if err != nil {
		t.Fatalf("InsertChapter() error = %v", err)
	}
	ch2, err := src.InsertChapter(ctx, catalog.ChapterDraft{
		NovelID: novel.ID, Sequence: 2, DisplayTitle: "The Ferry",
		Content: "crossing at dawn",
	})
	if err != nil {
		t.Fatalf("InsertChapter() error = %v", err)
	}
	if _, err := src.InsertVariant(ctx, catalog.ChapterVariant{
		ChapterID: ch1, VariantType: "TRANSLATED", LanguageCode: "de",
		Content: "Regen seit Tagen", IsPrimary: true,
	}); err != nil {
		t.Fatalf("InsertVariant() error = %v", err)
	}
	if err := src.SetProgress(ctx, catalog.ReadingProgress{
		NovelID: novel.ID, DeviceID: "phone", ChapterID: ch2, Position: 0.5,
	}); err != nil {
		t.Fatalf("SetProgress() error = %v", err)
	}

	var buf bytes.Buffer
	if err := Export(ctx, src, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	dst := openTestStore(t)
	imported, err := Import(ctx, dst, bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if imported != 1 {
		t.Fatalf("Import() = %d novels, want 1", imported)
	}

	novels, err := dst.ListNovels(ctx)
	if err != nil {
		t.Fatalf("ListNovels() error = %v", err)
	}
	if len(novels) != 1 {
		t.Fatalf("destination holds %d novels, want 1", len(novels))
	}
	got := novels[0]
	if got.Title != "River Town" || got.Author != "Wen Shu" || got.Language != "en" || got.Source != "epub" {
		t.Errorf("novel = %+v", got)
	}

	chapters, err := dst.ChaptersByNovel(ctx, got.ID)
	if err != nil {
		t.Fatalf("ChaptersByNovel() error = %v", err)
	}
	if len(chapters) != 2 {
		t.Fatalf("destination holds %d chapters, want 2", len(chapters))
	}
	if chapters[0].DisplayTitle != "The Flood" || chapters[0].SequenceNumber != 1 {
		t.Errorf("chapters[0] = %+v", chapters[0])
	}

	variants, err := dst.VariantsByChapter(ctx, chapters[0].ID)
	if err != nil {
		t.Fatalf("VariantsByChapter() error = %v", err)
	}
	if len(variants) != 2 {
		t.Fatalf("chapter 1 carries %d variants, want 2", len(variants))
	}
	if variants[0].VariantType != catalog.VariantTypeRaw || variants[0].Content != "rain for days" {
		t.Errorf("raw variant = %+v", variants[0])
	}
	if variants[1].VariantType != "TRANSLATED" || variants[1].LanguageCode != "de" || !variants[1].IsPrimary {
		t.Errorf("extra variant = %+v", variants[1])
	}

	// Progress remaps onto the new chapter ids through the sequence number.
	progress, err := dst.GetProgress(ctx, got.ID, "phone")
	if err != nil {
		t.Fatalf("GetProgress() error = %v", err)
	}
	if progress == nil {
		t.Fatal("progress row missing after import")
	}
	if progress.ChapterID != chapters[1].ID || progress.Position != 0.5 {
		t.Errorf("progress = %+v, want chapter %d position 0.5", progress, chapters[1].ID)
	}
}

func TestExportEmptyCatalog(t *testing.T) {
	ctx := context.Background()
	src := openTestStore(t)

	var buf bytes.Buffer
	if err := Export(ctx, src, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	dst := openTestStore(t)
	imported, err := Import(ctx, dst, bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if imported != 0 {
		t.Errorf("Import() = %d, want 0", imported)
	}
}

func TestImportNotABackup(t *testing.T) {
	ctx := context.Background()
	dst := openTestStore(t)

	t.Run("zip without manifest", func(t *testing.T) {
		var buf bytes.Buffer
		zw := zip.NewWriter(&buf)
		f, err := zw.Create("random.txt")
		if err != nil {
			t.Fatalf("zip create: %v", err)
		}
		if _, err := f.Write([]byte("nope")); err != nil {
			t.Fatalf("zip write: %v", err)
		}
		if err := zw.Close(); err != nil {
			t.Fatalf("zip close: %v", err)
		}

		_, err = Import(ctx, dst, bytes.NewReader(buf.Bytes()), int64(buf.Len()))
		if !errors.Is(err, ErrBadManifest) {
			t.Fatalf("Import() error = %v, want ErrBadManifest", err)
		}
	})

	t.Run("unsupported format version", func(t *testing.T) {
		var buf bytes.Buffer
		zw := zip.NewWriter(&buf)
		if err := writeJSONEntry(zw, manifestName, manifest{FormatVersion: 99}); err != nil {
			t.Fatalf("write manifest: %v", err)
		}
		if err := zw.Close(); err != nil {
			t.Fatalf("zip close: %v", err)
		}

		_, err := Import(ctx, dst, bytes.NewReader(buf.Bytes()), int64(buf.Len()))
		if !errors.Is(err, ErrBadManifest) {
			t.Fatalf("Import() error = %v, want ErrBadManifest", err)
		}
	})

	t.Run("not a zip at all", func(t *testing.T) {
		data := []byte("just some text")
		if _, err := Import(ctx, dst, bytes.NewReader(data), int64(len(data))); err == nil {
			t.Fatal("Import() of non-zip data should fail")
		}
	})
}

func TestImportDoesNotDeduplicate(t *testing.T) {
	ctx := context.Background()
	src := openTestStore(t)

	if _, err := src.CreateNovel(ctx, "Once", "", "", ""); err != nil {
		t.Fatalf("CreateNovel() error = %v", err)
	}

	var buf bytes.Buffer
	if err := Export(ctx, src, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	dst := openTestStore(t)
	for i := 0; i < 2; i++ {
		if _, err := Import(ctx, dst, bytes.NewReader(buf.Bytes()), int64(buf.Len())); err != nil {
			t.Fatalf("Import() #%d error = %v", i+1, err)
		}
	}

	novels, err := dst.ListNovels(ctx)
	if err != nil {
		t.Fatalf("ListNovels() error = %v", err)
	}
	if len(novels) != 2 {
		t.Errorf("importing twice should create two entries, got %d", len(novels))
	}
}

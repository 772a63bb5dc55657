package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// ErrNovelNotFound is returned by lookups for an unknown novel id.
var ErrNovelNotFound = errors.New("novel not found")

// Store manages catalog persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the catalog database and creates the
// schema when missing.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure catalog directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// CreateNovel inserts a new catalog entry and returns it.
func (s *Store) CreateNovel(ctx context.Context, title, author, language, source string) (*Novel, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO novels (title, author, language, source, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		title,
		nullableString(author),
		nullableString(language),
		nullableString(source),
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert novel: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetNovel(ctx, id)
}

// GetNovel fetches a novel by id.
func (s *Store) GetNovel(ctx context.Context, id int64) (*Novel, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, title, author, language, source, created_at, updated_at FROM novels WHERE id = ?`,
		id,
	)
	novel, err := scanNovel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrNovelNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get novel: %w", err)
	}
	return novel, nil
}

// ListNovels returns all novels ordered by creation time.
func (s *Store) ListNovels(ctx context.Context) ([]*Novel, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, title, author, language, source, created_at, updated_at FROM novels ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list novels: %w", err)
	}
	defer rows.Close()

	var novels []*Novel
	for rows.Next() {
		novel, err := scanNovel(rows)
		if err != nil {
			return nil, err
		}
		novels = append(novels, novel)
	}
	return novels, rows.Err()
}

// DeleteNovel removes a novel and, through foreign keys, its chapters,
// variants and progress rows.
func (s *Store) DeleteNovel(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM novels WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete novel: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// NextSequence allocates the next chapter sequence number for a novel:
// max(existing) + 1. Each call is a single atomic allocation.
func (s *Store) NextSequence(ctx context.Context, novelID int64) (int, error) {
	var next int
	err := s.db.QueryRowContext(
		ctx,
		`SELECT COALESCE(MAX(sequence_number), 0) + 1 FROM chapters WHERE novel_id = ?`,
		novelID,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return next, nil
}

// InsertChapter persists a chapter and its RAW variant in one transaction
// and returns the chapter id.
func (s *Store) InsertChapter(ctx context.Context, draft ChapterDraft) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin chapter tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := tx.ExecContext(
		ctx,
		`INSERT INTO chapters (novel_id, sequence_number, display_title, created_at)
         VALUES (?, ?, ?, ?)`,
		draft.NovelID,
		draft.Sequence,
		draft.DisplayTitle,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("insert chapter: %w", err)
	}
	chapterID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO chapter_variants (
            chapter_id, variant_type, language_code, title, content,
            source_attribution, is_primary, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, 0, ?)`,
		chapterID,
		VariantTypeRaw,
		nullableString(draft.LanguageCode),
		nullableString(draft.Title),
		draft.Content,
		nullableString(draft.SourceAttribution),
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("insert chapter variant: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit chapter tx: %w", err)
	}
	return chapterID, nil
}

// InsertVariant adds an additional variant to an existing chapter.
func (s *Store) InsertVariant(ctx context.Context, v ChapterVariant) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO chapter_variants (
            chapter_id, variant_type, language_code, title, content,
            source_attribution, is_primary, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ChapterID,
		v.VariantType,
		nullableString(v.LanguageCode),
		nullableString(v.Title),
		v.Content,
		nullableString(v.SourceAttribution),
		boolToInt(v.IsPrimary),
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("insert variant: %w", err)
	}
	return res.LastInsertId()
}

// ChaptersByNovel returns a novel's chapters in sequence order.
func (s *Store) ChaptersByNovel(ctx context.Context, novelID int64) ([]*Chapter, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, novel_id, sequence_number, display_title, created_at
         FROM chapters WHERE novel_id = ? ORDER BY sequence_number`,
		novelID,
	)
	if err != nil {
		return nil, fmt.Errorf("query chapters: %w", err)
	}
	defer rows.Close()

	var chapters []*Chapter
	for rows.Next() {
		ch, err := scanChapter(rows)
		if err != nil {
			return nil, err
		}
		chapters = append(chapters, ch)
	}
	return chapters, rows.Err()
}

// CountChapters returns the number of chapters stored for a novel.
func (s *Store) CountChapters(ctx context.Context, novelID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM chapters WHERE novel_id = ?`,
		novelID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count chapters: %w", err)
	}
	return count, nil
}

// VariantsByChapter returns all variants of a chapter, RAW first.
func (s *Store) VariantsByChapter(ctx context.Context, chapterID int64) ([]*ChapterVariant, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, chapter_id, variant_type, language_code, title, content,
                source_attribution, is_primary, created_at
         FROM chapter_variants WHERE chapter_id = ?
         ORDER BY CASE variant_type WHEN ? THEN 0 ELSE 1 END, id`,
		chapterID,
		VariantTypeRaw,
	)
	if err != nil {
		return nil, fmt.Errorf("query variants: %w", err)
	}
	defer rows.Close()

	var variants []*ChapterVariant
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}
	return variants, rows.Err()
}

// GetVariant fetches the first variant of a chapter (RAW when present).
func (s *Store) GetVariant(ctx context.Context, chapterID int64) (*ChapterVariant, error) {
	variants, err := s.VariantsByChapter(ctx, chapterID)
	if err != nil {
		return nil, err
	}
	if len(variants) == 0 {
		return nil, nil
	}
	return variants[0], nil
}

// SetProgress records where a device stopped reading a novel.
func (s *Store) SetProgress(ctx context.Context, p ReadingProgress) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO reading_progress (novel_id, device_id, chapter_id, position, updated_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT (novel_id, device_id) DO UPDATE
         SET chapter_id = excluded.chapter_id, position = excluded.position, updated_at = excluded.updated_at`,
		p.NovelID,
		p.DeviceID,
		p.ChapterID,
		p.Position,
		now,
	)
	if err != nil {
		return fmt.Errorf("set progress: %w", err)
	}
	return nil
}

// GetProgress returns the stored progress for a device and novel, or nil.
func (s *Store) GetProgress(ctx context.Context, novelID int64, deviceID string) (*ReadingProgress, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT novel_id, device_id, chapter_id, position, updated_at
         FROM reading_progress WHERE novel_id = ? AND device_id = ?`,
		novelID,
		deviceID,
	)
	var (
		p          ReadingProgress
		updatedRaw string
	)
	err := row.Scan(&p.NovelID, &p.DeviceID, &p.ChapterID, &p.Position, &updatedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}
	if t, err := parseTimeString(updatedRaw); err == nil {
		p.UpdatedAt = t
	}
	return &p, nil
}

// ProgressByNovel returns every device's progress for a novel.
func (s *Store) ProgressByNovel(ctx context.Context, novelID int64) ([]*ReadingProgress, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT novel_id, device_id, chapter_id, position, updated_at
         FROM reading_progress WHERE novel_id = ? ORDER BY device_id`,
		novelID,
	)
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	defer rows.Close()

	var out []*ReadingProgress
	for rows.Next() {
		var (
			p          ReadingProgress
			updatedRaw string
		)
		if err := rows.Scan(&p.NovelID, &p.DeviceID, &p.ChapterID, &p.Position, &updatedRaw); err != nil {
			return nil, err
		}
		if t, err := parseTimeString(updatedRaw); err == nil {
			p.UpdatedAt = t
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func scanNovel(scanner interface{ Scan(dest ...any) error }) (*Novel, error) {
	var (
		novel      Novel
		author     sql.NullString
		language   sql.NullString
		source     sql.NullString
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(&novel.ID, &novel.Title, &author, &language, &source, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	novel.Author = author.String
	novel.Language = language.String
	novel.Source = source.String
	if t, err := parseTimeString(createdRaw); err == nil {
		novel.CreatedAt = t
	}
	if t, err := parseTimeString(updatedRaw); err == nil {
		novel.UpdatedAt = t
	}
	return &novel, nil
}

func scanChapter(scanner interface{ Scan(dest ...any) error }) (*Chapter, error) {
	var (
		ch         Chapter
		createdRaw string
	)
	if err := scanner.Scan(&ch.ID, &ch.NovelID, &ch.SequenceNumber, &ch.DisplayTitle, &createdRaw); err != nil {
		return nil, err
	}
	if t, err := parseTimeString(createdRaw); err == nil {
		ch.CreatedAt = t
	}
	return &ch, nil
}

func scanVariant(scanner interface{ Scan(dest ...any) error }) (*ChapterVariant, error) {
	var (
		v          ChapterVariant
		language   sql.NullString
		title      sql.NullString
		source     sql.NullString
		isPrimary  int
		createdRaw string
	)
	if err := scanner.Scan(
		&v.ID, &v.ChapterID, &v.VariantType, &language, &title, &v.Content,
		&source, &isPrimary, &createdRaw,
	); err != nil {
		return nil, err
	}
	v.LanguageCode = language.String
	v.Title = title.String
	v.SourceAttribution = source.String
	v.IsPrimary = isPrimary != 0
	if t, err := parseTimeString(createdRaw); err == nil {
		v.CreatedAt = t
	}
	return &v, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

package catalog

import "time"

// Novel is a catalog entry for one book.
type Novel struct {
	ID        int64
	Title     string
	Author    string
	Language  string
	Source    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Chapter is one reading unit of a novel. Sequence numbers are strictly
// increasing per novel and never reused.
type Chapter struct {
	ID             int64
	NovelID        int64
	SequenceNumber int
	DisplayTitle   string
	CreatedAt      time.Time
}

// ChapterVariant holds the actual text of a chapter in one rendition.
// Imports create a single RAW variant per chapter.
type ChapterVariant struct {
	ID                int64
	ChapterID         int64
	VariantType       string
	LanguageCode      string
	Title             string
	Content           string
	SourceAttribution string
	IsPrimary         bool
	CreatedAt         time.Time
}

// VariantTypeRaw is the variant type created by every import path.
const VariantTypeRaw = "RAW"

// ChapterDraft is the unit an importer hands to the store: one chapter row
// plus its RAW variant, persisted together.
type ChapterDraft struct {
	NovelID           int64
	Sequence          int
	DisplayTitle      string
	LanguageCode      string
	Title             string
	Content           string
	SourceAttribution string
}

// ReadingProgress records where a device last stopped in a novel.
type ReadingProgress struct {
	NovelID   int64
	DeviceID  string
	ChapterID int64
	Position  float64
	UpdatedAt time.Time
}

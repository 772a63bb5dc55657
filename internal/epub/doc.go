// Package epub recovers an ordered table of contents and per-entry plain
// text from a zip-packaged e-book archive, even when the archive's own
// navigation metadata is incomplete, inconsistent, or absent.
//
// The pipeline runs strictly downward: archive reader, container resolver,
// package parser, navigation resolver (spine, then NCX, then raw scan),
// content extractor, chapter filter. Individual bad entries are skipped;
// only the errors in errors.go abort an import.
package epub

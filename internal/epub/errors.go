package epub

import "errors"

var (
	// ErrArchiveFormat indicates the input blob is not a valid zip container.
	ErrArchiveFormat = errors.New("not a valid zip archive")

	// ErrInvalidContainer indicates the OCF container descriptor is missing or
	// does not name a package document. There is no fallback for this; the
	// import as a whole fails.
	ErrInvalidContainer = errors.New("missing or malformed container descriptor")

	// ErrNoReadableContent indicates that the spine, the NCX fallback and the
	// raw archive scan all yielded zero readable items.
	ErrNoReadableContent = errors.New("no readable content found in archive")
)

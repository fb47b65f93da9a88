package archive

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const DefaultContentType = "application/x-protobuf"

var formatContentTypes = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"webp": "image/webp",
	"gif":  "image/gif",
	"pbf":  "application/x-protobuf",
	"mvt":  "application/x-protobuf",
}

// NewTileBlob sniffs the tile bytes first and falls back to the archive's
// declared format, then to DefaultContentType.
func NewTileBlob(data []byte, format string) TileBlob {
	blob := TileBlob{Data: data}

	m := mimetype.Detect(data)
	switch {
	case m.Is("application/gzip"):
		blob.ContentType = DefaultContentType
		blob.ContentEncoding = "gzip"
		return blob
	case m.Is("image/png"), m.Is("image/jpeg"), m.Is("image/webp"), m.Is("image/gif"):
		blob.ContentType = m.String()
		return blob
	}

	if ct, ok := formatContentTypes[strings.ToLower(format)]; ok {
		blob.ContentType = ct
		return blob
	}

	blob.ContentType = DefaultContentType
	return blob
}

package documents

import "time"

// Document is an uploaded RFP or proposal file. StorageKey points at the raw
// object; ExtractedTextKey is set once the text extraction ran, so repeated
// report runs skip re-parsing the file.
type Document struct {
	ID               string
	UserID           string
	FileName         string
	OriginalFilename string
	MimeType         string
	ContentType      string
	SizeBytes        int64
	StorageProvider  string
	StorageKey       string
	ExtractedTextKey string
	ExtractedAt      *time.Time
	CreatedAt        time.Time
}

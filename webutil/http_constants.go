package webutil

const (
	// Header Keys
	HeaderContentType        = "Content-Type"
	HeaderAuthorization      = "Authorization"
	HeaderContentDisposition = "Content-Disposition"

	// Content Types
	ContentTypeJSONUTF8      = "application/json; charset=utf-8"
	ContentTypeTextPlainUTF8 = "text/plain; charset=utf-8"
	ContentTypeNDJSON        = "application/x-ndjson"
	ContentTypePDF           = "application/pdf"
	ContentTypeEPUB          = "application/epub+zip"
)

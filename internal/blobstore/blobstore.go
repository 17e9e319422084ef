// internal/blobstore/blobstore.go
package blobstore

// ObjectStore uploads and downloads named blobs for notifications: base64
// images and custom card payloads. Content is keyed by an opaque name
// (normally the owning notification's id); the store knows nothing about
// campaign semantics.
type ObjectStore interface {
	// UploadImage stores a base64 image under name and returns the stored
	// name the notification record should reference.
	UploadImage(name, base64Content string) (string, error)

	// DownloadImage returns the base64 content stored under name.
	DownloadImage(name string) (string, error)

	// CopyImage duplicates the image at src under dst, so edits to either
	// copy never affect the other.
	CopyImage(src, dst string) error

	// UploadCard stores a custom card JSON payload under name.
	UploadCard(name, payload string) error

	// DownloadCard returns the card payload stored under name.
	DownloadCard(name string) (string, error)
}

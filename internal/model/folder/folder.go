package folder

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	TypePDF   = "pdf"
	TypeImage = "image"
)

// File is one uploaded blob as it appears on a folder record: the name is the
// display label, the URL is presigned and short-lived, the type drives the
// pdf/image preview branch.
type File struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type"`
}

type Folder struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uint32    `json:"owner_id"`
	Name      string    `json:"name"`
	Date      string    `json:"date"`
	Files     []File    `json:"files"`
	CreatedAt time.Time `json:"created_at"`

	// ListError is set when the live blob listing for this folder failed
	// during a list call. Never persisted.
	ListError string `json:"list_error,omitempty"`
}

// TypeOf derives the preview type from the file name suffix. Everything that
// is not a PDF is rendered as an image.
func TypeOf(name string) string {
	if strings.HasSuffix(strings.ToLower(name), ".pdf") {
		return TypePDF
	}
	return TypeImage
}

// ObjectKey is the storage path of a blob; it is the join key between the
// folder record and the object store.
func ObjectKey(folderID uuid.UUID, fileName string) string {
	return fmt.Sprintf("folders/%s/%s", folderID, fileName)
}

// Prefix is the storage path under which all of a folder's blobs live.
func Prefix(folderID uuid.UUID) string {
	return fmt.Sprintf("folders/%s/", folderID)
}

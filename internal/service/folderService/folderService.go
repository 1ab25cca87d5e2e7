package folderService

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"records-service/internal/model/folder"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Presigned URLs outlive any single page view but not much more.
const presignTTL = time.Hour

const dateLayout = "2006-01-02"

var (
	ErrFolderNotFound  = errors.New("folder not found")
	ErrFolderBusy      = errors.New("folder operation already in progress")
	ErrInvalidFileName = errors.New("invalid file name")
	ErrNoFiles         = errors.New("no files provided")
)

// FolderStore is the document-store side of the workflow.
type FolderStore interface {
	Create(ctx context.Context, f *folder.Folder) error
	GetByID(ctx context.Context, folderID uuid.UUID) (*folder.Folder, error)
	ListByOwner(ctx context.Context, ownerID uint32) ([]*folder.Folder, error)
	UpdateName(ctx context.Context, folderID uuid.UUID, name string) error
	UpdateFiles(ctx context.Context, folderID uuid.UUID, files []folder.File) error
	Delete(ctx context.Context, folderID uuid.UUID) error
}

// ObjectStore is the blob side. Keys are always folder-scoped paths.
type ObjectStore interface {
	UploadFile(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	ListFiles(ctx context.Context, prefix string) ([]string, error)
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
	DeleteFile(ctx context.Context, key string) error
}

type CreateFolderRequest struct {
	Name string `json:"name"`
	Date string `json:"date"`
}

func (r CreateFolderRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required),
		validation.Field(&r.Date, validation.Required, validation.Date(dateLayout)),
	)
}

type RenameFolderRequest struct {
	Name string `json:"name"`
}

func (r RenameFolderRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required),
	)
}

// Upload is one file of an upload batch.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Reader      io.Reader
}

type FolderService struct {
	folders FolderStore
	blobs   ObjectStore

	mu       sync.Mutex
	inFlight map[uuid.UUID]struct{}
}

func New(folders FolderStore, blobs ObjectStore) *FolderService {
	return &FolderService{
		folders:  folders,
		blobs:    blobs,
		inFlight: make(map[uuid.UUID]struct{}),
	}
}

// acquire marks a folder as having a mutation in flight. A second mutating
// call on the same folder fails fast instead of racing the first.
func (s *FolderService) acquire(folderID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[folderID]; busy {
		return ErrFolderBusy
	}
	s.inFlight[folderID] = struct{}{}
	return nil
}

func (s *FolderService) release(folderID uuid.UUID) {
	s.mu.Lock()
	delete(s.inFlight, folderID)
	s.mu.Unlock()
}

// ListFolders returns every folder owned by ownerID with its live file
// listing merged in. Per-folder listings run concurrently and settle
// individually: a folder whose listing failed keeps its cached file snapshot
// and carries a ListError marker instead of failing the whole call.
func (s *FolderService) ListFolders(ctx context.Context, ownerID uint32) ([]*folder.Folder, error) {
	records, err := s.folders.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}

	var wg sync.WaitGroup
	for _, rec := range records {
		wg.Add(1)
		go func(rec *folder.Folder) {
			defer wg.Done()
			live, err := s.listLive(ctx, rec.ID)
			if err != nil {
				rec.ListError = "failed to list folder files"
				return
			}
			rec.Files = live
		}(rec)
	}
	wg.Wait()

	if records == nil {
		records = []*folder.Folder{}
	}
	return records, nil
}

// CreateFolder creates the record first, then uploads the batch under the new
// folder's path and persists the resulting file list. When an upload fails the
// record stays (the detail screen retries the upload); the returned folder is
// non-nil whenever the record was created.
func (s *FolderService) CreateFolder(ctx context.Context, ownerID uint32, req CreateFolderRequest, uploads []Upload) (*folder.Folder, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	for _, up := range uploads {
		if err := validateFileName(up.Name); err != nil {
			return nil, err
		}
	}

	f := &folder.Folder{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Name:      req.Name,
		Date:      req.Date,
		Files:     []folder.File{},
		CreatedAt: time.Now().UTC(),
	}
	if err := s.folders.Create(ctx, f); err != nil {
		return nil, fmt.Errorf("failed to create folder record: %w", err)
	}

	if len(uploads) == 0 {
		return f, nil
	}

	files, err := s.uploadBatch(ctx, f.ID, uploads)
	if err != nil {
		return f, fmt.Errorf("folder created but upload incomplete: %w", err)
	}

	f.Files = files
	if err := s.folders.UpdateFiles(ctx, f.ID, files); err != nil {
		return f, fmt.Errorf("failed to persist file list: %w", err)
	}
	return f, nil
}

// GetFolder loads one folder with its live listing. The cached file list on
// the record is reconciled against the listing; the object store wins.
func (s *FolderService) GetFolder(ctx context.Context, ownerID uint32, folderID uuid.UUID) (*folder.Folder, error) {
	rec, err := s.getOwned(ctx, ownerID, folderID)
	if err != nil {
		return nil, err
	}

	live, err := s.listLive(ctx, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list folder files: %w", err)
	}

	if !sameNames(rec.Files, live) {
		// Best-effort repair of a diverged cache; the read itself serves
		// the live listing either way.
		_ = s.folders.UpdateFiles(ctx, rec.ID, live)
	}
	rec.Files = live
	return rec, nil
}

// UploadFiles uploads a batch into an existing folder. The batch joins
// all-or-nothing; blobs of a partially failed batch are picked up by the next
// load's reconcile pass.
func (s *FolderService) UploadFiles(ctx context.Context, ownerID uint32, folderID uuid.UUID, uploads []Upload) (*folder.Folder, error) {
	if len(uploads) == 0 {
		return nil, ErrNoFiles
	}
	for _, up := range uploads {
		if err := validateFileName(up.Name); err != nil {
			return nil, err
		}
	}

	if err := s.acquire(folderID); err != nil {
		return nil, err
	}
	defer s.release(folderID)

	rec, err := s.getOwned(ctx, ownerID, folderID)
	if err != nil {
		return nil, err
	}

	files, err := s.uploadBatch(ctx, folderID, uploads)
	if err != nil {
		return nil, fmt.Errorf("failed to upload files: %w", err)
	}

	rec.Files = mergeFiles(rec.Files, files)
	if err := s.folders.UpdateFiles(ctx, folderID, rec.Files); err != nil {
		return nil, fmt.Errorf("failed to persist file list: %w", err)
	}
	return rec, nil
}

// DeleteFile removes the blob first, then drops the entry from the record.
func (s *FolderService) DeleteFile(ctx context.Context, ownerID uint32, folderID uuid.UUID, fileName string) (*folder.Folder, error) {
	if err := validateFileName(fileName); err != nil {
		return nil, err
	}

	if err := s.acquire(folderID); err != nil {
		return nil, err
	}
	defer s.release(folderID)

	rec, err := s.getOwned(ctx, ownerID, folderID)
	if err != nil {
		return nil, err
	}

	if err := s.blobs.DeleteFile(ctx, folder.ObjectKey(folderID, fileName)); err != nil {
		return nil, fmt.Errorf("failed to delete file: %w", err)
	}

	kept := make([]folder.File, 0, len(rec.Files))
	for _, f := range rec.Files {
		if f.Name != fileName {
			kept = append(kept, f)
		}
	}
	rec.Files = kept
	if err := s.folders.UpdateFiles(ctx, folderID, kept); err != nil {
		return nil, fmt.Errorf("failed to persist file list: %w", err)
	}
	return rec, nil
}

// RenameFolder updates the display name only; storage paths are keyed by the
// folder id, so no blobs move.
func (s *FolderService) RenameFolder(ctx context.Context, ownerID uint32, folderID uuid.UUID, req RenameFolderRequest) (*folder.Folder, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if err := s.acquire(folderID); err != nil {
		return nil, err
	}
	defer s.release(folderID)

	rec, err := s.getOwned(ctx, ownerID, folderID)
	if err != nil {
		return nil, err
	}

	if err := s.folders.UpdateName(ctx, folderID, req.Name); err != nil {
		return nil, fmt.Errorf("failed to rename folder: %w", err)
	}
	rec.Name = req.Name
	return rec, nil
}

// DeleteFolder removes every blob under the folder's path, then the record.
// Blobs go first so an interruption cannot leave blobs without an owning
// record; a leftover record is re-deletable.
func (s *FolderService) DeleteFolder(ctx context.Context, ownerID uint32, folderID uuid.UUID) error {
	if err := s.acquire(folderID); err != nil {
		return err
	}
	defer s.release(folderID)

	if _, err := s.getOwned(ctx, ownerID, folderID); err != nil {
		return err
	}

	keys, err := s.blobs.ListFiles(ctx, folder.Prefix(folderID))
	if err != nil {
		return fmt.Errorf("failed to list folder files: %w", err)
	}
	for _, key := range keys {
		if err := s.blobs.DeleteFile(ctx, key); err != nil {
			return fmt.Errorf("failed to delete blob %s: %w", key, err)
		}
	}

	if err := s.folders.Delete(ctx, folderID); err != nil {
		return fmt.Errorf("failed to delete folder record: %w", err)
	}
	return nil
}

func (s *FolderService) getOwned(ctx context.Context, ownerID uint32, folderID uuid.UUID) (*folder.Folder, error) {
	rec, err := s.folders.GetByID(ctx, folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get folder: %w", err)
	}
	// A folder owned by someone else looks exactly like a missing one.
	if rec == nil || rec.OwnerID != ownerID {
		return nil, ErrFolderNotFound
	}
	return rec, nil
}

// listLive builds file entries from the object-store listing, resolving a
// presigned URL per blob.
func (s *FolderService) listLive(ctx context.Context, folderID uuid.UUID) ([]folder.File, error) {
	prefix := folder.Prefix(folderID)
	keys, err := s.blobs.ListFiles(ctx, prefix)
	if err != nil {
		return nil, err
	}

	files := make([]folder.File, 0, len(keys))
	for _, key := range keys {
		name := strings.TrimPrefix(key, prefix)
		if name == "" {
			continue
		}
		url, err := s.blobs.PresignedURL(ctx, key, presignTTL)
		if err != nil {
			return nil, err
		}
		files = append(files, folder.File{Name: name, URL: url, Type: folder.TypeOf(name)})
	}
	return files, nil
}

func (s *FolderService) uploadBatch(ctx context.Context, folderID uuid.UUID, uploads []Upload) ([]folder.File, error) {
	g, gctx := errgroup.WithContext(ctx)
	files := make([]folder.File, len(uploads))
	for i, up := range uploads {
		g.Go(func() error {
			key := folder.ObjectKey(folderID, up.Name)
			if err := s.blobs.UploadFile(gctx, key, up.Reader, up.Size, up.ContentType); err != nil {
				return fmt.Errorf("upload %q: %w", up.Name, err)
			}
			url, err := s.blobs.PresignedURL(gctx, key, presignTTL)
			if err != nil {
				return fmt.Errorf("resolve url for %q: %w", up.Name, err)
			}
			files[i] = folder.File{Name: up.Name, URL: url, Type: folder.TypeOf(up.Name)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

func validateFileName(name string) error {
	if name == "" || strings.Contains(name, "/") || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidFileName, name)
	}
	return nil
}

// mergeFiles appends added entries, replacing existing ones with the same
// name (re-uploading a file overwrites its blob).
func mergeFiles(existing, added []folder.File) []folder.File {
	out := append([]folder.File(nil), existing...)
	idx := make(map[string]int, len(out))
	for i, f := range out {
		idx[f.Name] = i
	}
	for _, f := range added {
		if i, ok := idx[f.Name]; ok {
			out[i] = f
		} else {
			idx[f.Name] = len(out)
			out = append(out, f)
		}
	}
	return out
}

// sameNames compares two listings by file-name set; URLs are presigned fresh
// on every read and never participate.
func sameNames(a, b []folder.File) bool {
	if len(a) != len(b) {
		return false
	}
	names := make(map[string]int, len(a))
	for _, f := range a {
		names[f.Name]++
	}
	for _, f := range b {
		if names[f.Name] == 0 {
			return false
		}
		names[f.Name]--
	}
	return true
}

package folderService_test

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"records-service/internal/model/folder"
	"records-service/internal/service/folderService"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// opLog records the order of store operations across both fakes.
type opLog struct {
	mu  sync.Mutex
	ops []string
}

func (l *opLog) add(op string) {
	l.mu.Lock()
	l.ops = append(l.ops, op)
	l.mu.Unlock()
}

type fakeFolderStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*folder.Folder
	calls   int
	log     *opLog
}

func newFakeFolderStore(log *opLog) *fakeFolderStore {
	return &fakeFolderStore{records: make(map[uuid.UUID]*folder.Folder), log: log}
}

func (s *fakeFolderStore) clone(f *folder.Folder) *folder.Folder {
	cp := *f
	cp.Files = append([]folder.File(nil), f.Files...)
	return &cp
}

func (s *fakeFolderStore) Create(_ context.Context, f *folder.Folder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.records[f.ID] = s.clone(f)
	return nil
}

func (s *fakeFolderStore) GetByID(_ context.Context, id uuid.UUID) (*folder.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	rec, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	return s.clone(rec), nil
}

func (s *fakeFolderStore) ListByOwner(_ context.Context, ownerID uint32) ([]*folder.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	var out []*folder.Folder
	for _, rec := range s.records {
		if rec.OwnerID == ownerID {
			out = append(out, s.clone(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *fakeFolderStore) UpdateName(_ context.Context, id uuid.UUID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if rec, ok := s.records[id]; ok {
		rec.Name = name
	}
	return nil
}

func (s *fakeFolderStore) UpdateFiles(_ context.Context, id uuid.UUID, files []folder.File) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if rec, ok := s.records[id]; ok {
		rec.Files = append([]folder.File(nil), files...)
	}
	return nil
}

func (s *fakeFolderStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.log != nil {
		s.log.add("record:delete")
	}
	delete(s.records, id)
	return nil
}

type fakeObjectStore struct {
	mu            sync.Mutex
	objects       map[string][]byte
	calls         int
	log           *opLog
	failList      map[string]bool // prefix -> fail
	failUpload    string          // file name suffix that fails
	uploadGate    chan struct{}   // when set, UploadFile blocks until closed
	uploadEntered chan struct{}   // signalled once a gated upload is in flight
}

func newFakeObjectStore(log *opLog) *fakeObjectStore {
	return &fakeObjectStore{objects: make(map[string][]byte), log: log, failList: make(map[string]bool)}
}

func (s *fakeObjectStore) UploadFile(_ context.Context, key string, reader io.Reader, _ int64, _ string) error {
	if s.uploadGate != nil {
		s.uploadEntered <- struct{}{}
		<-s.uploadGate
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failUpload != "" && strings.HasSuffix(key, s.failUpload) {
		return errors.New("upload rejected")
	}
	s.objects[key] = data
	return nil
}

func (s *fakeObjectStore) ListFiles(_ context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failList[prefix] {
		return nil, errors.New("listing unavailable")
	}
	var keys []string
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *fakeObjectStore) PresignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return "https://blobs.test/" + key + "?sig=abc", nil
}

func (s *fakeObjectStore) DeleteFile(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.log != nil {
		s.log.add("blob:delete:" + key)
	}
	delete(s.objects, key)
	return nil
}

func setup(t *testing.T) (*folderService.FolderService, *fakeFolderStore, *fakeObjectStore, *opLog) {
	t.Helper()
	log := &opLog{}
	folders := newFakeFolderStore(log)
	blobs := newFakeObjectStore(log)
	return folderService.New(folders, blobs), folders, blobs, log
}

func mkUpload(name, content string) folderService.Upload {
	return folderService.Upload{
		Name:        name,
		ContentType: "application/octet-stream",
		Size:        int64(len(content)),
		Reader:      strings.NewReader(content),
	}
}

func fileNames(files []folder.File) []string {
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
	}
	return names
}

func TestCreateFolder_ValidationIssuesNoRemoteCalls(t *testing.T) {
	svc, folders, blobs, _ := setup(t)
	ctx := context.Background()

	cases := []folderService.CreateFolderRequest{
		{Name: "", Date: "2024-01-01"},
		{Name: "Test", Date: ""},
		{Name: "Test", Date: "not-a-date"},
	}
	for _, req := range cases {
		created, err := svc.CreateFolder(ctx, 1, req, nil)
		assert.Error(t, err)
		assert.Nil(t, created)
	}

	assert.Zero(t, folders.calls, "no document-store call may be issued")
	assert.Zero(t, blobs.calls, "no object-store call may be issued")
}

func TestCreateFolder_WithFilesThenList(t *testing.T) {
	svc, folders, _, _ := setup(t)
	ctx := context.Background()

	req := folderService.CreateFolderRequest{Name: "Test", Date: "2024-01-01"}
	created, err := svc.CreateFolder(ctx, 1, req, []folderService.Upload{
		mkUpload("report.pdf", "%PDF-1.4"),
		mkUpload("xray.png", "fakepng"),
	})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "Test", created.Name)
	assert.Equal(t, "2024-01-01", created.Date)

	listed, err := svc.ListFolders(ctx, 1)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Len(t, listed[0].Files, 2)

	// object-store listing is sorted, so report.pdf comes first and the
	// thumbnail selects the pdf branch
	assert.Equal(t, "report.pdf", listed[0].Files[0].Name)
	assert.Equal(t, folder.TypePDF, listed[0].Files[0].Type)
	assert.Equal(t, folder.TypeImage, listed[0].Files[1].Type)
	assert.Contains(t, listed[0].Files[0].URL, "folders/"+created.ID.String()+"/report.pdf")

	// persisted snapshot matches
	rec := folders.records[created.ID]
	require.NotNil(t, rec)
	assert.ElementsMatch(t, []string{"report.pdf", "xray.png"}, fileNames(rec.Files))
}

func TestCreateFolder_PartialUploadKeepsRecord(t *testing.T) {
	svc, folders, blobs, _ := setup(t)
	ctx := context.Background()
	blobs.failUpload = "bad.png"

	req := folderService.CreateFolderRequest{Name: "Test", Date: "2024-01-01"}
	created, err := svc.CreateFolder(ctx, 1, req, []folderService.Upload{
		mkUpload("ok.png", "x"),
		mkUpload("bad.png", "y"),
	})
	assert.Error(t, err)
	require.NotNil(t, created, "the record survives a failed batch")
	assert.NotNil(t, folders.records[created.ID])
}

func TestListFolders_OwnerIsolation(t *testing.T) {
	svc, _, _, _ := setup(t)
	ctx := context.Background()

	mine, err := svc.CreateFolder(ctx, 1, folderService.CreateFolderRequest{Name: "Mine", Date: "2024-01-01"}, nil)
	require.NoError(t, err)
	_, err = svc.CreateFolder(ctx, 2, folderService.CreateFolderRequest{Name: "Theirs", Date: "2024-01-02"}, nil)
	require.NoError(t, err)

	listed, err := svc.ListFolders(ctx, 1)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, mine.ID, listed[0].ID)
}

func TestListFolders_EmptyIsNotAnError(t *testing.T) {
	svc, _, _, _ := setup(t)

	listed, err := svc.ListFolders(context.Background(), 99)
	require.NoError(t, err)
	assert.NotNil(t, listed)
	assert.Empty(t, listed)
}

func TestListFolders_SettlesPerFolder(t *testing.T) {
	svc, _, blobs, _ := setup(t)
	ctx := context.Background()

	good, err := svc.CreateFolder(ctx, 1, folderService.CreateFolderRequest{Name: "Good", Date: "2024-01-01"},
		[]folderService.Upload{mkUpload("a.png", "x")})
	require.NoError(t, err)
	bad, err := svc.CreateFolder(ctx, 1, folderService.CreateFolderRequest{Name: "Bad", Date: "2024-01-02"},
		[]folderService.Upload{mkUpload("b.png", "y")})
	require.NoError(t, err)

	blobs.failList[folder.Prefix(bad.ID)] = true

	listed, err := svc.ListFolders(ctx, 1)
	require.NoError(t, err, "one broken folder must not fail the list")
	require.Len(t, listed, 2)

	byID := map[uuid.UUID]*folder.Folder{listed[0].ID: listed[0], listed[1].ID: listed[1]}
	assert.Empty(t, byID[good.ID].ListError)
	assert.Len(t, byID[good.ID].Files, 1)
	assert.NotEmpty(t, byID[bad.ID].ListError)
	// the cached snapshot is kept for the broken folder
	assert.Equal(t, []string{"b.png"}, fileNames(byID[bad.ID].Files))
}

func TestGetFolder_MissingAndForeign(t *testing.T) {
	svc, _, _, _ := setup(t)
	ctx := context.Background()

	_, err := svc.GetFolder(ctx, 1, uuid.New())
	assert.ErrorIs(t, err, folderService.ErrFolderNotFound)

	theirs, err := svc.CreateFolder(ctx, 2, folderService.CreateFolderRequest{Name: "Theirs", Date: "2024-01-01"}, nil)
	require.NoError(t, err)

	_, err = svc.GetFolder(ctx, 1, theirs.ID)
	assert.ErrorIs(t, err, folderService.ErrFolderNotFound)
}

func TestGetFolder_ReconcilesStaleSnapshot(t *testing.T) {
	svc, folders, blobs, _ := setup(t)
	ctx := context.Background()

	created, err := svc.CreateFolder(ctx, 1, folderService.CreateFolderRequest{Name: "Test", Date: "2024-01-01"},
		[]folderService.Upload{mkUpload("a.png", "x")})
	require.NoError(t, err)

	// a blob appears behind the record's back (e.g. an earlier batch that
	// failed after some uploads went through)
	blobs.objects[folder.ObjectKey(created.ID, "b.png")] = []byte("y")

	got, err := svc.GetFolder(ctx, 1, created.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.png", "b.png"}, fileNames(got.Files))

	rec := folders.records[created.ID]
	assert.ElementsMatch(t, []string{"a.png", "b.png"}, fileNames(rec.Files),
		"the persisted snapshot is repaired from the live listing")
}

func TestUploadFiles_AppendsToBoth(t *testing.T) {
	svc, folders, blobs, _ := setup(t)
	ctx := context.Background()

	created, err := svc.CreateFolder(ctx, 1, folderService.CreateFolderRequest{Name: "Test", Date: "2024-01-01"},
		[]folderService.Upload{mkUpload("a.png", "x")})
	require.NoError(t, err)

	got, err := svc.UploadFiles(ctx, 1, created.ID, []folderService.Upload{
		mkUpload("b.png", "y"),
		mkUpload("c.pdf", "z"),
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.png", "b.png", "c.pdf"}, fileNames(got.Files))

	keys, err := blobs.ListFiles(ctx, folder.Prefix(created.ID))
	require.NoError(t, err)
	assert.Len(t, keys, 3)
	assert.Len(t, folders.records[created.ID].Files, 3)
}

func TestUploadFiles_Validation(t *testing.T) {
	svc, _, _, _ := setup(t)
	ctx := context.Background()

	created, err := svc.CreateFolder(ctx, 1, folderService.CreateFolderRequest{Name: "Test", Date: "2024-01-01"}, nil)
	require.NoError(t, err)

	_, err = svc.UploadFiles(ctx, 1, created.ID, nil)
	assert.ErrorIs(t, err, folderService.ErrNoFiles)

	_, err = svc.UploadFiles(ctx, 1, created.ID, []folderService.Upload{mkUpload("../escape.png", "x")})
	assert.ErrorIs(t, err, folderService.ErrInvalidFileName)
}

func TestDeleteFile_KeepsBothStoresInSync(t *testing.T) {
	svc, folders, blobs, _ := setup(t)
	ctx := context.Background()

	created, err := svc.CreateFolder(ctx, 1, folderService.CreateFolderRequest{Name: "Test", Date: "2024-01-01"},
		[]folderService.Upload{
			mkUpload("a.png", "1"),
			mkUpload("b.png", "2"),
			mkUpload("c.png", "3"),
		})
	require.NoError(t, err)

	got, err := svc.DeleteFile(ctx, 1, created.ID, "b.png")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"a.png", "c.png"}, fileNames(got.Files))
	assert.ElementsMatch(t, []string{"a.png", "c.png"}, fileNames(folders.records[created.ID].Files))

	keys, err := blobs.ListFiles(ctx, folder.Prefix(created.ID))
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}

func TestRenameFolder(t *testing.T) {
	svc, _, _, _ := setup(t)
	ctx := context.Background()

	created, err := svc.CreateFolder(ctx, 1, folderService.CreateFolderRequest{Name: "A", Date: "2024-01-01"}, nil)
	require.NoError(t, err)

	_, err = svc.RenameFolder(ctx, 1, created.ID, folderService.RenameFolderRequest{Name: ""})
	assert.Error(t, err)

	renamed, err := svc.RenameFolder(ctx, 1, created.ID, folderService.RenameFolderRequest{Name: "B"})
	require.NoError(t, err)
	assert.Equal(t, "B", renamed.Name)

	got, err := svc.GetFolder(ctx, 1, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "B", got.Name)
}

func TestDeleteFolder_RemovesRecordAndBlobs(t *testing.T) {
	svc, folders, blobs, log := setup(t)
	ctx := context.Background()

	created, err := svc.CreateFolder(ctx, 1, folderService.CreateFolderRequest{Name: "Test", Date: "2024-01-01"},
		[]folderService.Upload{
			mkUpload("a.png", "1"),
			mkUpload("b.pdf", "2"),
		})
	require.NoError(t, err)

	log.ops = nil
	err = svc.DeleteFolder(ctx, 1, created.ID)
	require.NoError(t, err)

	listed, err := svc.ListFolders(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, listed)

	keys, err := blobs.ListFiles(ctx, folder.Prefix(created.ID))
	require.NoError(t, err)
	assert.Empty(t, keys)
	assert.Nil(t, folders.records[created.ID])

	// blobs are removed before the record
	require.Len(t, log.ops, 3)
	assert.Equal(t, "record:delete", log.ops[2])
	assert.True(t, strings.HasPrefix(log.ops[0], "blob:delete:"))
	assert.True(t, strings.HasPrefix(log.ops[1], "blob:delete:"))
}

func TestMutations_RejectedWhileFolderBusy(t *testing.T) {
	svc, _, blobs, _ := setup(t)
	ctx := context.Background()

	created, err := svc.CreateFolder(ctx, 1, folderService.CreateFolderRequest{Name: "Test", Date: "2024-01-01"}, nil)
	require.NoError(t, err)

	gate := make(chan struct{})
	blobs.uploadGate = gate
	blobs.uploadEntered = make(chan struct{}, 1)

	done := make(chan error, 1)
	go func() {
		_, err := svc.UploadFiles(ctx, 1, created.ID, []folderService.Upload{mkUpload("slow.png", "x")})
		done <- err
	}()

	// wait until the upload holds the folder
	<-blobs.uploadEntered
	assert.ErrorIs(t, svc.DeleteFolder(ctx, 1, created.ID), folderService.ErrFolderBusy)
	_, err = svc.RenameFolder(ctx, 1, created.ID, folderService.RenameFolderRequest{Name: "X"})
	assert.ErrorIs(t, err, folderService.ErrFolderBusy)

	close(gate)
	require.NoError(t, <-done)

	// settled: the folder accepts mutations again
	blobs.uploadGate = nil
	_, err = svc.UploadFiles(ctx, 1, created.ID, []folderService.Upload{mkUpload("next.png", "y")})
	assert.NoError(t, err)
}

package export

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dukerupert/medtrack/internal/model"
)

type mockS3Client struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMockS3() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte)}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	data, _ := io.ReadAll(input.Body)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[*input.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[*input.Key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *mockS3Client) DeleteObject(_ context.Context, input *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, *input.Key)
	return &s3.DeleteObjectOutput{}, nil
}

const dump = `{"export_date":"2026-03-02T12:00:00Z","family_members":[{"id":1,"name":"Ada","active":true}]}`

type fakeSource struct {
	importedName string
	importedData []byte
}

func (f *fakeSource) ExportJSON(context.Context) ([]byte, error) { return []byte(dump), nil }

func (f *fakeSource) ExportCSV(context.Context) ([]byte, error) {
	return []byte("ID,Family Member,Medication,Caregiver,Administered At,Dose Given,Notes\n"), nil
}

func (f *fakeSource) ImportJSON(_ context.Context, name string, data []byte) (*model.ImportResult, error) {
	f.importedName = name
	f.importedData = data
	return &model.ImportResult{Message: "Import completed successfully", Imported: map[string]int{"family_members": 1}}, nil
}

var day = time.Date(2026, 3, 2, 22, 0, 0, 0, time.UTC)

func newTestExporter(src Source, mock *mockS3Client) *Exporter {
	var store *Store
	if mock != nil {
		store = &Store{client: mock, bucket: "backups", prefix: "household"}
	}
	e := New(src, store, slog.Default())
	e.now = func() time.Time { return day }
	return e
}

func TestFileName(t *testing.T) {
	if got := FileName(FormatCSV, day, false); got != "medication_export_2026-03-02.csv" {
		t.Errorf("FileName = %q", got)
	}
	if got := FileName(FormatJSON, day, true); got != "medication_export_2026-03-02.json.enc" {
		t.Errorf("FileName = %q", got)
	}
}

func TestExportPlainToDisk(t *testing.T) {
	dir := t.TempDir()
	e := newTestExporter(&fakeSource{}, nil)

	a, err := e.Export(context.Background(), Options{Format: FormatCSV, Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if a.Encrypted || a.Key != "" {
		t.Errorf("archive = %+v", a)
	}
	got, err := os.ReadFile(filepath.Join(dir, "medication_export_2026-03-02.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(got, []byte("ID,Family Member")) {
		t.Errorf("file = %q", got)
	}
	if int64(len(got)) != a.Size {
		t.Errorf("size = %d, file has %d", a.Size, len(got))
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("dir has %d entries, temp file left behind", len(entries))
	}
}

func TestExportSealedUploadAndRestore(t *testing.T) {
	mock := newMockS3()
	src := &fakeSource{}
	e := newTestExporter(src, mock)

	a, err := e.Export(context.Background(), Options{Format: FormatJSON, Passphrase: "pw", Upload: true})
	if err != nil {
		t.Fatal(err)
	}
	if a.Key != "household/medication_export_2026-03-02.json.enc" {
		t.Errorf("key = %q", a.Key)
	}
	if !IsSealed(mock.objects[a.Key]) {
		t.Fatal("uploaded archive is not sealed")
	}

	res, err := e.Restore(context.Background(), a.Name, "pw")
	if err != nil {
		t.Fatal(err)
	}
	if res.Imported["family_members"] != 1 {
		t.Errorf("result = %+v", res)
	}
	if src.importedName != "medication_export_2026-03-02.json" {
		t.Errorf("imported name = %q", src.importedName)
	}
	if string(src.importedData) != dump {
		t.Errorf("imported data = %q", src.importedData)
	}
}

func TestExportUploadWithoutStore(t *testing.T) {
	e := newTestExporter(&fakeSource{}, nil)
	if _, err := e.Export(context.Background(), Options{Upload: true}); !errors.Is(err, ErrNoStore) {
		t.Errorf("err = %v", err)
	}
	if _, err := e.Restore(context.Background(), "x", ""); !errors.Is(err, ErrNoStore) {
		t.Errorf("err = %v", err)
	}
}

func TestExportUploadFailure(t *testing.T) {
	mock := newMockS3()
	mock.putErr = errors.New("bucket unavailable")
	e := newTestExporter(&fakeSource{}, mock)

	if _, err := e.Export(context.Background(), Options{Upload: true}); err == nil {
		t.Fatal("expected error")
	}
}

func TestImportFromDisk(t *testing.T) {
	dir := t.TempDir()
	sealed, err := Seal([]byte(dump), "pw")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "backup.json.enc")
	if err := os.WriteFile(path, sealed, 0o600); err != nil {
		t.Fatal(err)
	}

	src := &fakeSource{}
	e := newTestExporter(src, nil)

	if _, err := e.Import(context.Background(), path, "nope"); !errors.Is(err, ErrDecrypt) {
		t.Errorf("wrong passphrase: err = %v", err)
	}
	if src.importedData != nil {
		t.Fatal("import reached the API with a bad passphrase")
	}

	if _, err := e.Import(context.Background(), path, "pw"); err != nil {
		t.Fatal(err)
	}
	if src.importedName != "backup.json" {
		t.Errorf("imported name = %q", src.importedName)
	}
}

func TestImportRejectsNonExport(t *testing.T) {
	src := &fakeSource{}
	e := newTestExporter(src, nil)

	for _, data := range []string{"ID,Family Member\n", `{"unrelated":true}`} {
		if _, err := e.ImportData(context.Background(), "x.json", []byte(data), ""); err == nil {
			t.Errorf("%q accepted", data)
		}
	}
	if src.importedData != nil {
		t.Error("invalid data reached the API")
	}
}

func TestArchiveString(t *testing.T) {
	a := Archive{Name: "medication_export_2026-03-02.json", Size: 2048}
	if got := a.String(); got != "medication_export_2026-03-02.json (2.0 kB)" {
		t.Errorf("String = %q", got)
	}
}

func TestNewStoreRequiresCredentials(t *testing.T) {
	if _, err := NewStore(S3Config{Bucket: "b"}); err == nil {
		t.Error("expected error without credentials")
	}
	s, err := NewStore(S3Config{Bucket: "b", Region: "us-east-1", AccessKey: "k", SecretKey: "s", Endpoint: "http://localhost:9000"})
	if err != nil {
		t.Fatal(err)
	}
	if s.key("a.json") != "a.json" {
		t.Errorf("key = %q", s.key("a.json"))
	}
}

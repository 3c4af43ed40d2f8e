package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	ctx := context.Background()

	key := ObjectKey(uuid.New(), FolderOriginal, ".pdf")
	payload := []byte("%PDF-1.4 test")

	if err := s.Put(ctx, key, payload, "application/pdf"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("round trip mismatch: %q", got)
	}

	url, err := s.Presign(ctx, key, time.Minute, "documento.pdf")
	if err != nil {
		t.Fatalf("Presign: %v", err)
	}
	if !strings.HasPrefix(url, "file://") {
		t.Fatalf("presign url = %q", url)
	}

	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, key); err != ErrNotFound {
		t.Fatalf("Get after delete = %v, want ErrNotFound", err)
	}
}

func TestObjectKeyLayout(t *testing.T) {
	id := uuid.New()
	key := ObjectKey(id, FolderGenerated, ".docx")

	parts := strings.Split(key, "/")
	if len(parts) != 4 || parts[0] != "cases" || parts[1] != id.String() || parts[2] != FolderGenerated {
		t.Fatalf("key = %q", key)
	}
	if !strings.HasSuffix(parts[3], ".docx") || len(parts[3]) != 32+len(".docx") {
		t.Fatalf("object name = %q", parts[3])
	}
	if key == ObjectKey(id, FolderGenerated, ".docx") {
		t.Fatal("keys must be unique per call")
	}
}

func TestGuessExt(t *testing.T) {
	cases := []struct {
		filename, mime, want string
	}{
		{"denuncia.PDF", "", ".pdf"},
		{"foto.jpeg", "", ".jpg"},
		{"", "application/pdf", ".pdf"},
		{"", "image/webp", ".webp"},
		{"escrito.docx", "application/octet-stream", ".docx"},
		{"", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", ".docx"},
		{"datos.bin", "application/octet-stream", ""},
	}
	for _, tc := range cases {
		if got := GuessExt(tc.filename, tc.mime); got != tc.want {
			t.Fatalf("GuessExt(%q, %q) = %q, want %q", tc.filename, tc.mime, got, tc.want)
		}
	}
}

package mediastore

import (
	"errors"
	"testing"
	"time"

	"github.com/mthunzitrust/mthunzisite/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	input := CreateInput{
		Name:        "Borehole Opening.JPG",
		StoragePath: "uploads/2024/05/abc123.jpg",
		URL:         "/files/uploads/2024/05/abc123.jpg",
		Size:        2048,
		ContentType: "image/jpeg",
		CreatedByID: primitive.NewObjectID(),
	}

	m, err := store.Create(ctx, input)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if m.ID.IsZero() {
		t.Error("ID should not be zero")
	}
	if m.NameCI != "borehole opening.jpg" {
		t.Errorf("NameCI = %q, want folded name", m.NameCI)
	}
	if !m.IsImage() {
		t.Error("IsImage() = false for image/jpeg")
	}

	got, err := store.GetByID(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.URL != input.URL || got.StoragePath != input.StoragePath {
		t.Errorf("GetByID() = %+v, want url/path from input", got)
	}
}

func TestStore_GetByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.GetByID(ctx, primitive.NewObjectID())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestStore_List(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	empty, err := store.List(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("List() on empty collection = %v, want empty non-nil slice", empty)
	}

	files := []CreateInput{
		{Name: "first.png", StoragePath: "a", ContentType: "image/png"},
		{Name: "report.pdf", StoragePath: "b", ContentType: "application/pdf"},
		{Name: "third.jpg", StoragePath: "c", ContentType: "image/jpeg"},
	}
	for _, in := range files {
		if _, err := store.Create(ctx, in); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	all, err := store.List(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List() returned %d, want 3", len(all))
	}
	if all[0].Name != "third.jpg" {
		t.Errorf("first item = %q, want newest (third.jpg)", all[0].Name)
	}

	images, _ := store.List(ctx, ListOptions{Kind: "image"})
	if len(images) != 2 {
		t.Errorf("List(image) returned %d, want 2", len(images))
	}

	pdfs, _ := store.List(ctx, ListOptions{Kind: "pdf"})
	if len(pdfs) != 1 {
		t.Errorf("List(pdf) returned %d, want 1", len(pdfs))
	}

	found, _ := store.List(ctx, ListOptions{Search: "REPORT"})
	if len(found) != 1 || found[0].Name != "report.pdf" {
		t.Errorf("List(search) = %v, want report.pdf", found)
	}

	limited, _ := store.List(ctx, ListOptions{Limit: 2})
	if len(limited) != 2 {
		t.Errorf("List(limit 2) returned %d", len(limited))
	}
}

func TestStore_Delete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	m, _ := store.Create(ctx, CreateInput{Name: "x.txt", StoragePath: "x", ContentType: "text/plain"})

	if err := store.Delete(ctx, m.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Delete(ctx, m.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}

	n, _ := store.Count(ctx)
	if n != 0 {
		t.Errorf("Count() = %d, want 0", n)
	}
}

func TestFileTypeCategory(t *testing.T) {
	tests := []struct {
		contentType string
		want        string
	}{
		{"image/png", "image"},
		{"video/mp4", "video"},
		{"audio/mpeg", "audio"},
		{"application/pdf", "pdf"},
		{"application/vnd.ms-excel", "spreadsheet"},
		{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "document"},
		{"application/vnd.ms-powerpoint", "presentation"},
		{"application/octet-stream", "file"},
	}
	for _, tt := range tests {
		if got := FileTypeCategory(tt.contentType); got != tt.want {
			t.Errorf("FileTypeCategory(%q) = %q, want %q", tt.contentType, got, tt.want)
		}
	}
}

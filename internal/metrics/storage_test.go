package metrics

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/abdul-hamid-achik/learn.cheap/internal/storage"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInstrumentedStorage_CountsOperations(t *testing.T) {
	s := NewInstrumentedStorage(storage.NewMemoryStorage())
	ctx := context.Background()

	before := testutil.ToFloat64(StorageOperationsTotal.WithLabelValues("upload", "success"))
	if err := s.Upload(ctx, "videos/x/360p.mp4", strings.NewReader("abcdef"), "video/mp4", 6); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	after := testutil.ToFloat64(StorageOperationsTotal.WithLabelValues("upload", "success"))
	if after-before != 1 {
		t.Errorf("upload success delta = %v, want 1", after-before)
	}

	rc, err := s.DownloadRange(ctx, "videos/x/360p.mp4", 1, 3)
	if err != nil {
		t.Fatalf("DownloadRange() error = %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "bcd" {
		t.Errorf("DownloadRange() = %q, want bcd", data)
	}

	beforeErr := testutil.ToFloat64(StorageOperationsTotal.WithLabelValues("stat", "error"))
	if _, err := s.Stat(ctx, "missing"); err == nil {
		t.Error("Stat(missing) expected error")
	}
	if d := testutil.ToFloat64(StorageOperationsTotal.WithLabelValues("stat", "error")) - beforeErr; d != 1 {
		t.Errorf("stat error delta = %v, want 1", d)
	}
}

package store

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"syscall"
	"testing"
	"time"
)

func TestNullStore(t *testing.T) {
	ctx := context.Background()
	s := NewNullStore()
	defer s.Close()

	if err := s.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set() error: %v", err)
	}
	data, ok, err := s.Get(ctx, "key")
	if err != nil || ok || data != nil {
		t.Errorf("Get() = %q, %v, %v, want miss", data, ok, err)
	}
	if err := s.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete() error: %v", err)
	}
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}

	if _, ok, _ := s.Get(ctx, "missing"); ok {
		t.Error("Get(missing) should miss")
	}
	if err := s.Set(ctx, "snapshot:MO-1", []byte("payload"), 0); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	data, ok, err := s.Get(ctx, "snapshot:MO-1")
	if err != nil || !ok || string(data) != "payload" {
		t.Errorf("Get() = %q, %v, %v, want payload hit", data, ok, err)
	}
	if n, _ := s.Entries(); n != 1 {
		t.Errorf("Entries() = %d, want 1", n)
	}

	if err := s.Delete(ctx, "snapshot:MO-1"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if err := s.Delete(ctx, "snapshot:MO-1"); err != nil {
		t.Errorf("second Delete() error: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "snapshot:MO-1"); ok {
		t.Error("Get() after Delete should miss")
	}
}

func TestFileStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s, _ := NewFileStore(t.TempDir())
	if err := s.Set(ctx, "k", []byte("v"), time.Nanosecond); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	time.Sleep(time.Millisecond)
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Error("expired entry should miss")
	}
}

func TestFileStoreCorruptEntry(t *testing.T) {
	ctx := context.Background()
	s, _ := NewFileStore(t.TempDir())
	_ = s.Set(ctx, "k", []byte("v"), 0)
	if err := os.WriteFile(s.path("k"), []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := s.Get(ctx, "k"); ok || err != nil {
		t.Errorf("Get() = %v, %v, want silent miss", ok, err)
	}
}

func TestFileStoreClear(t *testing.T) {
	ctx := context.Background()
	s, _ := NewFileStore(t.TempDir())
	_ = s.Set(ctx, "a", []byte("1"), 0)
	_ = s.Set(ctx, "b", []byte("2"), 0)
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if n, _ := s.Entries(); n != 0 {
		t.Errorf("Entries() after Clear = %d, want 0", n)
	}
}

func TestHash(t *testing.T) {
	if Hash([]byte("hello")) != Hash([]byte("hello")) {
		t.Error("Hash should be deterministic")
	}
	if Hash([]byte("hello")) == Hash([]byte("world")) {
		t.Error("different inputs should produce different hashes")
	}
	if got := len(Hash([]byte("x"))); got != 64 {
		t.Errorf("len(Hash()) = %d, want 64", got)
	}
}

func TestKeyers(t *testing.T) {
	tests := []struct {
		name  string
		keyer Keyer
		want  string
	}{
		{"default", NewDefaultKeyer(), "snapshot:MO-1"},
		{"scoped", NewScopedKeyer(NewDefaultKeyer(), "plant:P1:"), "plant:P1:snapshot:MO-1"},
		{"scoped nil inner", NewScopedKeyer(nil, "t:"), "t:snapshot:MO-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.keyer.SnapshotKey("MO-1"); got != tt.want {
				t.Errorf("SnapshotKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRetryWithBackoff(t *testing.T) {
	RetryDelay = time.Millisecond
	defer func() { RetryDelay = time.Second }()
	ctx := context.Background()

	t.Run("retries retryable errors", func(t *testing.T) {
		calls := 0
		err := RetryWithBackoff(ctx, func() error {
			calls++
			if calls < 3 {
				return Retryable(ErrUnavailable)
			}
			return nil
		})
		if err != nil || calls != 3 {
			t.Errorf("RetryWithBackoff() = %v after %d calls, want nil after 3", err, calls)
		}
	})

	t.Run("stops on permanent errors", func(t *testing.T) {
		calls := 0
		perm := errors.New("permanent")
		err := RetryWithBackoff(ctx, func() error {
			calls++
			return perm
		})
		if !errors.Is(err, perm) || calls != 1 {
			t.Errorf("RetryWithBackoff() = %v after %d calls, want permanent after 1", err, calls)
		}
	})

	t.Run("gives up after three attempts", func(t *testing.T) {
		calls := 0
		err := RetryWithBackoff(ctx, func() error {
			calls++
			return Retryable(ErrUnavailable)
		})
		if !errors.Is(err, ErrUnavailable) || calls != 3 {
			t.Errorf("RetryWithBackoff() = %v after %d calls, want unavailable after 3", err, calls)
		}
	})

	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should be nil")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"eof", io.EOF, true},
		{"net", &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, true},
		{"canceled", context.Canceled, false},
		{"other", errors.New("syntax error"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(Classify(tt.err)); got != tt.want {
				t.Errorf("IsRetryable(Classify(%v)) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

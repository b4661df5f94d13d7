package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// runWatcher starts w and returns a stop func that waits for Run to return.
func runWatcher(t *testing.T, w *Watcher) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.Now().Add(time.Second)
	for !w.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !w.IsRunning() {
		cancel()
		t.Fatal("watcher did not start")
	}
	return func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Run returned %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("Run did not return after cancel")
		}
	}
}

func waitFor(cond func() bool, d time.Duration) bool {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestWatcher_DetectsFileChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "name.csv")
	writeFile(t, path, "name\n人参\n")

	var changed atomic.Int32
	w := New(WithDebounceDuration(20 * time.Millisecond))
	if err := w.Add(path, func() { changed.Add(1) }); err != nil {
		t.Fatal(err)
	}
	stop := runWatcher(t, w)
	defer stop()

	time.Sleep(50 * time.Millisecond)
	writeFile(t, path, "name\n人参\n黄芪\n")

	if !waitFor(func() bool { return changed.Load() > 0 }, 2*time.Second) {
		t.Error("expected change callback")
	}
}

func TestWatcher_MultipleFilesIndependent(t *testing.T) {
	dir := t.TempDir()
	names := filepath.Join(dir, "name.csv")
	tax := filepath.Join(dir, "taxonomy.json")
	writeFile(t, names, "name\n")
	writeFile(t, tax, "[]")

	var nameHits, taxHits atomic.Int32
	w := New(WithForcePoll(true), WithPollInterval(20*time.Millisecond), WithDebounceDuration(10*time.Millisecond))
	if err := w.Add(names, func() { nameHits.Add(1) }); err != nil {
		t.Fatal(err)
	}
	if err := w.Add(tax, func() { taxHits.Add(1) }); err != nil {
		t.Fatal(err)
	}
	stop := runWatcher(t, w)
	defer stop()

	time.Sleep(50 * time.Millisecond)
	writeFile(t, tax, `[{"kingdom":"植物界"}]`)

	if !waitFor(func() bool { return taxHits.Load() > 0 }, 2*time.Second) {
		t.Fatal("expected taxonomy callback")
	}
	if nameHits.Load() != 0 {
		t.Errorf("name.csv callback fired %d times for an untouched file", nameHits.Load())
	}
}

func TestWatcher_PollingFallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.tsv")
	writeFile(t, path, "a\tb\tc\n")

	var changed atomic.Int32
	w := New(WithForcePoll(true), WithPollInterval(20*time.Millisecond), WithDebounceDuration(10*time.Millisecond))
	if err := w.Add(path, func() { changed.Add(1) }); err != nil {
		t.Fatal(err)
	}
	stop := runWatcher(t, w)
	defer stop()

	if !w.IsPolling() {
		t.Error("expected polling mode")
	}
	time.Sleep(50 * time.Millisecond)
	writeFile(t, path, "a\tb\tc\nd\te\tf\n")

	if !waitFor(func() bool { return changed.Load() > 0 }, 2*time.Second) {
		t.Error("expected change in polling mode")
	}
}

func TestWatcher_ForcePollEnv(t *testing.T) {
	t.Setenv("HG_FORCE_POLL", "1")
	dir := t.TempDir()
	path := filepath.Join(dir, "name.csv")
	writeFile(t, path, "name\n")

	w := New(WithPollInterval(20 * time.Millisecond))
	if err := w.Add(path, func() {}); err != nil {
		t.Fatal(err)
	}
	stop := runWatcher(t, w)
	defer stop()

	if !w.IsPolling() {
		t.Error("HG_FORCE_POLL should select polling")
	}
}

func TestWatcher_RemoteFilesystem_UsesPolling(t *testing.T) {
	orig := detectFilesystemTypeFunc
	detectFilesystemTypeFunc = func(string) FilesystemType { return FSTypeNFS }
	defer func() { detectFilesystemTypeFunc = orig }()

	dir := t.TempDir()
	path := filepath.Join(dir, "name.csv")
	writeFile(t, path, "name\n")

	w := New(WithPollInterval(20 * time.Millisecond))
	if err := w.Add(path, func() {}); err != nil {
		t.Fatal(err)
	}
	stop := runWatcher(t, w)
	defer stop()

	if !w.IsPolling() {
		t.Error("remote filesystem should force polling")
	}
	if got := w.FilesystemType(path); got != FSTypeNFS {
		t.Errorf("FilesystemType = %v, want nfs", got)
	}
}

func TestWatcher_FileRemoved(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "name.csv")
	writeFile(t, path, "name\n")

	var mu sync.Mutex
	var gotErr error
	w := New(
		WithForcePoll(true),
		WithPollInterval(20*time.Millisecond),
		WithOnError(func(p string, err error) {
			mu.Lock()
			defer mu.Unlock()
			gotErr = err
		}),
	)
	if err := w.Add(path, func() {}); err != nil {
		t.Fatal(err)
	}
	stop := runWatcher(t, w)
	defer stop()

	time.Sleep(50 * time.Millisecond)
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	ok := waitFor(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return errors.Is(gotErr, ErrFileRemoved)
	}, 2*time.Second)
	if !ok {
		t.Errorf("expected ErrFileRemoved, got %v", gotErr)
	}
}

func TestWatcher_RunErrors(t *testing.T) {
	w := New()
	if err := w.Run(context.Background()); !errors.Is(err, ErrNoFiles) {
		t.Errorf("Run with no files = %v, want ErrNoFiles", err)
	}

	path := filepath.Join(t.TempDir(), "x")
	writeFile(t, path, "x")
	if err := w.Add(path, func() {}); err != nil {
		t.Fatal(err)
	}
	stop := runWatcher(t, w)
	if err := w.Add(path, func() {}); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("Add while running = %v, want ErrAlreadyRunning", err)
	}
	stop()
	if w.IsRunning() {
		t.Error("watcher still running after cancel")
	}
}

func TestWatcher_Paths(t *testing.T) {
	dir := t.TempDir()
	w := New()
	_ = w.Add(filepath.Join(dir, "a"), func() {})
	_ = w.Add(filepath.Join(dir, "b"), func() {})
	_ = w.Add(filepath.Join(dir, "a"), func() {})
	if got := len(w.Paths()); got != 2 {
		t.Errorf("Paths() len = %d, want 2", got)
	}
}

func TestDebouncer_CoalescesBurst(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	var calls atomic.Int32
	for i := 0; i < 5; i++ {
		d.Trigger(func() { calls.Add(1) })
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var calls atomic.Int32
	d.Trigger(func() { calls.Add(1) })
	d.Cancel()
	time.Sleep(60 * time.Millisecond)
	if calls.Load() != 0 {
		t.Errorf("cancelled debouncer fired %d times", calls.Load())
	}
}

func TestDebouncer_DefaultDuration(t *testing.T) {
	if got := NewDebouncer(0).Duration(); got != DefaultDebounceDuration {
		t.Errorf("Duration() = %v, want %v", got, DefaultDebounceDuration)
	}
}

func TestFilesystemTypeString(t *testing.T) {
	cases := map[FilesystemType]string{
		FSTypeUnknown: "unknown",
		FSTypeLocal:   "local",
		FSTypeNFS:     "nfs",
		FSTypeSMB:     "smb",
		FSTypeFUSE:    "fuse",
	}
	for ft, want := range cases {
		if got := ft.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", ft, got, want)
		}
	}
	if isRemoteFilesystem(FSTypeLocal) || !isRemoteFilesystem(FSTypeSMB) {
		t.Error("isRemoteFilesystem classification wrong")
	}
}

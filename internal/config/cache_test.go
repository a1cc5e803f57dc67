package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// touch pins the mtime so fingerprints differ even on coarse-grained
// filesystems.
func touch(t *testing.T, path string, at time.Time) {
	t.Helper()
	if err := os.Chtimes(path, at, at); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
}

func TestCacheReloadIfChanged(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "live.croner")
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	writeFile(t, p, "[job:a]\nschedule = * * * * *\ncommand = echo hi\n")
	touch(t, p, base)

	c := NewCache(nil)
	if _, ok := c.Fingerprint(); ok {
		t.Fatalf("fresh cache should have no fingerprint")
	}

	changed, err := c.ReloadIfChanged(p)
	if err != nil || !changed {
		t.Fatalf("first reload = %v, %v; want true, nil", changed, err)
	}
	if len(c.Jobs()) != 1 || c.Jobs()[0].ID != "a" {
		t.Fatalf("jobs = %+v", c.Jobs())
	}
	fp, ok := c.Fingerprint()
	if !ok || !fp.ModTime.Equal(base) {
		t.Fatalf("fingerprint = %+v, %v", fp, ok)
	}

	changed, err = c.ReloadIfChanged(p)
	if err != nil || changed {
		t.Fatalf("unchanged reload = %v, %v; want false, nil", changed, err)
	}

	// Broken file: error, previous jobs and fingerprint kept.
	writeFile(t, p, "[job:a]\nschedule = * * * * *\n# missing command\n")
	touch(t, p, base.Add(time.Minute))
	if _, err := c.ReloadIfChanged(p); err == nil {
		t.Fatalf("expected error on invalid config")
	}
	if len(c.Jobs()) != 1 || c.Jobs()[0].ID != "a" {
		t.Fatalf("jobs changed after failed reload: %+v", c.Jobs())
	}
	if got, _ := c.Fingerprint(); !got.Equal(fp) {
		t.Fatalf("fingerprint moved after failed reload")
	}

	// The broken file is re-parsed on every call until it is fixed.
	if _, err := c.ReloadIfChanged(p); err == nil {
		t.Fatalf("expected the same error again")
	}

	writeFile(t, p, "[job:b]\nschedule = * * * * *\ncommand = echo bye\n")
	touch(t, p, base.Add(2*time.Minute))
	changed, err = c.ReloadIfChanged(p)
	if err != nil || !changed {
		t.Fatalf("fixed reload = %v, %v; want true, nil", changed, err)
	}
	if len(c.Jobs()) != 1 || c.Jobs()[0].ID != "b" {
		t.Fatalf("jobs = %+v", c.Jobs())
	}
}

func TestCacheMtimeOnlyChangeReparses(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "c.croner")
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	writeFile(t, p, "[job:a]\nschedule = * * * * *\ncommand = echo hi\n")
	touch(t, p, base)

	c := NewCache(nil)
	if _, err := c.ReloadIfChanged(p); err != nil {
		t.Fatalf("reload: %v", err)
	}
	first := c.Jobs()

	touch(t, p, base.Add(time.Second))
	changed, err := c.ReloadIfChanged(p)
	if err != nil || !changed {
		t.Fatalf("touch reload = %v, %v; want true, nil", changed, err)
	}
	if &c.Jobs()[0] == &first[0] {
		t.Fatalf("job set was not replaced")
	}
}

func TestCacheMissingFile(t *testing.T) {
	t.Parallel()

	c := NewCache(nil)
	if _, err := c.ReloadIfChanged(filepath.Join(t.TempDir(), "gone")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	if c.Jobs() != nil {
		t.Fatalf("jobs should stay empty")
	}
}

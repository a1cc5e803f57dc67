package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"croner/internal/jobs"
)

// Fingerprint identifies a version of the job file on disk.
type Fingerprint struct {
	ModTime time.Time
	Size    int64
}

func (f Fingerprint) Equal(o Fingerprint) bool {
	return f.Size == o.Size && f.ModTime.Equal(o.ModTime)
}

// Cache holds the last successfully loaded job set and the fingerprint of
// the file it came from. A failed reload leaves both untouched.
type Cache struct {
	loader *Loader
	jobs   []*jobs.Spec
	fp     Fingerprint
	loaded bool
}

func NewCache(loader *Loader) *Cache {
	if loader == nil {
		loader = NewLoader(nil)
	}
	return &Cache{loader: loader}
}

// Jobs returns the current job set.
func (c *Cache) Jobs() []*jobs.Spec { return c.jobs }

// Fingerprint reports the fingerprint of the accepted file, if any.
func (c *Cache) Fingerprint() (Fingerprint, bool) { return c.fp, c.loaded }

// ReloadIfChanged re-reads path when its (mtime, size) differs from the last
// accepted version. It reports whether the job set was replaced.
func (c *Cache) ReloadIfChanged(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("failed to read config: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return false, fmt.Errorf("failed to stat config: %w", err)
	}
	fp := Fingerprint{ModTime: st.ModTime(), Size: st.Size()}
	if c.loaded && fp.Equal(c.fp) {
		return false, nil
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return false, fmt.Errorf("failed to read config: %w", err)
	}
	specs, err := c.loader.Parse(data)
	if err != nil {
		return false, err
	}

	c.jobs = specs
	c.fp = fp
	c.loaded = true
	return true, nil
}

package tempdir

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesDirectory(t *testing.T) {
	root := t.TempDir()
	want := filepath.Join(root, "nested", "uploads")

	d, err := Open(want)
	require.NoError(t, err)
	require.Equal(t, want, d.Path())

	fi, err := os.Stat(want)
	require.NoError(t, err)
	require.True(t, fi.IsDir(), "should create a directory")

	if runtime.GOOS != "windows" {
		require.Equal(t, os.FileMode(0o700), fi.Mode().Perm()&0o700)
	}
}

func TestOpen_Idempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")

	first, err := Open(dir)
	require.NoError(t, err)
	second, err := Open(dir)
	require.NoError(t, err)

	require.Equal(t, first.Path(), second.Path())
}

func TestOpen_FailsIfFileWithSameNameExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uploads")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	_, err := Open(path)
	require.Error(t, err)
}

func TestNewPath(t *testing.T) {
	d, err := Open(t.TempDir())
	require.NoError(t, err)

	p := d.NewPath("resized", "jpg")
	assert.Equal(t, d.Path(), filepath.Dir(p))
	assert.True(t, strings.HasPrefix(filepath.Base(p), "resized-"))
	assert.Equal(t, ".jpg", filepath.Ext(p))

	_, err = os.Stat(p)
	assert.True(t, os.IsNotExist(err), "NewPath must not create the file")

	assert.Equal(t, ".png", filepath.Ext(d.NewPath("resized", ".png")))
}

func TestNewPath_ConcurrentCallsNeverCollide(t *testing.T) {
	d, err := Open(t.TempDir())
	require.NoError(t, err)

	const workers, perWorker = 50, 20
	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, workers*perWorker)
		wg   sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				p := d.NewPath("resized", ".jpg")
				mu.Lock()
				seen[p] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
}

func TestSave_WritesContent(t *testing.T) {
	d, err := Open(t.TempDir())
	require.NoError(t, err)

	path, n, err := d.Save(strings.NewReader("pixels"), "../../etc/cat photo.JPG")
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)
	assert.Equal(t, d.Path(), filepath.Dir(path))
	assert.True(t, strings.HasSuffix(path, "-cat_photo.JPG"), path)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "pixels", string(got))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestSave_RemovesPartialFileOnError(t *testing.T) {
	d, err := Open(t.TempDir())
	require.NoError(t, err)

	_, _, err = d.Save(failingReader{}, "a.png")
	require.ErrorContains(t, err, "connection reset")

	entries, err := d.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(a, nil, 0o600))
	require.NoError(t, os.WriteFile(b, nil, 0o600))

	require.NoError(t, Remove(a, "", filepath.Join(dir, "missing"), b))

	_, err := os.Stat(a)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(b)
	assert.True(t, os.IsNotExist(err))
}

func TestRemove_CombinesFailures(t *testing.T) {
	dir := t.TempDir()
	var blocked []string
	for _, name := range []string{"x", "y"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Join(p, "child"), 0o750))
		blocked = append(blocked, p)
	}
	plain := filepath.Join(dir, "plain")
	require.NoError(t, os.WriteFile(plain, nil, 0o600))

	err := Remove(blocked[0], plain, blocked[1])
	require.Error(t, err)
	assert.Contains(t, err.Error(), blocked[0])
	assert.Contains(t, err.Error(), blocked[1])

	_, statErr := os.Stat(plain)
	assert.True(t, os.IsNotExist(statErr), "later paths are still removed after a failure")
}

func TestSanitizeName(t *testing.T) {
	tests := map[string]string{
		"photo.jpg":            "photo.jpg",
		"my photo (1).png":     "my_photo__1_.png",
		"../../secret.gif":     "secret.gif",
		`C:\Users\me\pic.jpeg`: "pic.jpeg",
		"":                     "upload",
		".hidden":              "hidden",
		"..":                   "upload",
		"фото.webp":            "____.webp",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeName(in), "input %q", in)
	}

	long := strings.Repeat("a", 300) + ".jpg"
	assert.Equal(t, strings.Repeat("a", 124)+".jpg", SanitizeName(long))
}

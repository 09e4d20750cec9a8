package embeddings

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlatformFor(t *testing.T) {
	tests := []struct {
		goos, goarch     string
		archive, library string
	}{
		{"linux", "amd64", "linux-x64", "libonnxruntime.so"},
		{"linux", "arm64", "linux-aarch64", "libonnxruntime.so"},
		{"darwin", "amd64", "osx-x86_64", "libonnxruntime.dylib"},
		{"darwin", "arm64", "osx-arm64", "libonnxruntime.dylib"},
	}

	for _, tt := range tests {
		t.Run(tt.goos+"/"+tt.goarch, func(t *testing.T) {
			got, err := platformFor(tt.goos, tt.goarch)
			require.NoError(t, err)
			assert.Equal(t, tt.archive, got.archive)
			assert.Equal(t, tt.library, got.library)
			assert.Equal(t, tt.library, libraryFile(tt.goos))
		})
	}

	_, err := platformFor("windows", "amd64")
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)
	assert.Equal(t, "libonnxruntime.so", libraryFile("plan9"))
}

func TestGetONNXLibraryPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("ONNX_PATH", "")

	assert.Empty(t, GetONNXLibraryPath())
	assert.False(t, ONNXRuntimeExists())

	dir := filepath.Join(home, ".local", "share", "memvec", "lib")
	require.NoError(t, os.MkdirAll(dir, 0700))
	lib := filepath.Join(dir, libraryFile(runtime.GOOS))
	require.NoError(t, os.WriteFile(lib, []byte("so"), 0644))
	assert.Equal(t, lib, GetONNXLibraryPath())

	t.Setenv("ONNX_PATH", "/opt/onnx/libonnxruntime.so")
	assert.Equal(t, "/opt/onnx/libonnxruntime.so", GetONNXLibraryPath())
}

type tarFile struct {
	name     string
	body     string
	linkname string
}

func buildTarGz(t *testing.T, files []tarFile) []byte {
	t.Helper()
	var buf bytes.Buffer
	gzw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gzw)
	for _, f := range files {
		hdr := &tar.Header{Name: f.name, Mode: 0644, Size: int64(len(f.body)), Typeflag: tar.TypeReg}
		if f.linkname != "" {
			hdr = &tar.Header{Name: f.name, Linkname: f.linkname, Typeflag: tar.TypeSymlink}
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if f.linkname == "" {
			_, err := tw.Write([]byte(f.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gzw.Close())
	return buf.Bytes()
}

func TestUnpackLibraries(t *testing.T) {
	archive := buildTarGz(t, []tarFile{
		{name: "onnxruntime-linux-x64-1.23.0/README.md", body: "skip"},
		{name: "./onnxruntime-linux-x64-1.23.0/lib/libonnxruntime.so.1.23.0", body: "lib"},
		{name: "onnxruntime-linux-x64-1.23.0/lib/libonnxruntime.so", linkname: "libonnxruntime.so.1.23.0"},
	})
	dest := t.TempDir()

	err := unpackLibraries(bytes.NewReader(archive), dest, "onnxruntime-linux-x64-1.23.0/lib/", "libonnxruntime.so")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dest, "libonnxruntime.so"))
	require.NoError(t, err)
	assert.Equal(t, "lib", string(data))
	assert.NoFileExists(t, filepath.Join(dest, "README.md"))
}

func TestUnpackLibraries_MissingLibrary(t *testing.T) {
	archive := buildTarGz(t, []tarFile{
		{name: "onnxruntime-linux-x64-1.23.0/lib/other.so", body: "x"},
	})

	err := unpackLibraries(bytes.NewReader(archive), t.TempDir(), "onnxruntime-linux-x64-1.23.0/lib/", "libonnxruntime.so")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found in archive")
}

func TestUnpackLibraries_NotGzip(t *testing.T) {
	err := unpackLibraries(bytes.NewReader([]byte("plain")), t.TempDir(), "lib/", "libonnxruntime.so")
	assert.Error(t, err)
}

func TestInstallRuntime(t *testing.T) {
	platform, err := platformFor(runtime.GOOS, runtime.GOARCH)
	if err != nil {
		t.Skipf("platform not supported: %v", err)
	}
	lib := platform.library
	archive := buildTarGz(t, []tarFile{
		{name: "onnxruntime-" + platform.archive + "-9.9.9/lib/" + lib, body: "runtime"},
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ok" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(archive)
	}))
	defer srv.Close()

	orig := releaseURL
	t.Cleanup(func() { releaseURL = orig })

	releaseURL = func(string, string) string { return srv.URL + "/ok" }
	dest := t.TempDir()
	require.NoError(t, installRuntime(context.Background(), "9.9.9", dest))
	assert.FileExists(t, filepath.Join(dest, lib))

	releaseURL = func(string, string) string { return srv.URL + "/missing" }
	err = installRuntime(context.Background(), "9.9.9", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestEnsureONNXRuntime_AlreadyInstalled(t *testing.T) {
	t.Setenv("ONNX_PATH", "/opt/onnx/libonnxruntime.so")

	path, err := EnsureONNXRuntime(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "/opt/onnx/libonnxruntime.so", path)
}

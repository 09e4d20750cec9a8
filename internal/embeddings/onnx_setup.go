package embeddings

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"go.uber.org/zap"
)

// DefaultONNXRuntimeVersion matches the onnxruntime_go binding used by
// fastembed-go.
const DefaultONNXRuntimeVersion = "1.23.0"

var ErrUnsupportedPlatform = errors.New("unsupported platform")

// onnxPlatform names the release archive and shared library for one
// GOOS/GOARCH pair.
type onnxPlatform struct {
	archive string
	library string
}

var onnxPlatforms = map[string]onnxPlatform{
	"linux/amd64":  {archive: "linux-x64", library: "libonnxruntime.so"},
	"linux/arm64":  {archive: "linux-aarch64", library: "libonnxruntime.so"},
	"darwin/amd64": {archive: "osx-x86_64", library: "libonnxruntime.dylib"},
	"darwin/arm64": {archive: "osx-arm64", library: "libonnxruntime.dylib"},
}

func platformFor(goos, goarch string) (onnxPlatform, error) {
	p, ok := onnxPlatforms[goos+"/"+goarch]
	if !ok {
		return onnxPlatform{}, fmt.Errorf("%w: %s/%s", ErrUnsupportedPlatform, goos, goarch)
	}
	return p, nil
}

// libraryFile is the runtime's file name on goos; unknown systems get the
// ELF name.
func libraryFile(goos string) string {
	if goos == "darwin" {
		return "libonnxruntime.dylib"
	}
	return "libonnxruntime.so"
}

func managedLibDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".local", "share", "memvec", "lib")
}

// GetONNXLibraryPath resolves the runtime library: ONNX_PATH first, then the
// copy installed by memvec init. It returns "" when neither exists.
func GetONNXLibraryPath() string {
	if p := os.Getenv("ONNX_PATH"); p != "" {
		return p
	}
	managed := filepath.Join(managedLibDir(), libraryFile(runtime.GOOS))
	if _, err := os.Stat(managed); err != nil {
		return ""
	}
	return managed
}

func ONNXRuntimeExists() bool {
	return GetONNXLibraryPath() != ""
}

// releaseURL locates a runtime release archive. Tests point it at a local
// server.
var releaseURL = func(version, archive string) string {
	return fmt.Sprintf("https://github.com/microsoft/onnxruntime/releases/download/v%[1]s/onnxruntime-%[2]s-%[1]s.tgz", version, archive)
}

// DownloadONNXRuntime installs a runtime release for this machine under
// ~/.local/share/memvec/lib. Empty version selects DefaultONNXRuntimeVersion.
func DownloadONNXRuntime(ctx context.Context, version string) error {
	if version == "" {
		version = DefaultONNXRuntimeVersion
	}
	return installRuntime(ctx, version, managedLibDir())
}

func installRuntime(ctx context.Context, version, dir string) error {
	platform, err := platformFor(runtime.GOOS, runtime.GOARCH)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, releaseURL(version, platform.archive), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("downloading ONNX runtime: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downloading ONNX runtime: status %d", resp.StatusCode)
	}

	libDir := fmt.Sprintf("onnxruntime-%s-%s/lib/", platform.archive, version)
	if err := unpackLibraries(resp.Body, dir, libDir, platform.library); err != nil {
		return fmt.Errorf("unpacking ONNX runtime: %w", err)
	}
	return nil
}

// unpackLibraries copies the files and symlinks found under libDir in the
// .tgz stream r flat into dir. The archive must contain library or a
// versioned library.N file.
func unpackLibraries(r io.Reader, dir, libDir, library string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("opening gzip stream: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	var sawLibrary bool
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("reading tar: %w", err)
		}

		rel, ok := strings.CutPrefix(strings.TrimPrefix(hdr.Name, "./"), libDir)
		if !ok || rel == "" {
			continue
		}
		base := filepath.Base(rel)
		target := filepath.Join(dir, base)

		switch hdr.Typeflag {
		case tar.TypeReg:
			if err := writeExecutable(target, tr); err != nil {
				return fmt.Errorf("writing %s: %w", base, err)
			}
		case tar.TypeSymlink:
			_ = os.Remove(target)
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				continue
			}
		default:
			continue
		}

		if base == library || strings.HasPrefix(base, library+".") {
			sawLibrary = true
		}
	}

	if !sawLibrary {
		return fmt.Errorf("%s not found in archive", library)
	}
	return nil
}

func writeExecutable(path string, r io.Reader) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	if err != nil {
		return err
	}
	_, err = io.Copy(f, r)
	return errors.Join(err, f.Close())
}

// setONNXPathEnv is how fastembed-go learns where the runtime lives.
var setONNXPathEnv = func(path string) error {
	return os.Setenv("ONNX_PATH", path)
}

// EnsureONNXRuntime returns the runtime library path, installing
// DefaultONNXRuntimeVersion first if nothing is found.
func EnsureONNXRuntime(ctx context.Context, logger *zap.Logger) (string, error) {
	if path := GetONNXLibraryPath(); path != "" {
		return path, nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	logger.Info("installing ONNX runtime",
		zap.String("version", DefaultONNXRuntimeVersion),
		zap.String("platform", runtime.GOOS+"/"+runtime.GOARCH),
		zap.String("dir", managedLibDir()),
	)
	if err := DownloadONNXRuntime(ctx, ""); err != nil {
		return "", fmt.Errorf("%w (set ONNX_PATH to use an existing runtime)", err)
	}

	path := GetONNXLibraryPath()
	if path == "" {
		return "", errors.New("ONNX runtime installed but library not found")
	}
	logger.Info("ONNX runtime installed", zap.String("path", path))
	return path, nil
}

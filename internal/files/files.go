// Package files keeps media payloads on disk under a session's files/
// directory, one subdirectory per category.
package files

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // decoders accepted by SaveImage
	"image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Managed directories, relative to the store root.
const (
	ImagesDir          = "images"
	VideosDir          = "videos"
	AudioDir           = "audio"
	DocumentsDir       = "documents"
	ThumbnailsDir      = "thumbnails"
	ProfilePicturesDir = "profile_pictures"
)

var managedDirs = []string{ImagesDir, VideosDir, AudioDir, DocumentsDir, ThumbnailsDir, ProfilePicturesDir}

const (
	imageQuality     = 85
	profileQuality   = 90
	defaultMimeType  = "application/octet-stream"
	thumbnailAtMilli = 1000
)

// ErrOutsideRoot is returned when a path does not belong to the store.
var ErrOutsideRoot = errors.New("path outside file store")

// Saved describes a file written by the store.
type Saved struct {
	Path          string
	ThumbnailPath string
	Size          int64
	Width         int
	Height        int
}

// Store saves payloads under root. It is safe for concurrent use.
type Store struct {
	root   string
	probe  Prober
	logger *zap.Logger
	now    func() time.Time
}

// New creates a file store rooted at root. probe may be nil, in which case
// thumbnails and durations are never available.
func New(root string, probe Prober, logger *zap.Logger) *Store {
	if probe == nil {
		probe = noProbe{}
	}
	return &Store{root: root, probe: probe, logger: logger, now: time.Now}
}

// Root returns the directory the store writes into.
func (s *Store) Root() string { return s.root }

func (s *Store) dir(name string) (string, error) {
	d := filepath.Join(s.root, name)
	if err := os.MkdirAll(d, 0700); err != nil {
		return "", fmt.Errorf("create %s dir: %w", name, err)
	}
	return d, nil
}

// safeName reduces a user id to a single path element.
func safeName(userID string) string {
	name := filepath.Base(filepath.Clean("/" + userID))
	if name == "/" || name == "." || name == ".." {
		return "user"
	}
	return name
}

// uniqueName builds <user>_<ms>_<rand><suffix>. The random part keeps two
// saves in the same millisecond apart.
func (s *Store) uniqueName(userID, suffix string) string {
	return fmt.Sprintf("%s_%d_%s%s", safeName(userID), s.now().UnixMilli(), uuid.NewString()[:8], suffix)
}

// SaveImage decodes r and stores it as a JPEG under images/.
func (s *Store) SaveImage(ctx context.Context, r io.Reader, userID string) (*Saved, error) {
	img, _, err := image.Decode(ctxReader{ctx: ctx, r: r})
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	dir, err := s.dir(ImagesDir)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, s.uniqueName(userID, ".jpg"))
	return s.writeJPEG(path, img, imageQuality)
}

// SaveVideo copies r under videos/ and extracts a thumbnail. A thumbnail
// failure is logged and leaves ThumbnailPath empty.
func (s *Store) SaveVideo(ctx context.Context, r io.Reader, userID string) (*Saved, error) {
	dir, err := s.dir(VideosDir)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, s.uniqueName(userID, ".mp4"))
	size, err := s.copyTo(ctx, path, r)
	if err != nil {
		return nil, err
	}
	saved := &Saved{Path: path, Size: size}
	saved.ThumbnailPath = s.thumbnail(ctx, path)
	return saved, nil
}

func (s *Store) thumbnail(ctx context.Context, videoPath string) string {
	dir, err := s.dir(ThumbnailsDir)
	if err != nil {
		s.logger.Warn("thumbnail dir", zap.Error(err))
		return ""
	}
	out := filepath.Join(dir, fmt.Sprintf("thumb_%d_%s.jpg", s.now().UnixMilli(), uuid.NewString()[:8]))
	if err := s.probe.Thumbnail(ctx, videoPath, out, thumbnailAtMilli*time.Millisecond); err != nil {
		s.logger.Warn("video thumbnail failed", zap.String("video", videoPath), zap.Error(err))
		_ = os.Remove(out)
		return ""
	}
	return out
}

// SaveDocument copies r under documents/ keeping name as the suffix.
func (s *Store) SaveDocument(ctx context.Context, r io.Reader, userID, name string) (*Saved, error) {
	dir, err := s.dir(DocumentsDir)
	if err != nil {
		return nil, err
	}
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) {
		base = "document"
	}
	path := filepath.Join(dir, s.uniqueName(userID, "_"+base))
	size, err := s.copyTo(ctx, path, r)
	if err != nil {
		return nil, err
	}
	return &Saved{Path: path, Size: size}, nil
}

// SaveAudio moves a temporary recording into audio/. The temporary file is
// removed once the copy succeeds.
func (s *Store) SaveAudio(ctx context.Context, tempPath, userID string) (*Saved, error) {
	src, err := os.Open(tempPath)
	if err != nil {
		return nil, fmt.Errorf("open recording: %w", err)
	}
	dir, err := s.dir(AudioDir)
	if err != nil {
		_ = src.Close()
		return nil, err
	}
	path := filepath.Join(dir, s.uniqueName(userID, ".m4a"))
	size, err := s.copyTo(ctx, path, src)
	_ = src.Close()
	if err != nil {
		return nil, err
	}
	if err := os.Remove(tempPath); err != nil {
		s.logger.Warn("remove recording", zap.String("path", tempPath), zap.Error(err))
	}
	return &Saved{Path: path, Size: size}, nil
}

// SaveProfilePicture stores r as <user>_profile.jpg, replacing any previous picture.
func (s *Store) SaveProfilePicture(ctx context.Context, r io.Reader, userID string) (*Saved, error) {
	img, _, err := image.Decode(ctxReader{ctx: ctx, r: r})
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	dir, err := s.dir(ProfilePicturesDir)
	if err != nil {
		return nil, err
	}
	final := filepath.Join(dir, safeName(userID)+"_profile.jpg")
	tmp := final + ".tmp"
	saved, err := s.writeJPEG(tmp, img, profileQuality)
	if err != nil {
		return nil, err
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return nil, fmt.Errorf("replace profile picture: %w", err)
	}
	saved.Path = final
	return saved, nil
}

func (s *Store) writeJPEG(path string, img image.Image, quality int) (*Saved, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: quality}); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	b := img.Bounds()
	return &Saved{Path: path, Size: FileSize(path), Width: b.Dx(), Height: b.Dy()}, nil
}

// copyTo writes r to path. A partial file is removed on failure.
func (s *Store) copyTo(ctx context.Context, path string, r io.Reader) (int64, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	n, err := io.Copy(f, ctxReader{ctx: ctx, r: r})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return 0, fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return n, nil
}

// Duration returns the media duration of path in whole seconds, or 0 when
// it cannot be probed.
func (s *Store) Duration(ctx context.Context, path string) int64 {
	d, err := s.probe.Duration(ctx, path)
	if err != nil {
		s.logger.Debug("probe duration", zap.String("path", path), zap.Error(err))
		return 0
	}
	return int64(d / time.Second)
}

// DeleteFile removes a file owned by the store. Missing files are not an error.
func (s *Store) DeleteFile(path string) error {
	if path == "" {
		return nil
	}
	if !s.owns(path) {
		return fmt.Errorf("delete %s: %w", path, ErrOutsideRoot)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

func (s *Store) owns(path string) bool {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return false
	}
	return rel != "." && !strings.HasPrefix(rel, "..")
}

// File returns the info of path when it exists.
func (s *Store) File(path string) (fs.FileInfo, bool) {
	fi, err := os.Stat(path)
	if err != nil || fi.IsDir() {
		return nil, false
	}
	return fi, true
}

// StorageUsage sums the size of every file in the managed directories.
func (s *Store) StorageUsage(ctx context.Context) (int64, error) {
	var total int64
	for _, name := range managedDirs {
		err := filepath.WalkDir(filepath.Join(s.root, name), func(_ string, d fs.DirEntry, err error) error {
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return nil
				}
				return err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if d.Type().IsRegular() {
				fi, err := d.Info()
				if err != nil {
					return err
				}
				total += fi.Size()
			}
			return nil
		})
		if err != nil {
			return 0, fmt.Errorf("storage usage %s: %w", name, err)
		}
	}
	return total, nil
}

// ClearAll removes every managed directory and its contents.
func (s *Store) ClearAll(ctx context.Context) error {
	for _, name := range managedDirs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := os.RemoveAll(filepath.Join(s.root, name)); err != nil {
			return fmt.Errorf("clear %s: %w", name, err)
		}
	}
	return nil
}

// FileSize returns the size of path, or 0 on any error.
func FileSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.Size()
}

var mimeTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"mp4":  "video/mp4",
	"mov":  "video/mp4",
	"m4a":  "audio/mp4",
	"mp3":  "audio/mp4",
	"pdf":  "application/pdf",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// MimeType maps the extension of path to a mime type.
func MimeType(path string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if m, ok := mimeTypes[ext]; ok {
		return m
	}
	return defaultMimeType
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

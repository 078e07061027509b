package service

import (
	"bytes"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"luch-agregator/logger"
)

// ErrImageNotFound is returned when a model image reference has no file on disk
var ErrImageNotFound = errors.New("image file not found")

const (
	// Quality settings
	qualityDocument = 80
	// Size settings (max dimension)
	maxSizeDocument = 800
)

// DocumentImage is a model image re-encoded for embedding into an offer
type DocumentImage struct {
	Data   []byte // JPEG
	Width  int
	Height int
}

// DataURI returns the image as a data: URI for inline HTML
func (i *DocumentImage) DataURI() string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// ImageOptimizer loads model images from the media root, downsizes them and keeps a
// disk cache of the optimized variants
type ImageOptimizer struct {
	mediaRoot string
	cacheDir  string
	log       *logger.Logger
}

// NewImageOptimizer creates an ImageOptimizer. An empty cacheDir disables caching.
func NewImageOptimizer(mediaRoot, cacheDir string, log *logger.Logger) *ImageOptimizer {
	return &ImageOptimizer{mediaRoot: mediaRoot, cacheDir: cacheDir, log: log.With("component", "ImageOptimizer")}
}

// ResolvePath maps an image reference to a file under the media root.
// References escaping the media root are rejected.
func (o *ImageOptimizer) ResolvePath(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", ErrImageNotFound
	}
	root, err := filepath.Abs(o.mediaRoot)
	if err != nil {
		return "", fmt.Errorf("failed to resolve media root: %w", err)
	}
	full := filepath.Join(root, filepath.FromSlash(ref))
	if full != root && !strings.HasPrefix(full, root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s is outside the media root", ErrImageNotFound, ref)
	}
	return full, nil
}

// Load returns the optimized JPEG of the image referenced by ref.
// ErrImageNotFound means the file does not exist; other errors mean it could not be decoded.
func (o *ImageOptimizer) Load(ref string) (*DocumentImage, error) {
	path, err := o.ResolvePath(ref)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		o.log.Warn("⚠️  Image file not found on disk", "image", ref, "path", path)
		return nil, fmt.Errorf("%w: %s", ErrImageNotFound, ref)
	}

	cachePath := o.cachePath(path, info.ModTime().UnixNano(), info.Size())
	if cachePath != "" {
		if data, err := os.ReadFile(cachePath); err == nil {
			if img, err := describeJPEG(data); err == nil {
				return img, nil
			}
		}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", ref, err)
	}
	img, err := OptimizeImage(raw, maxSizeDocument, qualityDocument)
	if err != nil {
		o.log.Warn("⚠️  Image could not be optimized", "image", ref, "error", err)
		return nil, err
	}

	if cachePath != "" {
		if err := saveToCache(cachePath, img.Data); err != nil {
			o.log.Warn("⚠️  Failed to cache optimized image", "path", cachePath, "error", err)
		} else {
			o.log.Debug("✓ Image cached", "path", cachePath)
		}
	}
	return img, nil
}

func (o *ImageOptimizer) cachePath(path string, modTime, size int64) string {
	if o.cacheDir == "" {
		return ""
	}
	sum := sha1.Sum([]byte(fmt.Sprintf("%s|%d|%d|%d", path, modTime, size, maxSizeDocument)))
	return filepath.Join(o.cacheDir, hex.EncodeToString(sum[:])+".jpg")
}

// saveToCache saves an image to the cache
func saveToCache(cachePath string, imageData []byte) error {
	if err := os.MkdirAll(filepath.Dir(cachePath), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := os.WriteFile(cachePath, imageData, 0644); err != nil {
		return fmt.Errorf("failed to write to cache: %w", err)
	}
	return nil
}

// OptimizeImage converts an image to JPEG, flattening transparency onto white and
// resizing so that neither side exceeds maxDim
func OptimizeImage(imageData []byte, maxDim, quality int) (*DocumentImage, error) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("failed to decode image: empty bounds")
	}

	if width > maxDim || height > maxDim {
		if width > height {
			img = imaging.Resize(img, maxDim, 0, imaging.Lanczos)
		} else {
			img = imaging.Resize(img, 0, maxDim, imaging.Lanczos)
		}
	}

	b := img.Bounds()
	flat := imaging.New(b.Dx(), b.Dy(), color.White)
	flat = imaging.Overlay(flat, img, image.Pt(0, 0), 1.0)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flat, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode to JPEG: %w", err)
	}
	return &DocumentImage{Data: buf.Bytes(), Width: b.Dx(), Height: b.Dy()}, nil
}

func describeJPEG(data []byte) (*DocumentImage, error) {
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return &DocumentImage{Data: data, Width: cfg.Width, Height: cfg.Height}, nil
}

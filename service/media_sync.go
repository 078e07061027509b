package service

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"luch-agregator/logger"
)

// MediaSource lists and fetches model images kept outside the media root
type MediaSource interface {
	ListImages(ctx context.Context, folderID string) ([]DriveImage, error)
	Download(ctx context.Context, fileID string) ([]byte, error)
}

// MediaSyncResult summarizes one sync run
type MediaSyncResult struct {
	Total      int
	Downloaded int
	Skipped    int
	Errors     []string
}

// MediaSyncService copies model images from a Drive folder into the media root,
// so that catalog image references resolve when offers are rendered
type MediaSyncService struct {
	source    MediaSource
	mediaRoot string
	log       *logger.Logger
}

// NewMediaSyncService creates a new MediaSyncService
func NewMediaSyncService(source MediaSource, mediaRoot string, log *logger.Logger) *MediaSyncService {
	return &MediaSyncService{source: source, mediaRoot: mediaRoot, log: log.With("component", "MediaSyncService")}
}

// SyncFolder downloads every image of folderID into mediaRoot/subdir under its Drive name.
// Files already on disk are skipped unless overwrite is set. Per-file failures are collected
// in the result; only listing and directory errors abort the run.
func (s *MediaSyncService) SyncFolder(ctx context.Context, folderID, subdir string, overwrite bool) (*MediaSyncResult, error) {
	targetDir := filepath.Join(s.mediaRoot, filepath.Clean("/"+subdir))
	s.log.Info("📥 Starting media sync", "folder_id", folderID, "target", targetDir)

	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}

	images, err := s.source.ListImages(ctx, folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	result := &MediaSyncResult{Total: len(images)}
	seen := make(map[string]bool, len(images))

	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		name := filepath.Base(strings.ReplaceAll(img.Name, "\\", "/"))
		if name == "." || name == "/" || name == ".." || name == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("File %s has an unusable name %q", img.ID, img.Name))
			continue
		}

		// Drive allows duplicate names in one folder; the first one wins
		if seen[name] {
			s.log.Warn("⚠️  Duplicate file name in folder, skipping", "name", name, "file_id", img.ID)
			result.Skipped++
			continue
		}
		seen[name] = true

		path := filepath.Join(targetDir, name)
		if !overwrite {
			if _, err := os.Stat(path); err == nil {
				result.Skipped++
				continue
			}
		}

		if err := s.fetch(ctx, img, path); err != nil {
			s.log.Error("❌ Failed to sync image", "name", name, "file_id", img.ID, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		result.Downloaded++
	}

	s.log.Info("✓ Media sync completed",
		"downloaded", result.Downloaded, "skipped", result.Skipped, "failed", len(result.Errors), "total", result.Total)
	return result, nil
}

func (s *MediaSyncService) fetch(ctx context.Context, img DriveImage, path string) error {
	data, err := s.source.Download(ctx, img.ID)
	if err != nil {
		return err
	}
	if _, err := imaging.Decode(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("not a decodable image: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".sync-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"luch-agregator/logger"
)

// DriveService archives generated documents into a Google Drive folder
type DriveService struct {
	client   *drive.Service
	folderID string
	log      *logger.Logger
}

// Ensure DriveService implements DocumentArchiveInterface
var _ DocumentArchiveInterface = (*DriveService)(nil)

// DriveImage is an image file found in a Drive folder
type DriveImage struct {
	ID       string
	Name     string
	MimeType string
	Size     int64
}

var driveImageMimeTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/jpg":  true,
}

// NewDriveService creates a new DriveService instance
// credentialsPath should be the path to the Service Account JSON file.
// Without explicit scopes the client may only touch files it created.
func NewDriveService(ctx context.Context, credentialsPath, folderID string, log *logger.Logger, scopes ...string) (*DriveService, error) {
	if len(scopes) == 0 {
		scopes = []string{drive.DriveFileScope}
	}
	// option.WithCredentialsFile automatically handles Service Account authentication
	client, err := drive.NewService(ctx, option.WithCredentialsFile(credentialsPath), option.WithScopes(scopes...))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}
	return NewDriveServiceWithClient(client, folderID, log), nil
}

// NewDriveServiceWithClient wraps an existing Drive client
func NewDriveServiceWithClient(client *drive.Service, folderID string, log *logger.Logger) *DriveService {
	return &DriveService{client: client, folderID: folderID, log: log.With("component", "DriveService")}
}

// Upload stores data as a new file in the archive folder and returns its file id
func (ds *DriveService) Upload(ctx context.Context, name, mimeType string, data []byte) (string, error) {
	file := &drive.File{
		Name:     name,
		MimeType: mimeType,
		Parents:  []string{ds.folderID},
	}

	created, err := ds.client.Files.Create(file).
		Media(bytes.NewReader(data)).
		Fields("id").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		ds.log.Error("❌ Error uploading document to Drive", "name", name, "error", err)
		return "", fmt.Errorf("failed to upload %s: %w", name, err)
	}

	ds.log.Info("✓ Document archived to Drive", "name", name, "file_id", created.Id, "bytes", len(data))
	return created.Id, nil
}

// ListImages returns every non-trashed PNG or JPEG file directly inside folderID
func (ds *DriveService) ListImages(ctx context.Context, folderID string) ([]DriveImage, error) {
	query := fmt.Sprintf("'%s' in parents and trashed=false", strings.ReplaceAll(folderID, "'", "\\'"))

	var images []DriveImage
	pageToken := ""
	for {
		call := ds.client.Files.List().
			Q(query).
			Fields("nextPageToken, files(id, name, mimeType, size)").
			SupportsAllDrives(true).
			IncludeItemsFromAllDrives(true).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		r, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list files: %w", err)
		}

		for _, file := range r.Files {
			if !driveImageMimeTypes[strings.ToLower(file.MimeType)] {
				continue
			}
			images = append(images, DriveImage{ID: file.Id, Name: file.Name, MimeType: file.MimeType, Size: file.Size})
		}

		pageToken = r.NextPageToken
		if pageToken == "" {
			break
		}
	}

	ds.log.Debug("Listed Drive images", "folder_id", folderID, "count", len(images))
	return images, nil
}

// Download returns the content of a Drive file
func (ds *DriveService) Download(ctx context.Context, fileID string) ([]byte, error) {
	resp, err := ds.client.Files.Get(fileID).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", fileID, err)
	}
	return data, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/cutroom/api/internal/client"
	"github.com/cutroom/api/internal/model"
	"github.com/cutroom/api/internal/store"
)

// Sentinel errors shared by the services; handlers map them to HTTP codes.
var (
	ErrVideoNotFound = errors.New("video not found")
	ErrJobNotFound   = errors.New("job not found")
)

const (
	videoDir  = "videos"
	outputDir = "processed"
)

// MediaService owns uploaded video records and their backing files.
type MediaService struct {
	videos      store.VideoStore
	transcoder  client.Transcoder
	storageRoot string
}

func NewMediaService(videos store.VideoStore, transcoder client.Transcoder, storageRoot string) *MediaService {
	return &MediaService{
		videos:      videos,
		transcoder:  transcoder,
		storageRoot: storageRoot,
	}
}

// EnsureDirectories creates the storage layout under the root.
func (s *MediaService) EnsureDirectories() error {
	for _, dir := range []string{videoDir, outputDir} {
		if err := os.MkdirAll(filepath.Join(s.storageRoot, dir), 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// SaveVideo moves an uploaded temp file into permanent storage and probes
// its technical metadata. Probing is best-effort: failures are logged and
// the duration/dimension fields stay unset.
func (s *MediaService) SaveVideo(ctx context.Context, tempPath, originalName, mimeType string, fileSize int64) (*model.UploadedVideo, error) {
	if err := s.EnsureDirectories(); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	fileName := id + filepath.Ext(originalName)
	destPath := filepath.Join(s.storageRoot, videoDir, fileName)

	if err := moveFile(tempPath, destPath); err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	video := &model.UploadedVideo{
		ID:           id,
		OriginalName: originalName,
		FilePath:     videoDir + "/" + fileName,
		FileSize:     fileSize,
		MimeType:     mimeType,
		CreatedAt:    timeNow(),
	}

	if info, err := s.transcoder.Probe(ctx, destPath); err != nil {
		log.Printf("Failed to probe video %s: %v", id, err)
	} else {
		video.Duration = info.Duration
		video.Width = info.Width
		video.Height = info.Height
	}

	s.videos.Create(video)
	return video, nil
}

// GetVideo fetches one video record.
func (s *MediaService) GetVideo(id string) (*model.UploadedVideo, error) {
	video, ok := s.videos.Get(id)
	if !ok {
		return nil, ErrVideoNotFound
	}
	return video, nil
}

// ListVideos returns all videos, newest first.
func (s *MediaService) ListVideos() []*model.UploadedVideo {
	return s.videos.List()
}

// UpdateTranscript attaches a transcript, overwriting any prior one.
func (s *MediaService) UpdateTranscript(id string, transcript *model.Transcript) (*model.UploadedVideo, error) {
	video, ok := s.videos.UpdateTranscript(id, transcript)
	if !ok {
		return nil, ErrVideoNotFound
	}
	return video, nil
}

// DeleteVideo removes the backing file (when present) and the record.
// Returns false when the record did not exist.
func (s *MediaService) DeleteVideo(id string) bool {
	video, ok := s.videos.Get(id)
	if !ok {
		return false
	}
	removeIfExists(filepath.Join(s.storageRoot, filepath.FromSlash(video.FilePath)))
	return s.videos.Delete(id)
}

// AbsolutePath resolves a storage-relative path to a local absolute path.
func (s *MediaService) AbsolutePath(rel string) string {
	return filepath.Join(s.storageRoot, filepath.FromSlash(rel))
}

// PreviewPath resolves a raw relative path for serving, rejecting anything
// that escapes the storage root.
func (s *MediaService) PreviewPath(rel string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) || filepath.IsAbs(cleaned) {
		return "", ErrVideoNotFound
	}
	return filepath.Join(s.storageRoot, cleaned), nil
}

// moveFile renames src to dst, falling back to a copy when the rename
// crosses filesystems (temp dirs often live on another mount).
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}

func removeIfExists(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to remove %s: %v", path, err)
	}
}

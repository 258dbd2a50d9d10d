package store

import (
	"sort"
	"sync"

	"github.com/cutroom/api/internal/model"
)

// VideoStore is the metadata repository for uploaded source videos.
type VideoStore interface {
	Create(video *model.UploadedVideo)
	Get(id string) (*model.UploadedVideo, bool)
	List() []*model.UploadedVideo
	UpdateTranscript(id string, transcript *model.Transcript) (*model.UploadedVideo, bool)
	Delete(id string) bool
}

// MemoryVideoStore keeps video records in process memory.
type MemoryVideoStore struct {
	mu     sync.RWMutex
	videos map[string]*model.UploadedVideo
}

func NewMemoryVideoStore() *MemoryVideoStore {
	return &MemoryVideoStore{videos: make(map[string]*model.UploadedVideo)}
}

func (s *MemoryVideoStore) Create(video *model.UploadedVideo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videos[video.ID] = video.Clone()
}

func (s *MemoryVideoStore) Get(id string) (*model.UploadedVideo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	video, ok := s.videos[id]
	if !ok {
		return nil, false
	}
	return video.Clone(), true
}

// List returns all videos, newest first.
func (s *MemoryVideoStore) List() []*model.UploadedVideo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.UploadedVideo, 0, len(s.videos))
	for _, v := range s.videos {
		out = append(out, v.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// UpdateTranscript overwrites any previously cached transcript.
func (s *MemoryVideoStore) UpdateTranscript(id string, transcript *model.Transcript) (*model.UploadedVideo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	video, ok := s.videos[id]
	if !ok {
		return nil, false
	}
	video.Transcript = transcript.Clone()
	return video.Clone(), true
}

func (s *MemoryVideoStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.videos[id]; !ok {
		return false
	}
	delete(s.videos, id)
	return true
}

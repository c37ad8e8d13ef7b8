package findingservice

import (
	"context"
	"fmt"

	"github.com/starford/pfnbot/internal/apperr"
	"github.com/starford/pfnbot/internal/models"
	"github.com/starford/pfnbot/internal/storage"
)

// Converter turns a capture into a displayable image file.
type Converter interface {
	Convert(src string) (string, error)
}

// Service resolves refs against the cache and renders capture images.
type Service struct {
	store storage.Store
	conv  Converter
}

// NewService creates a new finding service.
func NewService(store storage.Store, conv Converter) *Service {
	return &Service{store: store, conv: conv}
}

// List returns every cached finding in insertion order, never nil.
func (s *Service) List(_ context.Context) []models.Finding {
	return nonNilSlice(s.store.All())
}

// Resolve returns the single finding with the given ref. It returns
// apperr.ErrNotFound when nothing matches and apperr.ErrAmbiguous when the
// truncated ref collides.
func (s *Service) Resolve(_ context.Context, ref string) (models.Finding, error) {
	matches := s.store.Lookup(ref)
	switch len(matches) {
	case 0:
		return models.Finding{}, fmt.Errorf("ref %q: %w", ref, apperr.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return models.Finding{}, fmt.Errorf("ref %q matches %d findings: %w", ref, len(matches), apperr.ErrAmbiguous)
	}
}

// Image resolves ref and converts its capture, returning the PNG path.
func (s *Service) Image(ctx context.Context, ref string) (string, error) {
	f, err := s.Resolve(ctx, ref)
	if err != nil {
		return "", err
	}
	return s.conv.Convert(f.Path)
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

package mapping

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/bankfeed/internal/importer"
)

var (
	ErrNotFound       = errors.New("import profile not found")
	ErrInvalidProfile = errors.New("invalid profile")
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=mapping
type Repository interface {
	CreateProfile(ctx context.Context, p *Profile) error
	GetProfile(ctx context.Context, ownerID string, id uuid.UUID) (*Profile, error)
	ListProfiles(ctx context.Context, ownerID string, fileType importer.FileType) ([]*Profile, error)
	UpdateProfile(ctx context.Context, p *Profile) error
	DeleteProfile(ctx context.Context, ownerID string, id uuid.UUID) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type ProfileParams struct {
	Name             string
	FileType         importer.FileType
	Mapping          ColumnMapping
	DateFormat       string
	DefaultAccountID *uuid.UUID
	// Headers is the file's full header row. Columns the mapping leaves out
	// are saved as skip so the profile matches that file.
	Headers          []string
}

func (p ProfileParams) validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("profile name is required")
	}

	if p.FileType == "" {
		return errors.New("profile file type is required")
	}

	if len(p.Headers) > 0 {
		known := make(map[string]bool, len(p.Headers))
		for _, h := range p.Headers {
			known[normalizeHeader(h)] = true
		}

		for h := range p.Mapping {
			if !known[normalizeHeader(h)] {
				return fmt.Errorf("mapped column %q is not one of the headers", h)
			}
		}
	}

	return p.Mapping.Validate()
}

// mapping returns the mapping to save, covering every header when the
// header row was given.
func (p ProfileParams) mapping() ColumnMapping {
	if len(p.Headers) == 0 {
		return p.Mapping
	}

	mapped := make(map[string]bool, len(p.Mapping))
	for h := range p.Mapping {
		mapped[normalizeHeader(h)] = true
	}

	out := maps.Clone(p.Mapping)
	for _, h := range p.Headers {
		if !mapped[normalizeHeader(h)] {
			out[h] = FieldSkip
		}
	}

	return out
}

func (s *Service) Create(ctx context.Context, ownerID string, params ProfileParams) (*Profile, error) {
	if err := params.validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProfile, err)
	}

	p := &Profile{
		OwnerID:          ownerID,
		Name:             strings.TrimSpace(params.Name),
		FileType:         params.FileType,
		Mapping:          params.mapping(),
		DateFormat:       params.DateFormat,
		DefaultAccountID: params.DefaultAccountID,
	}

	if err := s.repo.CreateProfile(ctx, p); err != nil {
		return nil, err
	}

	return p, nil
}

func (s *Service) Get(ctx context.Context, ownerID string, id uuid.UUID) (*Profile, error) {
	return s.repo.GetProfile(ctx, ownerID, id)
}

// List returns the owner's profiles, most recently updated first. An empty
// fileType lists all of them.
func (s *Service) List(ctx context.Context, ownerID string, fileType importer.FileType) ([]*Profile, error) {
	return s.repo.ListProfiles(ctx, ownerID, fileType)
}

func (s *Service) Update(ctx context.Context, ownerID string, id uuid.UUID, params ProfileParams) (*Profile, error) {
	if err := params.validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProfile, err)
	}

	p, err := s.repo.GetProfile(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	p.Name = strings.TrimSpace(params.Name)
	p.FileType = params.FileType
	p.Mapping = params.mapping()
	p.DateFormat = params.DateFormat
	p.DefaultAccountID = params.DefaultAccountID

	if err := s.repo.UpdateProfile(ctx, p); err != nil {
		return nil, err
	}

	return p, nil
}

func (s *Service) Delete(ctx context.Context, ownerID string, id uuid.UUID) error {
	return s.repo.DeleteProfile(ctx, ownerID, id)
}

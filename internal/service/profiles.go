package service

import (
	"context"
	"fmt"
	"strings"

	"kiln_controller/internal/models"
	"kiln_controller/internal/profile"
	"kiln_controller/internal/repository"
)

type ProfileService struct {
	repo repository.ProfileRepo
}

func NewProfileService(repo repository.ProfileRepo) *ProfileService {
	return &ProfileService{repo: repo}
}

func (s *ProfileService) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	return s.repo.List(ctx)
}

func (s *ProfileService) GetProfile(ctx context.Context, name string) (models.Profile, error) {
	return s.repo.Get(ctx, name)
}

// SaveProfile validates p and stores it with its points sorted by time.
func (s *ProfileService) SaveProfile(ctx context.Context, p models.Profile) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", profile.ErrInvalidFormat)
	}
	parsed, err := toProfile(p)
	if err != nil {
		return err
	}
	return s.repo.Save(ctx, fromProfile(parsed))
}

func (s *ProfileService) DeleteProfile(ctx context.Context, name string) error {
	return s.repo.Delete(ctx, name)
}

// Import stores already validated profiles, replacing stored ones with the
// same name, and returns how many were written.
func (s *ProfileService) Import(ctx context.Context, ps []*profile.Profile) (int, error) {
	n := 0
	for _, p := range ps {
		if err := s.repo.Save(ctx, fromProfile(p)); err != nil {
			return n, fmt.Errorf("import %q: %w", p.Name(), err)
		}
		n++
	}
	return n, nil
}

func toProfile(m models.Profile) (*profile.Profile, error) {
	pts := make([]profile.Point, 0, len(m.Data))
	for i, pair := range m.Data {
		if len(pair) != 2 {
			return nil, fmt.Errorf("%w: point %d must be a [time, temperature] pair", profile.ErrInvalidFormat, i)
		}
		pts = append(pts, profile.Point{Time: pair[0], Temperature: pair[1]})
	}
	return profile.New(m.Name, pts)
}

func fromProfile(p *profile.Profile) models.Profile {
	pts := p.Points()
	data := make([][]float64, len(pts))
	for i, pt := range pts {
		data[i] = []float64{pt.Time, pt.Temperature}
	}
	return models.Profile{Name: p.Name(), Data: data}
}

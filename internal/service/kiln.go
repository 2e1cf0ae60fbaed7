package service

import (
	"context"
	"fmt"

	"kiln_controller/internal/logger"
	"kiln_controller/internal/repository"
)

type KilnService struct {
	oven     Oven
	profiles repository.ProfileRepo
	log      *logger.Logger
}

func NewKilnService(ov Oven, profiles repository.ProfileRepo, log *logger.Logger) *KilnService {
	return &KilnService{oven: ov, profiles: profiles, log: logger.OrNop(log)}
}

// RunProfile loads the stored profile name and starts firing it. A stored
// profile that no longer validates is rejected before the oven is touched.
func (s *KilnService) RunProfile(ctx context.Context, name string, startAtMinutes float64) error {
	stored, err := s.profiles.Get(ctx, name)
	if err != nil {
		return err
	}
	p, err := toProfile(stored)
	if err != nil {
		return fmt.Errorf("profile %q: %w", name, err)
	}
	if err := s.oven.RunProfile(p, startAtMinutes); err != nil {
		return err
	}
	s.log.Infow("firing_started", "profile", name, "start_at_minutes", startAtMinutes)
	return nil
}

func (s *KilnService) Abort(_ context.Context) error {
	if !s.oven.Abort() {
		return ErrNotRunning
	}
	return nil
}

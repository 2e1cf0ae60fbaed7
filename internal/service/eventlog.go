package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"kiln_controller/internal/models"
	"kiln_controller/internal/repository"
)

var errInvalidTimeRange = errors.New("invalid time range: from must not be after to")

type EventLogService struct {
	eventRepo repository.EventRepo
}

func NewEventLogService(eventRepo repository.EventRepo) *EventLogService {
	return &EventLogService{eventRepo: eventRepo}
}

func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.OvenEvent, error) {
	from, to, typ, err := normalizeFilter(f)
	if err != nil {
		return nil, err
	}
	return s.eventRepo.List(ctx, from, to, typ)
}

// normalizeFilter converts the bounds to UTC, upper-cases the type and
// rejects an inverted range.
func normalizeFilter(f LogFilter) (time.Time, time.Time, string, error) {
	from, to := toUTC(f.From), toUTC(f.To)
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return time.Time{}, time.Time{}, "", errInvalidTimeRange
	}
	return from, to, strings.ToUpper(strings.TrimSpace(f.Type)), nil
}

// IsValidationError reports whether err comes from bad caller input.
func IsValidationError(err error) bool {
	return errors.Is(err, errInvalidTimeRange)
}

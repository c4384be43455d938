package service

import (
	"context"
	"errors"
	"time"

	slotserrors "slotter/internal/slots/errors"
	"slotter/internal/slots/repository"
	"slotter/internal/slots/validator"
	workshoprepo "slotter/internal/workshops/repository"
	"slotter/pkg/config"
	apperrors "slotter/pkg/errors"
	"slotter/pkg/model"
)

type SlotService interface {
	Create(ctx context.Context, subjectID string, slot *model.Slot) error
	GetByID(ctx context.Context, id string) (*model.Slot, error)
	Delete(ctx context.Context, subjectID string, id string) error
	ListAvailable(ctx context.Context, workshopID string, from, to *time.Time, limit int, offset int64) ([]*model.Slot, int64, error)
}

type slotService struct {
	repo         repository.SlotRepository
	workshopRepo workshoprepo.WorkshopRepository
	validator    *validator.SlotValidator
	cfg          *config.Config
}

func NewSlotService(
	repo repository.SlotRepository,
	workshopRepo workshoprepo.WorkshopRepository,
	validator *validator.SlotValidator,
	cfg *config.Config,
) SlotService {
	return &slotService{
		repo:         repo,
		workshopRepo: workshopRepo,
		validator:    validator,
		cfg:          cfg,
	}
}

// Create publishes a new available slot after an ownership check and an
// overlap scan against every existing slot of the workshop, booked or not.
// Intervals are half-open, so a slot ending exactly when another starts is
// allowed.
func (s *slotService) Create(ctx context.Context, subjectID string, slot *model.Slot) error {
	slot.ID = ""
	slot.Status = model.SlotStatusAvailable
	slot.ConcurrencyVersion = 0
	slot.StartTime = slot.StartTime.UTC()
	slot.EndTime = slot.EndTime.UTC()

	if err := s.validator.Validate(slot); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			details := make(map[string]any, len(vErrs))
			for _, ve := range vErrs {
				details[ve.Field] = ve.Message
			}
			return apperrors.Validation("Slot validation failed", details)
		}
		return apperrors.Internal("Failed to validate slot", err)
	}

	if err := s.checkOwnership(ctx, subjectID, slot.WorkshopID); err != nil {
		return err
	}

	existing, err := s.repo.FindOverlapping(ctx, slot.WorkshopID, slot.StartTime, slot.EndTime)
	if err != nil {
		return apperrors.Internal("Failed to check slot overlap", err)
	}
	for _, other := range existing {
		if model.Overlaps(slot.StartTime, slot.EndTime, other.StartTime, other.EndTime) {
			s.cfg.Log.Warn("Slot creation rejected on overlap",
				"workshop_id", slot.WorkshopID,
				"start_time", slot.StartTime,
				"conflicting_slot_id", other.ID,
			)
			return apperrors.Conflict("Slot overlaps an existing slot for this workshop")
		}
	}

	if err := s.repo.Create(ctx, slot); err != nil {
		s.cfg.Log.Error("Failed to create slot", "error", err)
		return apperrors.Internal("Failed to create slot", err)
	}

	s.cfg.Log.Info("Slot created",
		"id", slot.ID,
		"workshop_id", slot.WorkshopID,
		"start_time", slot.StartTime,
		"end_time", slot.EndTime,
	)
	return nil
}

func (s *slotService) GetByID(ctx context.Context, id string) (*model.Slot, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Slot ID cannot be empty")
	}

	slot, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, slotserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Slot", id)
		}
		if errors.Is(err, slotserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid slot ID format")
		}
		return nil, apperrors.Internal("Failed to get slot", err)
	}

	return slot, nil
}

// Delete removes an available slot. Deleting a slot that does not exist
// succeeds so retried deletes stay safe; deleting a booked slot is refused.
func (s *slotService) Delete(ctx context.Context, subjectID string, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Slot ID cannot be empty")
	}

	slot, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, slotserrors.ErrNotFound) {
			s.cfg.Log.Info("Delete of absent slot treated as success", "id", id)
			return nil
		}
		if errors.Is(err, slotserrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid slot ID format")
		}
		return apperrors.Internal("Failed to load slot", err)
	}

	if err := s.checkOwnership(ctx, subjectID, slot.WorkshopID); err != nil {
		return err
	}

	if slot.Status == model.SlotStatusBooked {
		return apperrors.Conflict("Cannot delete a booked slot")
	}

	deleted, err := s.repo.DeleteAvailable(ctx, id)
	if err != nil {
		return apperrors.Internal("Failed to delete slot", err)
	}
	if !deleted {
		// Lost a race: either the slot got booked after our read, or a
		// concurrent delete already removed it. Re-read to tell which.
		current, findErr := s.repo.FindByID(ctx, id)
		if findErr != nil {
			if errors.Is(findErr, slotserrors.ErrNotFound) {
				return nil
			}
			return apperrors.Internal("Failed to re-check slot after delete race", findErr)
		}
		if current.Status == model.SlotStatusBooked {
			return apperrors.Conflict("Cannot delete a booked slot")
		}
		return apperrors.Internal("Failed to delete slot", slotserrors.ErrVersionConflict)
	}

	s.cfg.Log.Info("Slot deleted", "id", id, "workshop_id", slot.WorkshopID)
	return nil
}

func (s *slotService) ListAvailable(ctx context.Context, workshopID string, from, to *time.Time, limit int, offset int64) ([]*model.Slot, int64, error) {
	if workshopID == "" {
		return nil, 0, apperrors.InvalidInput("workshop_id is required")
	}
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	slots, err := s.repo.FindAvailableByWorkshop(ctx, workshopID, from, to, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to list available slots", err)
	}

	total, err := s.repo.CountAvailableByWorkshop(ctx, workshopID, from, to)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to count available slots", err)
	}

	return slots, total, nil
}

func (s *slotService) checkOwnership(ctx context.Context, subjectID string, workshopID string) error {
	if subjectID == "" {
		return apperrors.Unauthorized("Authentication required to manage slots")
	}

	workshop, err := s.workshopRepo.FindByID(ctx, workshopID)
	if err != nil {
		if errors.Is(err, workshoprepo.ErrWorkshopNotFound) {
			return apperrors.NotFoundWithID("Workshop", workshopID)
		}
		if errors.Is(err, workshoprepo.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid workshop ID format")
		}
		return apperrors.Internal("Failed to load workshop", err)
	}

	if workshop.OwnerID != subjectID {
		s.cfg.Log.Warn("Slot management denied for non-owner",
			"workshop_id", workshopID,
			"subject_id", subjectID,
		)
		return apperrors.Forbidden("Only the workshop owner can manage its slots")
	}

	return nil
}

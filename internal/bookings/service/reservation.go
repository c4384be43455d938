package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "slotter/internal/bookings/errors"
	"slotter/internal/bookings/repository"
	"slotter/internal/bookings/validator"
	slotserrors "slotter/internal/slots/errors"
	slotrepo "slotter/internal/slots/repository"
	workshoprepo "slotter/internal/workshops/repository"
	"slotter/pkg/config"
	apperrors "slotter/pkg/errors"
	"slotter/pkg/model"
	"slotter/pkg/sanitizer"
)

type BookingService interface {
	Reserve(ctx context.Context, booking *model.Booking) error
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	UpdateStatus(ctx context.Context, id string, newStatus string) error
	StatsByWorkshop(ctx context.Context, workshopID string) (*model.WorkshopBookingStats, error)
}

type bookingService struct {
	repo         repository.BookingRepository
	slotRepo     slotrepo.SlotRepository
	serviceRepo  workshoprepo.ServiceRepository
	workshopRepo workshoprepo.WorkshopRepository
	validator    *validator.BookingValidator
	notifier     Notifier
	cfg          *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	slotRepo slotrepo.SlotRepository,
	serviceRepo workshoprepo.ServiceRepository,
	workshopRepo workshoprepo.WorkshopRepository,
	validator *validator.BookingValidator,
	notifier Notifier,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:         repo,
		slotRepo:     slotRepo,
		serviceRepo:  serviceRepo,
		workshopRepo: workshopRepo,
		validator:    validator,
		notifier:     notifier,
		cfg:          cfg,
	}
}

// Reserve claims a slot for a customer. The slot read, the
// available-to-booked transition and the booking insert run inside one
// transaction; any failure rolls back the whole unit. The transition is a
// compare-and-swap on the slot's concurrency version, so of N concurrent
// reservations against one slot exactly one commits and every other caller
// gets a conflict.
func (s *bookingService) Reserve(ctx context.Context, booking *model.Booking) error {
	s.prepare(booking)
	if err := s.validate(booking); err != nil {
		return err
	}

	svc, err := s.loadService(ctx, booking.ServiceID)
	if err != nil {
		return err
	}

	err = s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		slot, err := s.loadSlot(txCtx, booking.SlotID)
		if err != nil {
			return err
		}

		if slot.Status != model.SlotStatusAvailable {
			return apperrors.Conflict("Slot is not available")
		}
		if svc.WorkshopID != slot.WorkshopID {
			return apperrors.InvalidInput("Service does not belong to the slot's workshop")
		}
		if slot.DurationMinutes() < svc.DurationMin {
			return apperrors.Validation("Slot is too short for the requested service", map[string]any{
				"slot_minutes":    slot.DurationMinutes(),
				"service_minutes": svc.DurationMin,
			})
		}

		booked, err := s.slotRepo.TryTransitionToBooked(txCtx, slot.ID, slot.ConcurrencyVersion)
		if err != nil {
			return apperrors.Internal("Failed to transition slot", err)
		}
		if !booked {
			// Someone else won the slot between our read and the swap.
			return apperrors.Conflict("Slot is no longer available")
		}

		booking.WorkshopID = slot.WorkshopID
		if err := s.repo.Create(txCtx, booking); err != nil {
			return apperrors.Internal("Failed to create booking", err)
		}

		return nil
	})
	if err != nil {
		s.cfg.Log.Warn("Reservation failed",
			"slot_id", booking.SlotID,
			"service_id", booking.ServiceID,
			"error", err,
		)
		return err
	}

	s.cfg.Log.Info("Reservation committed",
		"id", booking.ID,
		"slot_id", booking.SlotID,
		"workshop_id", booking.WorkshopID,
	)

	s.notifyReserved(booking)
	return nil
}

func (s *bookingService) prepare(booking *model.Booking) {
	booking.ID = ""
	booking.WorkshopID = ""
	booking.Status = model.BookingStatusRequested
	booking.Customer.Name = sanitizer.NormalizeName(booking.Customer.Name)
	booking.Customer.Phone = sanitizer.NormalizePhone(booking.Customer.Phone)
	booking.Customer.Email = sanitizer.NormalizeEmail(booking.Customer.Email)
}

func (s *bookingService) validate(booking *model.Booking) error {
	err := s.validator.Validate(booking)
	if err == nil {
		return nil
	}

	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		details := make(map[string]any, len(vErrs))
		for _, ve := range vErrs {
			details[ve.Field] = ve.Message
		}
		return apperrors.Validation("Booking validation failed", details)
	}
	return apperrors.Internal("Failed to validate booking", err)
}

func (s *bookingService) loadService(ctx context.Context, serviceID string) (*model.Service, error) {
	svc, err := s.serviceRepo.FindByID(ctx, serviceID)
	if err != nil {
		if errors.Is(err, workshoprepo.ErrServiceNotFound) {
			return nil, apperrors.NotFoundWithID("Service", serviceID)
		}
		if errors.Is(err, workshoprepo.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid service ID format")
		}
		return nil, apperrors.Internal("Failed to load service", err)
	}

	if !svc.Active {
		return nil, apperrors.InvalidInput("Service is not active")
	}
	return svc, nil
}

func (s *bookingService) loadSlot(ctx context.Context, slotID string) (*model.Slot, error) {
	slot, err := s.slotRepo.FindByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, slotserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Slot", slotID)
		}
		if errors.Is(err, slotserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid slot ID format")
		}
		return nil, apperrors.Internal("Failed to load slot", err)
	}
	return slot, nil
}

// notifyReserved publishes the confirmation event after the transaction
// committed. Failures are logged and swallowed; the reservation stands.
func (s *bookingService) notifyReserved(booking *model.Booking) {
	snapshot := *booking
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.notifier.BookingReserved(ctx, &snapshot); err != nil {
			s.cfg.Log.Warn("Failed to publish reservation notification",
				"booking_id", snapshot.ID,
				"error", err,
			)
		}
	}()
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid booking ID format")
		}
		return nil, apperrors.Internal("Failed to get booking", err)
	}

	return booking, nil
}

// UpdateStatus applies one lifecycle transition. No transition ever
// touches the slot: a canceled booking leaves its slot booked.
func (s *bookingService) UpdateStatus(ctx context.Context, id string, newStatus string) error {
	if id == "" {
		return apperrors.InvalidInput("Booking ID cannot be empty")
	}

	valid := false
	for status := range model.AllowedBookingTransitions {
		if status == newStatus {
			valid = true
			break
		}
	}
	if !valid {
		return apperrors.InvalidInput(fmt.Sprintf("Unknown booking status: %s", newStatus))
	}

	booking, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !model.CanTransitionBooking(booking.Status, newStatus) {
		return apperrors.Conflict(fmt.Sprintf("Cannot transition booking from %s to %s", booking.Status, newStatus))
	}

	if err := s.repo.UpdateStatus(ctx, id, newStatus); err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Booking", id)
		}
		return apperrors.Internal("Failed to update booking status", err)
	}

	s.cfg.Log.Info("Booking status updated",
		"id", id,
		"from", booking.Status,
		"to", newStatus,
	)
	return nil
}

func (s *bookingService) StatsByWorkshop(ctx context.Context, workshopID string) (*model.WorkshopBookingStats, error) {
	if workshopID == "" {
		return nil, apperrors.InvalidInput("Workshop ID cannot be empty")
	}

	if _, err := s.workshopRepo.FindByID(ctx, workshopID); err != nil {
		if errors.Is(err, workshoprepo.ErrWorkshopNotFound) {
			return nil, apperrors.NotFoundWithID("Workshop", workshopID)
		}
		if errors.Is(err, workshoprepo.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid workshop ID format")
		}
		return nil, apperrors.Internal("Failed to load workshop", err)
	}

	byStatus, err := s.repo.StatsByWorkshop(ctx, workshopID)
	if err != nil {
		return nil, apperrors.Internal("Failed to aggregate booking stats", err)
	}

	stats := &model.WorkshopBookingStats{
		WorkshopID: workshopID,
		ByStatus:   byStatus,
	}
	for _, count := range byStatus {
		stats.Total += count
	}
	return stats, nil
}

package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	slotserrors "slotter/internal/slots/errors"
	"slotter/internal/slots/validator"
	"slotter/pkg/config"
	mongotx "slotter/pkg/db/mongo"
	apperrors "slotter/pkg/errors"
	"slotter/pkg/logger"
	"slotter/pkg/model"
)

type mockSlotRepository struct {
	createFunc          func(ctx context.Context, slot *model.Slot) error
	findByIDFunc        func(ctx context.Context, id string) (*model.Slot, error)
	findOverlappingFunc func(ctx context.Context, workshopID string, startTime, endTime time.Time) ([]*model.Slot, error)
	findAvailableFunc   func(ctx context.Context, workshopID string, from, to *time.Time, limit int, offset int64) ([]*model.Slot, error)
	countAvailableFunc  func(ctx context.Context, workshopID string, from, to *time.Time) (int64, error)
	deleteAvailableFunc func(ctx context.Context, id string) (bool, error)
	tryTransitionFunc   func(ctx context.Context, id string, expectedVersion int64) (bool, error)
}

func (m *mockSlotRepository) Create(ctx context.Context, slot *model.Slot) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, slot)
	}
	slot.ID = "68b1c2d3e4f5a6b7c8d9e0f1"
	return nil
}

func (m *mockSlotRepository) FindByID(ctx context.Context, id string) (*model.Slot, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, slotserrors.ErrNotFound
}

func (m *mockSlotRepository) FindOverlapping(ctx context.Context, workshopID string, startTime, endTime time.Time) ([]*model.Slot, error) {
	if m.findOverlappingFunc != nil {
		return m.findOverlappingFunc(ctx, workshopID, startTime, endTime)
	}
	return nil, nil
}

func (m *mockSlotRepository) FindAvailableByWorkshop(ctx context.Context, workshopID string, from, to *time.Time, limit int, offset int64) ([]*model.Slot, error) {
	if m.findAvailableFunc != nil {
		return m.findAvailableFunc(ctx, workshopID, from, to, limit, offset)
	}
	return nil, nil
}

func (m *mockSlotRepository) CountAvailableByWorkshop(ctx context.Context, workshopID string, from, to *time.Time) (int64, error) {
	if m.countAvailableFunc != nil {
		return m.countAvailableFunc(ctx, workshopID, from, to)
	}
	return 0, nil
}

func (m *mockSlotRepository) DeleteAvailable(ctx context.Context, id string) (bool, error) {
	if m.deleteAvailableFunc != nil {
		return m.deleteAvailableFunc(ctx, id)
	}
	return true, nil
}

func (m *mockSlotRepository) TryTransitionToBooked(ctx context.Context, id string, expectedVersion int64) (bool, error) {
	if m.tryTransitionFunc != nil {
		return m.tryTransitionFunc(ctx, id, expectedVersion)
	}
	return true, nil
}

func (m *mockSlotRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(ctx)
}

type mockWorkshopRepository struct {
	findByIDFunc func(ctx context.Context, id string) (*model.Workshop, error)
}

func (m *mockWorkshopRepository) FindByID(ctx context.Context, id string) (*model.Workshop, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return &model.Workshop{ID: id, OwnerID: "owner-1", Name: "Garage"}, nil
}

func newTestConfig() *config.Config {
	return &config.Config{
		Log: logger.New(logger.Config{
			Level:   "error",
			Format:  logger.JSON,
			Service: "test",
		}),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

func newTestService(repo *mockSlotRepository, workshops *mockWorkshopRepository) SlotService {
	cfg := newTestConfig()
	return NewSlotService(repo, workshops, validator.NewSlotValidator(cfg.Log), cfg)
}

func validSlot() *model.Slot {
	start := time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC)
	return &model.Slot{
		WorkshopID: "68b1c2d3e4f5a6b7c8d9e0a1",
		StartTime:  start,
		EndTime:    start.Add(time.Hour),
		Status:     model.SlotStatusAvailable,
	}
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	appErr := apperrors.AsAppError(err)
	if appErr == nil {
		t.Fatalf("expected AppError, got %T: %v", err, err)
	}
	return appErr.StatusCode()
}

func TestCreate_OverlapBoundaries(t *testing.T) {
	base := time.Date(2026, 9, 10, 10, 0, 0, 0, time.UTC)
	existing := &model.Slot{
		ID:         "68b1c2d3e4f5a6b7c8d9e0f2",
		WorkshopID: "68b1c2d3e4f5a6b7c8d9e0a1",
		StartTime:  base,
		EndTime:    base.Add(time.Hour),
		Status:     model.SlotStatusAvailable,
	}

	tests := []struct {
		name       string
		start, end time.Time
		wantStatus int
	}{
		{"identical interval", base, base.Add(time.Hour), http.StatusConflict},
		{"partial overlap at head", base.Add(-30 * time.Minute), base.Add(30 * time.Minute), http.StatusConflict},
		{"partial overlap at tail", base.Add(30 * time.Minute), base.Add(90 * time.Minute), http.StatusConflict},
		{"fully contained", base.Add(10 * time.Minute), base.Add(20 * time.Minute), http.StatusConflict},
		{"containing", base.Add(-time.Hour), base.Add(2 * time.Hour), http.StatusConflict},
		{"adjacent before is allowed", base.Add(-time.Hour), base, 0},
		{"adjacent after is allowed", base.Add(time.Hour), base.Add(2 * time.Hour), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockSlotRepository{
				findOverlappingFunc: func(ctx context.Context, workshopID string, startTime, endTime time.Time) ([]*model.Slot, error) {
					// The Mongo filter already excludes non-intersecting
					// slots; the mock mimics that.
					if model.Overlaps(startTime, endTime, existing.StartTime, existing.EndTime) {
						return []*model.Slot{existing}, nil
					}
					return nil, nil
				},
			}
			svc := newTestService(repo, &mockWorkshopRepository{})

			slot := validSlot()
			slot.StartTime = tt.start
			slot.EndTime = tt.end

			err := svc.Create(context.Background(), "owner-1", slot)
			if tt.wantStatus == 0 {
				if err != nil {
					t.Fatalf("expected success, got %v", err)
				}
				return
			}
			if got := statusOf(t, err); got != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, got)
			}
		})
	}
}

func TestCreate_ValidationAndOwnership(t *testing.T) {
	t.Run("end before start is rejected", func(t *testing.T) {
		svc := newTestService(&mockSlotRepository{}, &mockWorkshopRepository{})
		slot := validSlot()
		slot.EndTime = slot.StartTime.Add(-time.Hour)

		err := svc.Create(context.Background(), "owner-1", slot)
		if got := statusOf(t, err); got != http.StatusUnprocessableEntity {
			t.Errorf("expected 422, got %d", got)
		}
	})

	t.Run("non-owner is forbidden", func(t *testing.T) {
		svc := newTestService(&mockSlotRepository{}, &mockWorkshopRepository{})

		err := svc.Create(context.Background(), "someone-else", validSlot())
		if got := statusOf(t, err); got != http.StatusForbidden {
			t.Errorf("expected 403, got %d", got)
		}
	})

	t.Run("missing subject is unauthorized", func(t *testing.T) {
		svc := newTestService(&mockSlotRepository{}, &mockWorkshopRepository{})

		err := svc.Create(context.Background(), "", validSlot())
		if got := statusOf(t, err); got != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", got)
		}
	})

	t.Run("client-supplied status and version are reset", func(t *testing.T) {
		var created *model.Slot
		repo := &mockSlotRepository{
			createFunc: func(ctx context.Context, slot *model.Slot) error {
				created = slot
				return nil
			},
		}
		svc := newTestService(repo, &mockWorkshopRepository{})

		slot := validSlot()
		slot.Status = model.SlotStatusBooked
		slot.ConcurrencyVersion = 42

		if err := svc.Create(context.Background(), "owner-1", slot); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if created.Status != model.SlotStatusAvailable {
			t.Errorf("expected status reset to available, got %q", created.Status)
		}
		if created.ConcurrencyVersion != 0 {
			t.Errorf("expected version reset to 0, got %d", created.ConcurrencyVersion)
		}
	})
}

func TestDelete_Idempotency(t *testing.T) {
	t.Run("absent slot deletes successfully", func(t *testing.T) {
		repo := &mockSlotRepository{
			findByIDFunc: func(ctx context.Context, id string) (*model.Slot, error) {
				return nil, slotserrors.ErrNotFound
			},
		}
		svc := newTestService(repo, &mockWorkshopRepository{})

		if err := svc.Delete(context.Background(), "owner-1", "68b1c2d3e4f5a6b7c8d9e0f1"); err != nil {
			t.Fatalf("expected idempotent success, got %v", err)
		}
	})

	t.Run("double delete both succeed", func(t *testing.T) {
		slot := validSlot()
		slot.ID = "68b1c2d3e4f5a6b7c8d9e0f1"
		deleted := false
		repo := &mockSlotRepository{
			findByIDFunc: func(ctx context.Context, id string) (*model.Slot, error) {
				if deleted {
					return nil, slotserrors.ErrNotFound
				}
				return slot, nil
			},
			deleteAvailableFunc: func(ctx context.Context, id string) (bool, error) {
				deleted = true
				return true, nil
			},
		}
		svc := newTestService(repo, &mockWorkshopRepository{})

		if err := svc.Delete(context.Background(), "owner-1", slot.ID); err != nil {
			t.Fatalf("first delete failed: %v", err)
		}
		if err := svc.Delete(context.Background(), "owner-1", slot.ID); err != nil {
			t.Fatalf("second delete failed: %v", err)
		}
	})

	t.Run("booked slot refuses delete", func(t *testing.T) {
		slot := validSlot()
		slot.ID = "68b1c2d3e4f5a6b7c8d9e0f1"
		slot.Status = model.SlotStatusBooked
		repo := &mockSlotRepository{
			findByIDFunc: func(ctx context.Context, id string) (*model.Slot, error) {
				return slot, nil
			},
		}
		svc := newTestService(repo, &mockWorkshopRepository{})

		err := svc.Delete(context.Background(), "owner-1", slot.ID)
		if got := statusOf(t, err); got != http.StatusConflict {
			t.Errorf("expected 409, got %d", got)
		}
	})

	t.Run("slot booked between read and delete refuses", func(t *testing.T) {
		available := validSlot()
		available.ID = "68b1c2d3e4f5a6b7c8d9e0f1"
		booked := *available
		booked.Status = model.SlotStatusBooked

		reads := 0
		repo := &mockSlotRepository{
			findByIDFunc: func(ctx context.Context, id string) (*model.Slot, error) {
				reads++
				if reads == 1 {
					return available, nil
				}
				return &booked, nil
			},
			deleteAvailableFunc: func(ctx context.Context, id string) (bool, error) {
				return false, nil
			},
		}
		svc := newTestService(repo, &mockWorkshopRepository{})

		err := svc.Delete(context.Background(), "owner-1", available.ID)
		if got := statusOf(t, err); got != http.StatusConflict {
			t.Errorf("expected 409, got %d", got)
		}
	})
}

func TestListAvailable(t *testing.T) {
	t.Run("requires workshop_id", func(t *testing.T) {
		svc := newTestService(&mockSlotRepository{}, &mockWorkshopRepository{})

		_, _, err := svc.ListAvailable(context.Background(), "", nil, nil, 10, 0)
		if got := statusOf(t, err); got != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", got)
		}
	})

	t.Run("returns slots and total", func(t *testing.T) {
		repo := &mockSlotRepository{
			findAvailableFunc: func(ctx context.Context, workshopID string, from, to *time.Time, limit int, offset int64) ([]*model.Slot, error) {
				return []*model.Slot{validSlot()}, nil
			},
			countAvailableFunc: func(ctx context.Context, workshopID string, from, to *time.Time) (int64, error) {
				return 7, nil
			},
		}
		svc := newTestService(repo, &mockWorkshopRepository{})

		slots, total, err := svc.ListAvailable(context.Background(), "68b1c2d3e4f5a6b7c8d9e0a1", nil, nil, 10, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(slots) != 1 || total != 7 {
			t.Errorf("expected 1 slot and total 7, got %d and %d", len(slots), total)
		}
	})
}

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/go-co-op/gocron/v2"

	"estate-backend/internal/models"
)

// Reminder windows before rent expiry, in days
var reminderWindows = []int{7, 3}

// RentReminderService runs the daily tenancy sweep: upcoming expiries get a
// reminder, lapsed tenancies are deactivated. The ledger records every
// action, which also keeps reruns from notifying twice.
type RentReminderService struct {
	Tenants   TenantStore
	Notifier  Notifier
	scheduler gocron.Scheduler
}

func NewRentReminderService(tenants TenantStore, notifier Notifier) *RentReminderService {
	return &RentReminderService{Tenants: tenants, Notifier: notifier}
}

// Start schedules the sweep to run daily at 08:00 server time
func (s *RentReminderService) Start() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(8, 0, 0))),
		gocron.NewTask(func() {
			if err := s.RunDailySweep(context.Background()); err != nil {
				log.Printf("[Reminder] Daily sweep failed: %v", err)
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule daily sweep: %w", err)
	}
	sched.Start()
	s.scheduler = sched
	log.Println("[Reminder] Daily rent sweep scheduled for 08:00")
	return nil
}

// Stop shuts the scheduler down, waiting for a running sweep to finish
func (s *RentReminderService) Stop() {
	if s.scheduler != nil {
		if err := s.scheduler.Shutdown(); err != nil {
			log.Printf("[Reminder] Scheduler shutdown: %v", err)
		}
	}
}

// RunDailySweep sends reminders for the configured windows and deactivates
// expired tenancies. Safe to run more than once a day.
func (s *RentReminderService) RunDailySweep(ctx context.Context) error {
	for _, days := range reminderWindows {
		if err := s.remindExpiring(ctx, days); err != nil {
			return err
		}
	}
	return s.deactivateExpired(ctx)
}

func (s *RentReminderService) remindExpiring(ctx context.Context, days int) error {
	tenants, err := s.Tenants.ListExpiringWithin(ctx, days)
	if err != nil {
		return fmt.Errorf("failed to list tenancies expiring in %d days: %w", days, err)
	}
	for _, t := range tenants {
		// One reminder per window: the 7-day ledger entry does not block the
		// 3-day one because the dedupe horizon is shorter than the gap.
		sent, err := s.Tenants.HasLedgerEventSince(ctx, t.ID, models.LedgerRentReminder, 2)
		if err != nil {
			return err
		}
		if sent {
			continue
		}
		if s.Notifier != nil {
			s.Notifier.RentReminder(t, days)
		}
		payload, _ := json.Marshal(map[string]any{
			"days_left":   days,
			"rent_expiry": t.RentExpiry,
		})
		if err := s.Tenants.AppendLedger(ctx, &models.RentLedger{
			TenantID: t.ID,
			Event:    models.LedgerRentReminder,
			NewValue: payload,
		}); err != nil {
			return err
		}
		log.Printf("[Reminder] Sent %d-day reminder to tenant %d", days, t.ID)
	}
	return nil
}

func (s *RentReminderService) deactivateExpired(ctx context.Context) error {
	tenants, err := s.Tenants.ListExpired(ctx)
	if err != nil {
		return fmt.Errorf("failed to list expired tenancies: %w", err)
	}
	for _, t := range tenants {
		if !t.IsActive {
			continue
		}
		if err := s.Tenants.SetActive(ctx, t.ID, false); err != nil {
			return err
		}
		payload, _ := json.Marshal(map[string]any{"rent_expiry": t.RentExpiry})
		if err := s.Tenants.AppendLedger(ctx, &models.RentLedger{
			TenantID: t.ID,
			Event:    models.LedgerRentExpired,
			NewValue: payload,
		}); err != nil {
			return err
		}
		if s.Notifier != nil {
			s.Notifier.RentExpired(t)
		}
		log.Printf("[Reminder] Deactivated expired tenancy %d", t.ID)
	}
	return nil
}

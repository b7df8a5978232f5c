package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"lawdesk/internal/auth"
	"lawdesk/internal/core"
	"lawdesk/internal/storage"
)

type (
	NewEvent struct {
		Title           string           `json:"title"`
		Description     string           `json:"description"`
		EventType       core.EventType   `json:"event_type"`
		StartAt         string           `json:"start_datetime"`
		EndAt           string           `json:"end_datetime"`
		Location        string           `json:"location"`
		RelatedTo       string           `json:"related_to"`
		RelatedID       *int64           `json:"related_id"`
		ReminderMinutes *int             `json:"reminder_minutes"`
		Status          core.EventStatus `json:"status"`
	}

	EventPatch struct {
		Title           *string           `json:"title"`
		Description     *string           `json:"description"`
		EventType       *core.EventType   `json:"event_type"`
		StartAt         *string           `json:"start_datetime"`
		EndAt           *string           `json:"end_datetime"`
		Location        *string           `json:"location"`
		RelatedTo       *string           `json:"related_to"`
		RelatedID       *int64            `json:"related_id"`
		ReminderMinutes *int              `json:"reminder_minutes"`
		Status          *core.EventStatus `json:"status"`
	}
)

const (
	DefaultUpcomingDays  = 7
	DefaultUpcomingLimit = 10
)

type CalendarService struct {
	repo   *storage.SQLiteRepository
	policy *auth.Policy
	now    func() time.Time
}

func NewCalendarService(repo *storage.SQLiteRepository, policy *auth.Policy) *CalendarService {
	return &CalendarService{repo: repo, policy: policy, now: time.Now}
}

func (s *CalendarService) derive(events []core.CalendarEvent) {
	now := s.now()
	for i := range events {
		events[i].Derive(now)
	}
}

func (s *CalendarService) List(ctx context.Context, f core.EventFilter, lq core.ListQuery) (Page[core.CalendarEvent], error) {
	if err := s.policy.Check(ctx, auth.ActionRead, auth.KindEvent); err != nil {
		return Page[core.CalendarEvent]{}, err
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return Page[core.CalendarEvent]{}, core.NewValidationError("end", "end must not be before start")
	}
	items, total, err := s.repo.ListEvents(ctx, f, normalizeQuery(lq))
	if err != nil {
		return Page[core.CalendarEvent]{}, err
	}
	s.derive(items)
	return Page[core.CalendarEvent]{Items: items, Total: total}, nil
}

func (s *CalendarService) Get(ctx context.Context, id int64) (core.CalendarEvent, error) {
	if err := s.policy.Check(ctx, auth.ActionRead, auth.KindEvent); err != nil {
		return core.CalendarEvent{}, err
	}
	e, err := s.repo.GetEvent(ctx, id)
	if err != nil {
		return core.CalendarEvent{}, err
	}
	e.Derive(s.now())
	return e, nil
}

func (s *CalendarService) Create(ctx context.Context, in NewEvent) (core.CalendarEvent, error) {
	if err := s.policy.Check(ctx, auth.ActionCreate, auth.KindEvent); err != nil {
		return core.CalendarEvent{}, err
	}
	if strings.TrimSpace(in.StartAt) == "" {
		return core.CalendarEvent{}, core.NewValidationError("start_datetime", "start is required")
	}
	start, err := core.ParseDateTime(in.StartAt)
	if err != nil {
		return core.CalendarEvent{}, core.Invalid("start_datetime", err)
	}
	end, err := parseOptionalDateTime("end_datetime", in.EndAt)
	if err != nil {
		return core.CalendarEvent{}, err
	}
	e := core.CalendarEvent{
		Title:           strings.TrimSpace(in.Title),
		Description:     in.Description,
		EventType:       in.EventType,
		StartAt:         start,
		EndAt:           end,
		Location:        strings.TrimSpace(in.Location),
		RelatedTo:       in.RelatedTo,
		RelatedID:       in.RelatedID,
		ReminderMinutes: core.DefaultReminder,
		Status:          in.Status,
		CreatedBy:       actorID(ctx),
	}
	if in.ReminderMinutes != nil {
		e.ReminderMinutes = *in.ReminderMinutes
	}
	if e.Status == "" {
		e.Status = core.EventScheduled
	}
	if err := e.Validate(); err != nil {
		return core.CalendarEvent{}, err
	}
	created, err := s.repo.CreateEvent(ctx, e)
	if err != nil {
		return core.CalendarEvent{}, err
	}
	created.Derive(s.now())
	slog.InfoContext(ctx, "Event created", "event_id", created.ID, "event_type", created.EventType)
	return created, nil
}

// parseOptionalDateTime treats an empty value as absent.
func parseOptionalDateTime(field, v string) (*time.Time, error) {
	if strings.TrimSpace(v) == "" {
		return nil, nil
	}
	t, err := core.ParseDateTime(v)
	if err != nil {
		return nil, core.Invalid(field, err)
	}
	return &t, nil
}

func (s *CalendarService) Update(ctx context.Context, id int64, p EventPatch) (core.CalendarEvent, error) {
	if err := s.policy.Check(ctx, auth.ActionUpdate, auth.KindEvent); err != nil {
		return core.CalendarEvent{}, err
	}
	e, err := s.repo.GetEvent(ctx, id)
	if err != nil {
		return core.CalendarEvent{}, err
	}
	trimPtr(&e.Title, p.Title)
	trimPtr(&e.Location, p.Location)
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.EventType != nil {
		e.EventType = *p.EventType
	}
	if p.StartAt != nil {
		start, err := core.ParseDateTime(*p.StartAt)
		if err != nil {
			return core.CalendarEvent{}, core.Invalid("start_datetime", err)
		}
		e.StartAt = start
	}
	if p.EndAt != nil {
		if e.EndAt, err = parseOptionalDateTime("end_datetime", *p.EndAt); err != nil {
			return core.CalendarEvent{}, err
		}
	}
	if p.RelatedTo != nil {
		e.RelatedTo = *p.RelatedTo
	}
	if p.RelatedID != nil {
		e.RelatedID = p.RelatedID
	}
	if p.ReminderMinutes != nil {
		e.ReminderMinutes = *p.ReminderMinutes
	}
	if p.Status != nil {
		e.Status = *p.Status
	}
	if err := e.Validate(); err != nil {
		return core.CalendarEvent{}, err
	}
	if err := s.repo.UpdateEvent(ctx, e); err != nil {
		return core.CalendarEvent{}, err
	}
	return s.Get(ctx, id)
}

func (s *CalendarService) Delete(ctx context.Context, id int64) error {
	if err := s.policy.Check(ctx, auth.ActionDelete, auth.KindEvent); err != nil {
		return err
	}
	if err := s.repo.DeleteEvent(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Event deleted", "event_id", id)
	return nil
}

// Upcoming returns scheduled events starting within the next days, soonest
// first. Non-positive arguments fall back to the defaults.
func (s *CalendarService) Upcoming(ctx context.Context, days, limit int) ([]core.CalendarEvent, error) {
	if err := s.policy.Check(ctx, auth.ActionRead, auth.KindEvent); err != nil {
		return nil, err
	}
	if days <= 0 {
		days = DefaultUpcomingDays
	}
	if limit <= 0 {
		limit = DefaultUpcomingLimit
	}
	if limit > MaxPerPage {
		limit = MaxPerPage
	}
	now := s.now().UTC()
	to := now.AddDate(0, 0, days)
	events, err := s.repo.ListUpcomingEvents(ctx, "", now, &to, limit)
	if err != nil {
		return nil, err
	}
	s.derive(events)
	return events, nil
}

package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/erictragoustis/vuvoregs/storage"
)

type EventHandler struct {
	store *storage.Store
	log   *slog.Logger
}

func NewEventHandler(store *storage.Store, log *slog.Logger) *EventHandler {
	return &EventHandler{store: store, log: log}
}

// ListEvents - GET /api/v1/events
// Returns events currently open for registration, with remaining capacity
// when the event has a cap.
func (h *EventHandler) ListEvents(c echo.Context) error {
	ctx := c.Request().Context()
	now := time.Now().UTC()

	events, err := h.store.ListOpenEvents(ctx, now)
	if err != nil {
		return respondError(c, h.log, err)
	}

	out := make([]map[string]any, 0, len(events))
	for _, ev := range events {
		item := map[string]any{
			"id":          ev.ID,
			"name":        ev.Name,
			"date":        ev.Date,
			"location":    ev.Location,
			"description": ev.Description,
			"organizer":   ev.Organizer,
		}
		paid, err := h.store.CountPaidAthletes(ctx, ev.ID)
		if err != nil {
			return respondError(c, h.log, err)
		}
		if remaining, capped := ev.SlotsRemaining(paid); capped {
			item["slots_remaining"] = remaining
		}
		out = append(out, item)
	}

	return c.JSON(http.StatusOK, map[string]any{"events": out})
}

// ListRaces - GET /api/v1/events/:eventId/races
// Returns an event's races with their visible packages priced for a single
// athlete at the current instant, plus the active pricing window label.
func (h *EventHandler) ListRaces(c echo.Context) error {
	ctx := c.Request().Context()
	eventID := c.PathParam("eventId")
	now := time.Now().UTC()

	if _, err := h.store.GetEvent(ctx, eventID); err != nil {
		return respondError(c, h.log, err)
	}

	races, err := h.store.ListRaces(ctx, eventID)
	if err != nil {
		return respondError(c, h.log, err)
	}

	out := make([]map[string]any, 0, len(races))
	for i := range races {
		race := &races[i]
		item := map[string]any{
			"id":               race.ID,
			"name":             race.Name,
			"distance_km":      race.DistanceKM,
			"min_participants": race.MinimumParticipants(),
			"team_pricing":     race.HasTeamDiscount(),
		}
		if race.RaceType != nil {
			item["race_type"] = race.RaceType
		}
		if label, ok := race.CurrentPricingLabel(now); ok {
			item["pricing_window"] = label
		}

		packages, err := h.store.ListVisiblePackages(ctx, race.ID, now)
		if err != nil {
			return respondError(c, h.log, err)
		}
		previews := make([]map[string]any, 0, len(packages))
		for j := range packages {
			pkg := &packages[j]
			previews = append(previews, map[string]any{
				"id":          pkg.ID,
				"name":        pkg.Name,
				"description": pkg.Description,
				"price":       pkg.FinalPrice(race, 1, now),
				"options":     pkg.Options,
			})
		}
		item["packages"] = previews

		out = append(out, item)
	}

	return c.JSON(http.StatusOK, map[string]any{"races": out})
}

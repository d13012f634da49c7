package httpapi

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/skyroute-io/skyroute/internal/catalog"
	"github.com/skyroute-io/skyroute/internal/forecast"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *forecast.Service, cat *catalog.Catalog, defaultTimezone string) {
	v1 := app.Group("/api/v1")

	v1.Post("/forecast", func(c *fiber.Ctx) error {
		var req forecastRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		q := req.toQuery(defaultTimezone)
		// The auth collaborator that resolves the caller's subscription is
		// external; it forwards the resolved tier in this header.
		q.Tier = c.Get("X-Subscription-Tier")

		resp, err := service.GetForecast(c.Context(), q)
		if err != nil {
			var verr *forecast.ValidationError
			var uerr *forecast.UnknownVariablesError
			switch {
			case errors.As(err, &verr), errors.As(err, &uerr):
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			case errors.Is(err, forecast.ErrAllProvidersFailed):
				return fiber.NewError(fiber.StatusBadGateway, err.Error())
			default:
				return fiber.NewError(fiber.StatusInternalServerError, "forecast request failed")
			}
		}

		return c.JSON(resp)
	})

	v1.Get("/variables", func(c *fiber.Ctx) error {
		snap := cat.Snapshot()
		vars := snap.Variables()

		endpoints := make(map[string][]string)
		for _, v := range vars {
			endpoints[v.Group] = append(endpoints[v.Group], v.Name)
		}

		return c.JSON(fiber.Map{
			"variables": vars,
			"endpoints": endpoints,
		})
	})

	v1.Get("/pricing", func(c *fiber.Ctx) error {
		snap := cat.Snapshot()
		return c.JSON(fiber.Map{
			"pricing":      snap.Pricing(),
			"baseCurrency": snap.BaseCurrency(),
			"defaultPrice": snap.DefaultPrice(),
		})
	})
}

// forecastRequest is the inbound forecast query body.
type forecastRequest struct {
	Coordinates [][]float64 `json:"coordinates" validate:"required,min=1,dive,len=2"`
	Variables   []string    `json:"variables" validate:"required,min=1,dive,required"`
	Timestamp   string      `json:"timestamp" validate:"required"`
	Timezone    string      `json:"timezone"`
	Currency    string      `json:"currency"`
}

func (r forecastRequest) toQuery(defaultTimezone string) forecast.Query {
	coords := make([]forecast.Coordinate, len(r.Coordinates))
	for i, pair := range r.Coordinates {
		coords[i] = forecast.Coordinate{Lat: pair[0], Lon: pair[1]}
	}
	tz := r.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	return forecast.Query{
		Coordinates: coords,
		Variables:   r.Variables,
		Timestamp:   r.Timestamp,
		Timezone:    tz,
		Currency:    r.Currency,
	}
}

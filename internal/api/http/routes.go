package httpapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/rain-prediction-api/internal/weather"
)

var validate = validator.New()

// DefaultStoreTimeout bounds every store call made from a handler.
const DefaultStoreTimeout = 10 * time.Second

// envelope is the response wrapper used by every document-store-backed
// endpoint. The relational endpoints return bare records; the asymmetry is
// inherited from the existing API surface and kept for compatibility.
type envelope struct {
	Message string `json:"message"`
	Data    any    `json:"data"`
}

type handlers struct {
	rel     weather.RelationalStore
	docs    *weather.Service
	timeout time.Duration
}

// RegisterRoutes wires the CRUD handlers for both stores into the Fiber app.
func RegisterRoutes(app *fiber.App, rel weather.RelationalStore, docs *weather.Service, storeTimeout time.Duration) {
	if storeTimeout <= 0 {
		storeTimeout = DefaultStoreTimeout
	}
	h := &handlers{rel: rel, docs: docs, timeout: storeTimeout}

	app.Post("/locations", h.createLocation)
	app.Get("/locations", h.listLocations)
	app.Get("/locations/:id", h.getLocation)
	app.Put("/locations/:id", h.updateLocation)
	app.Delete("/locations/:id", h.deleteLocation)

	app.Post("/observations", h.createObservation)
	app.Get("/observations", h.listObservations)
	app.Get("/observations/:id", h.getObservation)
	app.Put("/observations/:id", h.updateObservation)
	app.Delete("/observations/:id", h.deleteObservation)

	app.Post("/predictions", h.createPrediction)
	app.Get("/predictions", h.listPredictions)
	app.Get("/predictions/:id", h.getPrediction)
	app.Put("/predictions/:id", h.updatePrediction)
	app.Delete("/predictions/:id", h.deletePrediction)

	mongo := app.Group("/mongo")
	mongo.Post("/locations", h.mongoCreateLocation)
	mongo.Get("/locations", h.mongoListLocations)
	mongo.Get("/locations/:id", h.mongoGetLocation)
	mongo.Put("/locations/:id", h.mongoUpdateLocation)
	mongo.Delete("/locations/:id", h.mongoDeleteLocation)

	mongo.Post("/observations", h.mongoCreateObservation)
	mongo.Get("/observations", h.mongoListObservations)
	mongo.Get("/observations/:id", h.mongoGetObservation)
	mongo.Put("/observations/:id", h.mongoUpdateObservation)
	mongo.Delete("/observations/:id", h.mongoDeleteObservation)

	mongo.Post("/predictions", h.mongoCreatePrediction)
	mongo.Get("/predictions", h.mongoListPredictions)
	mongo.Get("/predictions/:id", h.mongoGetPrediction)
	mongo.Put("/predictions/:id", h.mongoUpdatePrediction)
	mongo.Delete("/predictions/:id", h.mongoDeletePrediction)
}

// ErrorHandler is the central Fiber error handler mapping the error taxonomy
// to status codes. Stack traces never leave the process; only a message
// string does.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var (
		notFound   *weather.NotFoundError
		validation *weather.ValidationError
		storage    *weather.StorageError
		fiberErr   *fiber.Error
	)

	code := fiber.StatusInternalServerError
	msg := "internal server error"

	switch {
	case errors.As(err, &notFound):
		code = fiber.StatusNotFound
		msg = notFound.Error()
	case errors.As(err, &validation):
		code = fiber.StatusUnprocessableEntity
		msg = validation.Error()
	case errors.As(err, &storage):
		msg = storage.Error()
	case errors.As(err, &fiberErr):
		code = fiberErr.Code
		msg = fiberErr.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": msg,
	})
}

// storeCtx derives a bounded context for store calls from the request.
func (h *handlers) storeCtx(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), h.timeout)
}

// bind parses and validates a request body, reporting failures as
// 422-equivalents listing the offending fields.
func bind(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return &weather.ValidationError{Reason: "malformed request body: " + err.Error()}
	}
	if err := validate.Struct(dst); err != nil {
		var fields []string
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
		}
		return &weather.ValidationError{Reason: "invalid request body", Fields: fields}
	}
	return nil
}

func idParam(c *fiber.Ctx) (int, error) {
	id, err := c.ParamsInt("id")
	if err != nil {
		return 0, &weather.ValidationError{Reason: "id must be an integer", Fields: []string{"id"}}
	}
	return id, nil
}

type locationBody struct {
	Name  string  `json:"name" validate:"required"`
	State *string `json:"state"`
}

type predictionBody struct {
	ObservationID int   `json:"observation_id" validate:"required"`
	WillItRain    *bool `json:"will_it_rain" validate:"required"`
}

func bindObservation(c *fiber.Ctx) (weather.Observation, error) {
	var obs weather.Observation
	if err := bind(c, &obs); err != nil {
		return weather.Observation{}, err
	}
	if obs.Date.IsZero() {
		return weather.Observation{}, &weather.ValidationError{
			Reason: "invalid request body",
			Fields: []string{"date"},
		}
	}
	return obs, nil
}

// --- Relational endpoints (bare records) ---

func (h *handlers) createLocation(c *fiber.Ctx) error {
	var body locationBody
	if err := bind(c, &body); err != nil {
		return err
	}
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	loc, err := h.rel.CreateLocation(ctx, weather.Location{Name: body.Name, State: body.State})
	if err != nil {
		return err
	}
	return c.JSON(loc)
}

func (h *handlers) listLocations(c *fiber.Ctx) error {
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	locs, err := h.rel.ListLocations(ctx)
	if err != nil {
		return err
	}
	return c.JSON(locs)
}

func (h *handlers) getLocation(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	loc, err := h.rel.GetLocation(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(loc)
}

func (h *handlers) updateLocation(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var body locationBody
	if err := bind(c, &body); err != nil {
		return err
	}
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	loc, err := h.rel.UpdateLocation(ctx, weather.Location{LocationID: id, Name: body.Name, State: body.State})
	if err != nil {
		return err
	}
	return c.JSON(loc)
}

func (h *handlers) deleteLocation(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	if err := h.rel.DeleteLocation(ctx, id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handlers) createObservation(c *fiber.Ctx) error {
	obs, err := bindObservation(c)
	if err != nil {
		return err
	}
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	created, err := h.rel.CreateObservation(ctx, obs)
	if err != nil {
		return err
	}
	return c.JSON(created)
}

func (h *handlers) listObservations(c *fiber.Ctx) error {
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	obs, err := h.rel.ListObservations(ctx)
	if err != nil {
		return err
	}
	return c.JSON(obs)
}

func (h *handlers) getObservation(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	obs, err := h.rel.GetObservation(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(obs)
}

func (h *handlers) updateObservation(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	obs, err := bindObservation(c)
	if err != nil {
		return err
	}
	obs.ObservationID = id

	ctx, cancel := h.storeCtx(c)
	defer cancel()

	updated, err := h.rel.UpdateObservation(ctx, obs)
	if err != nil {
		return err
	}
	return c.JSON(updated)
}

func (h *handlers) deleteObservation(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	if err := h.rel.DeleteObservation(ctx, id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handlers) createPrediction(c *fiber.Ctx) error {
	var body predictionBody
	if err := bind(c, &body); err != nil {
		return err
	}
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	pred, err := h.rel.CreatePrediction(ctx, weather.Prediction{
		ObservationID: body.ObservationID,
		WillItRain:    *body.WillItRain,
	})
	if err != nil {
		return err
	}
	return c.JSON(pred)
}

func (h *handlers) listPredictions(c *fiber.Ctx) error {
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	preds, err := h.rel.ListPredictions(ctx)
	if err != nil {
		return err
	}
	return c.JSON(preds)
}

func (h *handlers) getPrediction(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	pred, err := h.rel.GetPrediction(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(pred)
}

func (h *handlers) updatePrediction(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var body predictionBody
	if err := bind(c, &body); err != nil {
		return err
	}
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	pred, err := h.rel.UpdatePrediction(ctx, weather.Prediction{
		PredictionID:  id,
		ObservationID: body.ObservationID,
		WillItRain:    *body.WillItRain,
	})
	if err != nil {
		return err
	}
	return c.JSON(pred)
}

func (h *handlers) deletePrediction(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	if err := h.rel.DeletePrediction(ctx, id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// --- Document endpoints ({message, data} envelopes) ---

func rainStatus(willItRain bool) string {
	if willItRain {
		return "rain expected"
	}
	return "no rain expected"
}

func (h *handlers) mongoCreateLocation(c *fiber.Ctx) error {
	var body locationBody
	if err := bind(c, &body); err != nil {
		return err
	}
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	loc, err := h.docs.CreateLocation(ctx, weather.Location{Name: body.Name, State: body.State})
	if err != nil {
		return err
	}
	return c.JSON(envelope{
		Message: fmt.Sprintf("Location '%s' created successfully with ID %d", loc.Name, loc.LocationID),
		Data:    loc,
	})
}

func (h *handlers) mongoListLocations(c *fiber.Ctx) error {
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	locs, err := h.docs.ListLocations(ctx)
	if err != nil {
		return err
	}
	return c.JSON(envelope{
		Message: fmt.Sprintf("Found %d locations", len(locs)),
		Data:    locs,
	})
}

func (h *handlers) mongoGetLocation(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	loc, err := h.docs.GetLocation(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(envelope{
		Message: fmt.Sprintf("Location found: %s", loc.Name),
		Data:    loc,
	})
}

func (h *handlers) mongoUpdateLocation(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var body locationBody
	if err := bind(c, &body); err != nil {
		return err
	}
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	loc, err := h.docs.UpdateLocation(ctx, id, weather.Location{Name: body.Name, State: body.State})
	if err != nil {
		return err
	}
	return c.JSON(envelope{
		Message: fmt.Sprintf("Location %d updated successfully", id),
		Data:    loc,
	})
}

func (h *handlers) mongoDeleteLocation(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	loc, err := h.docs.DeleteLocation(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(envelope{
		Message: fmt.Sprintf("Location '%s' (ID: %d) deleted successfully", loc.Name, id),
		Data:    nil,
	})
}

func (h *handlers) mongoCreateObservation(c *fiber.Ctx) error {
	obs, err := bindObservation(c)
	if err != nil {
		return err
	}
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	created, err := h.docs.CreateObservation(ctx, obs)
	if err != nil {
		return err
	}
	return c.JSON(envelope{
		Message: fmt.Sprintf("Weather observation created successfully with ID %d", created.ObservationID),
		Data:    created,
	})
}

func (h *handlers) mongoListObservations(c *fiber.Ctx) error {
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	obs, err := h.docs.ListObservations(ctx)
	if err != nil {
		return err
	}
	return c.JSON(envelope{
		Message: fmt.Sprintf("Found %d weather observations", len(obs)),
		Data:    obs,
	})
}

func (h *handlers) mongoGetObservation(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	obs, err := h.docs.GetObservation(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(envelope{
		Message: fmt.Sprintf("Found observation for location %d on %s",
			obs.LocationID, obs.Date.Format("2006-01-02")),
		Data: obs,
	})
}

func (h *handlers) mongoUpdateObservation(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	obs, err := bindObservation(c)
	if err != nil {
		return err
	}
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	updated, err := h.docs.UpdateObservation(ctx, id, obs)
	if err != nil {
		return err
	}
	return c.JSON(envelope{
		Message: fmt.Sprintf("Weather observation %d updated successfully", id),
		Data:    updated,
	})
}

func (h *handlers) mongoDeleteObservation(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	obs, err := h.docs.DeleteObservation(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(envelope{
		Message: fmt.Sprintf("Weather observation %d (Location: %d, Date: %s) deleted successfully",
			id, obs.LocationID, obs.Date.Format("2006-01-02")),
		Data: nil,
	})
}

func (h *handlers) mongoCreatePrediction(c *fiber.Ctx) error {
	var body predictionBody
	if err := bind(c, &body); err != nil {
		return err
	}
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	pred, err := h.docs.CreatePrediction(ctx, weather.Prediction{
		ObservationID: body.ObservationID,
		WillItRain:    *body.WillItRain,
	})
	if err != nil {
		return err
	}
	return c.JSON(envelope{
		Message: fmt.Sprintf("Created prediction (ID: %d) for location %d: %s",
			pred.PredictionID, pred.LocationID, rainStatus(pred.WillItRain)),
		Data: pred,
	})
}

func (h *handlers) mongoListPredictions(c *fiber.Ctx) error {
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	preds, err := h.docs.ListPredictions(ctx)
	if err != nil {
		return err
	}
	return c.JSON(envelope{
		Message: fmt.Sprintf("Found %d weather predictions", len(preds)),
		Data:    preds,
	})
}

func (h *handlers) mongoGetPrediction(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	pred, err := h.docs.GetPrediction(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(envelope{
		Message: fmt.Sprintf("Found prediction for location %d: %s (made on %s)",
			pred.LocationID, rainStatus(pred.WillItRain), pred.PredictedAt.Format(time.RFC3339)),
		Data: pred,
	})
}

func (h *handlers) mongoUpdatePrediction(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var body predictionBody
	if err := bind(c, &body); err != nil {
		return err
	}
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	pred, err := h.docs.UpdatePrediction(ctx, id, weather.Prediction{
		ObservationID: body.ObservationID,
		WillItRain:    *body.WillItRain,
	})
	if err != nil {
		return err
	}
	return c.JSON(envelope{
		Message: fmt.Sprintf("Updated prediction %d: %s", id, rainStatus(pred.WillItRain)),
		Data:    pred,
	})
}

func (h *handlers) mongoDeletePrediction(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	pred, err := h.docs.DeletePrediction(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(envelope{
		Message: fmt.Sprintf("Deleted prediction %d (Location: %d, %s, made on %s)",
			id, pred.LocationID, rainStatus(pred.WillItRain), pred.PredictedAt.Format(time.RFC3339)),
		Data: nil,
	})
}

package predict

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// Outcome is the result of one prediction run.
type Outcome struct {
	ObservationID int
	WillItRain    bool
	Probability   float64
	// PredictionID is set when the outcome was posted back to the API.
	PredictionID int
}

// Runner fetches the latest observation, scores it and optionally records
// the result as a prediction through the API.
type Runner struct {
	client *Client
	model  *Model

	// Post controls whether the outcome is written back as a prediction.
	Post bool
}

// NewRunner creates a Runner.
func NewRunner(client *Client, model *Model) *Runner {
	return &Runner{client: client, model: model}
}

// RunOnce performs a single fetch-score-report cycle.
func (r *Runner) RunOnce(ctx context.Context) (Outcome, error) {
	obs, err := r.client.LatestObservation(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("fetch latest observation: %w", err)
	}

	features, missing := Features(obs)
	if len(missing) > 0 {
		return Outcome{}, fmt.Errorf("observation %d is missing feature data for %s",
			obs.ObservationID, strings.Join(missing, ", "))
	}

	outcome := Outcome{
		ObservationID: obs.ObservationID,
		Probability:   r.model.Probability(features),
	}
	outcome.WillItRain = outcome.Probability >= 0.5

	answer := "No"
	if outcome.WillItRain {
		answer = "Yes"
	}
	log.Printf("prediction for observation %d (Rain Tomorrow): %s (p=%.3f)",
		obs.ObservationID, answer, outcome.Probability)

	if r.Post {
		pred, err := r.client.PostPrediction(ctx, obs.ObservationID, outcome.WillItRain)
		if err != nil {
			return Outcome{}, fmt.Errorf("post prediction: %w", err)
		}
		outcome.PredictionID = pred.PredictionID
		log.Printf("recorded prediction %d for location %d", pred.PredictionID, pred.LocationID)
	}

	return outcome, nil
}

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/yourusername/podium/internal/models"
	"github.com/yourusername/podium/internal/odds"
	"github.com/yourusername/podium/internal/service"
	"github.com/yourusername/podium/internal/simulation"
)

const (
	maxBodyBytes = 1 << 20
	// defaultTop is the number of tuple rows returned when the caller sets none.
	defaultTop = 20
)

// SelectionRequest is one market price submitted for value screening.
type SelectionRequest struct {
	Market string   `json:"market" validate:"required,oneof=win place exacta trifecta quinella trio wide"`
	IDs    []string `json:"ids" validate:"required,min=1,max=3,dive,required"`
	Odds   string   `json:"odds" validate:"required"`
}

// SimulateRequest is the body of POST /api/v1/simulate.
type SimulateRequest struct {
	RaceID      string                  `json:"race_id"`
	Competitors []simulation.Competitor `json:"competitors" validate:"required,min=2,dive"`
	Mode        string                  `json:"mode" validate:"omitempty,oneof=logits weights"`
	Trials      int                     `json:"trials" validate:"gte=0"`
	Depth       int                     `json:"depth" validate:"gte=0"`
	Seed        int64                   `json:"seed"`
	Top         int                     `json:"top" validate:"gte=0"`
	Odds        []SelectionRequest      `json:"odds" validate:"omitempty,dive"`
	Threshold   string                  `json:"threshold"`
}

// OrderedRow is an ordered finishing tuple with its closed-form probability.
type OrderedRow struct {
	simulation.TupleRow
	Exact float64 `json:"exact"`
}

// Tables is the tabular part of simulation and prediction responses.
type Tables struct {
	Metadata  simulation.Metadata        `json:"metadata"`
	Win       []simulation.CompetitorRow `json:"win"`
	Place     []simulation.CompetitorRow `json:"place"`
	Ordered   []OrderedRow               `json:"ordered"`
	Unordered []simulation.TupleRow      `json:"unordered"`
	Pairs     []simulation.TupleRow      `json:"pairs"`
}

// SimulateResponse is the body returned by POST /api/v1/simulate.
type SimulateResponse struct {
	Tables
	ValueBets []odds.ValueBet `json:"value_bets,omitempty"`
}

// PredictionResponse is the body returned by GET /api/v1/races/{race_id}/prediction.
type PredictionResponse struct {
	RaceID       string            `json:"race_id"`
	Race         *models.Race      `json:"race,omitempty"`
	Names        map[string]string `json:"names"`
	ModelVersion string            `json:"model_version,omitempty"`
	Cached       bool              `json:"cached"`
	GeneratedAt  time.Time         `json:"generated_at"`
	Tables
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var body SimulateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if err := s.validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	book, threshold, err := parseBook(body.Odds, body.Threshold)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	result, err := s.predictor.SimulateCompetitors(r.Context(), simulation.Request{
		RaceID:      body.RaceID,
		Competitors: body.Competitors,
		Mode:        simulation.ScoreMode(body.Mode),
		Trials:      body.Trials,
		Depth:       body.Depth,
		Seed:        body.Seed,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	resp := SimulateResponse{Tables: buildTables(result, body.Top)}
	if len(book) > 0 {
		bets, err := odds.ValueBets(result, book, threshold)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		resp.ValueBets = bets
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePrediction(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := service.PredictRequest{Race: r.PathValue("race_id")}

	var err error
	if v := q.Get("mode"); v != "" {
		if req.Mode, err = simulation.ParseScoreMode(v); err != nil {
			s.writeDomainError(w, r, err)
			return
		}
	}
	if req.Trials, err = intParam(q.Get("trials"), "trials"); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if req.Depth, err = intParam(q.Get("depth"), "depth"); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	top, err := intParam(q.Get("top"), "top")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if v := q.Get("seed"); v != "" {
		if req.Seed, err = strconv.ParseInt(v, 10, 64); err != nil {
			s.writeDomainError(w, r, simulation.NewInvalidInputError("seed", "must be an integer"))
			return
		}
	}

	prediction, err := s.predictor.PredictRace(r.Context(), req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, PredictionResponse{
		RaceID:       prediction.RaceID,
		Race:         prediction.Race,
		Names:        prediction.Names,
		ModelVersion: prediction.ModelVersion,
		Cached:       prediction.Cached,
		GeneratedAt:  prediction.GeneratedAt,
		Tables:       buildTables(prediction.Result, top),
	})
}

// buildTables trims tuple tables to top rows and attaches exact ordered probabilities.
func buildTables(result *simulation.Result, top int) Tables {
	if top <= 0 {
		top = defaultTop
	}

	ordered := result.Ordered.Top(top)
	rows := make([]OrderedRow, len(ordered))
	dist := result.Distribution()
	for i, row := range ordered {
		rows[i] = OrderedRow{TupleRow: row}
		if dist != nil {
			rows[i].Exact, _ = simulation.OrderProbability(dist, row.IDs...)
		}
	}

	return Tables{
		Metadata:  result.Metadata,
		Win:       result.Win.Sorted(),
		Place:     result.Place.Sorted(),
		Ordered:   rows,
		Unordered: result.Unordered.Top(top),
		Pairs:     result.Pairs.Top(top),
	}
}

func parseBook(selections []SelectionRequest, thresholdParam string) ([]odds.Selection, decimal.Decimal, error) {
	threshold := odds.DefaultThreshold
	if thresholdParam != "" {
		t, err := decimal.NewFromString(thresholdParam)
		if err != nil || !t.IsPositive() {
			return nil, decimal.Zero, simulation.NewInvalidInputError("threshold", "must be a positive decimal")
		}
		threshold = t
	}

	book := make([]odds.Selection, 0, len(selections))
	for _, sel := range selections {
		price, err := odds.ParseOdds(sel.Odds)
		if err != nil {
			return nil, decimal.Zero, err
		}
		book = append(book, odds.Selection{Market: odds.Market(sel.Market), IDs: sel.IDs, Odds: price})
	}
	return book, threshold, nil
}

func intParam(v, field string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, simulation.NewInvalidInputError(field, "must be a non-negative integer")
	}
	return n, nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	return fmt.Sprintf("validation failed: %s failed on %s", fe.Namespace(), fe.Tag())
}

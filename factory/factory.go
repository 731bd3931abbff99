/*
Package factory converts YAML deal definitions into engine types.

PURPOSE:
  The deal configuration collaborator: everything immutable about a deal -
  schedule parameters, tranche definitions, fee definitions, trigger
  thresholds, reinvestment curve sets, waterfall variant selection - is
  declared in one YAML document and assembled here into engine.DealParams.
  Structuring analysts edit YAML; no code changes per deal.

VALIDATION:
  Malformed definitions surface as engine.ConfigurationError before any
  period runs. The factory never applies silent defaults to economic
  fields; only mechanical ones (day counts, conventions) have defaults.

SEE ALSO:
  - engine/deal.go: DealParams and the orchestrator
  - structures/: the waterfall variants selected by `waterfall.variant`
*/
package factory

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/warp/cashflow-engine/engine"
	"github.com/warp/cashflow-engine/pool"
	"github.com/warp/cashflow-engine/structures"
)

// =============================================================================
// YAML DEFINITION
// =============================================================================

type Definition struct {
	Name string `yaml:"name"`

	Schedule struct {
		Closing                 string `yaml:"closing"`
		FirstPayment            string `yaml:"first_payment"`
		Maturity                string `yaml:"maturity"`
		IntervalMonths          int    `yaml:"interval_months"`
		PaymentDay              int    `yaml:"payment_day"`
		Convention              string `yaml:"convention"`
		Stub                    string `yaml:"stub"`
		DeterminationOffsetDays int    `yaml:"determination_offset_days"`
	} `yaml:"schedule"`

	ReferenceRate float64 `yaml:"reference_rate"`

	Tranches []TrancheDef `yaml:"tranches"`
	Fees     []FeeDef     `yaml:"fees"`

	Triggers struct {
		OC TriggerDef `yaml:"oc"`
		IC TriggerDef `yaml:"ic"`
	} `yaml:"triggers"`

	Reinvestment struct {
		End              string    `yaml:"end"`
		Percentage       float64   `yaml:"percentage"`
		Category         string    `yaml:"category"`
		PostPercentage   float64   `yaml:"post_percentage"`
		PostCategory     string    `yaml:"post_category"`
		Coupon           float64   `yaml:"coupon"`
		DayCount         string    `yaml:"day_count"`
		PrepayCurve      []float64 `yaml:"prepay_curve"`
		DefaultCurve     []float64 `yaml:"default_curve"`
		SeverityCurve    []float64 `yaml:"severity_curve"`
		LiquidationPrice float64   `yaml:"liquidation_price"`
	} `yaml:"reinvestment"`

	Waterfall struct {
		Variant                string  `yaml:"variant"`
		ReserveAccount         string  `yaml:"reserve_account"`
		ReserveTarget          float64 `yaml:"reserve_target"`
		GateReinvestOnCoverage bool    `yaml:"gate_reinvest_on_coverage"`
		CatchupShare           float64 `yaml:"catchup_share"`
		Tier                   struct {
			Window             int     `yaml:"window"`
			PeriodsPerYear     int     `yaml:"periods_per_year"`
			DeferralThreshold  float64 `yaml:"deferral_threshold"`
			IncentiveThreshold float64 `yaml:"incentive_threshold"`
			IncentiveShare     float64 `yaml:"incentive_share"`
		} `yaml:"tier"`
	} `yaml:"waterfall"`

	LiquidationFloor float64 `yaml:"liquidation_floor"`

	Equity struct {
		Notional   float64 `yaml:"notional"`
		HurdleRate float64 `yaml:"hurdle_rate"`
	} `yaml:"equity"`

	Pool struct {
		InitialPar      float64 `yaml:"initial_par"`
		WAC             float64 `yaml:"wac"`
		DayCount        string  `yaml:"day_count"`
		ScheduledRate   float64 `yaml:"scheduled_rate"`
		UnscheduledRate float64 `yaml:"unscheduled_rate"`
		DefaultRate     float64 `yaml:"default_rate"`
		Severity        float64 `yaml:"severity"`
		CCCHaircut      float64 `yaml:"ccc_haircut"`
	} `yaml:"pool"`
}

type TrancheDef struct {
	ID                  string  `yaml:"id"`
	Name                string  `yaml:"name"`
	Seniority           int     `yaml:"seniority"`
	Balance             float64 `yaml:"balance"`
	Coupon              float64 `yaml:"coupon"`
	SpreadOverReference bool    `yaml:"spread_over_reference"`
	DayCount            string  `yaml:"day_count"`
	PIK                 bool    `yaml:"pik"`
	Equity              bool    `yaml:"equity"`
}

type FeeDef struct {
	ID               string  `yaml:"id"`
	Name             string  `yaml:"name"`
	Basis            string  `yaml:"basis"`
	Rate             float64 `yaml:"rate"`
	FixedAmount      float64 `yaml:"fixed_amount"`
	DayCount         string  `yaml:"day_count"`
	InterestOnUnpaid bool    `yaml:"interest_on_unpaid"`
	Spread           float64 `yaml:"spread"`
	Senior           bool    `yaml:"senior"`
	Deferrable       bool    `yaml:"deferrable"`
}

type TriggerDef struct {
	Threshold       float64 `yaml:"threshold"`
	ZeroDenominator string  `yaml:"zero_denominator"`
}

// Load reads and parses a deal definition file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read deal definition: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML deal definition.
func Parse(data []byte) (*Definition, error) {
	def := &Definition{}
	if err := yaml.Unmarshal(data, def); err != nil {
		return nil, fmt.Errorf("parse deal definition: %w", err)
	}
	return def, nil
}

// =============================================================================
// BUILDING
// =============================================================================

// Build assembles DealParams (minus Pool and Logger, which the caller
// supplies) from a definition.
func Build(def *Definition) (engine.DealParams, error) {
	var params engine.DealParams
	params.Name = def.Name

	schedule, err := buildSchedule(def)
	if err != nil {
		return params, err
	}
	params.Schedule = schedule

	state, err := buildState(def)
	if err != nil {
		return params, err
	}
	params.State = state

	blueprint := buildBlueprint(def, state)
	structure, err := buildStructure(def, blueprint)
	if err != nil {
		return params, err
	}
	params.Structure = structure
	params.Liquidation = structures.NewLiquidation(blueprint)
	params.Rates = engine.ConstantRate{Rate: engine.RateFromFloat(def.ReferenceRate)}
	params.LiquidationFloor = engine.RateFromFloat(def.LiquidationFloor)
	return params, nil
}

// BuildPool constructs the synthetic asset pool declared in the definition.
func BuildPool(def *Definition) *pool.Static {
	p := pool.NewStatic(
		engine.NewAmount(def.Pool.InitialPar),
		engine.RateFromFloat(def.Pool.WAC),
		parseDayCount(def.Pool.DayCount),
	)
	p.ScheduledRate = engine.RateFromFloat(def.Pool.ScheduledRate)
	p.UnscheduledRate = engine.RateFromFloat(def.Pool.UnscheduledRate)
	p.DefaultRate = engine.RateFromFloat(def.Pool.DefaultRate)
	p.Severity = engine.RateFromFloat(def.Pool.Severity)
	p.CCCHaircut = engine.NewAmount(def.Pool.CCCHaircut)
	return p
}

func buildSchedule(def *Definition) ([]engine.Period, error) {
	closing, err := parseDate("schedule.closing", def.Schedule.Closing)
	if err != nil {
		return nil, err
	}
	first, err := parseDate("schedule.first_payment", def.Schedule.FirstPayment)
	if err != nil {
		return nil, err
	}
	maturity, err := parseDate("schedule.maturity", def.Schedule.Maturity)
	if err != nil {
		return nil, err
	}

	stub := engine.StubReject
	if def.Schedule.Stub == "short_final" {
		stub = engine.StubShortFinal
	}

	return engine.BuildSchedule(engine.ScheduleConfig{
		Closing:                 closing,
		FirstPayment:            first,
		Maturity:                maturity,
		IntervalMonths:          def.Schedule.IntervalMonths,
		PaymentDay:              def.Schedule.PaymentDay,
		Convention:              parseConvention(def.Schedule.Convention),
		Calendar:                engine.WeekendCalendar{},
		Stub:                    stub,
		DeterminationOffsetDays: def.Schedule.DeterminationOffsetDays,
	})
}

func buildState(def *Definition) (*engine.DealState, error) {
	if len(def.Tranches) == 0 {
		return nil, &engine.ConfigurationError{Field: "tranches", Detail: "at least one tranche is required"}
	}

	state := engine.NewDealState()

	for _, td := range def.Tranches {
		if td.ID == "" {
			return nil, &engine.ConfigurationError{Field: "tranches", Detail: "tranche with empty id"}
		}
		state.AddTranche(&engine.Tranche{
			ID:                  engine.TrancheID(td.ID),
			Name:                td.Name,
			Seniority:           td.Seniority,
			Balance:             engine.NewAmount(td.Balance),
			Coupon:              engine.RateFromFloat(td.Coupon),
			SpreadOverReference: td.SpreadOverReference,
			DayCount:            parseDayCount(td.DayCount),
			InterestDue:         engine.ZeroAmount(),
			PIKBalance:          engine.ZeroAmount(),
			IsEquity:            td.Equity,
		})
	}

	for _, fd := range def.Fees {
		if fd.ID == "" {
			return nil, &engine.ConfigurationError{Field: "fees", Detail: "fee with empty id"}
		}
		fee := engine.NewFee(
			engine.FeeID(fd.ID), fd.Name,
			parseBasis(fd.Basis),
			engine.RateFromFloat(fd.Rate),
			parseDayCount(fd.DayCount),
		)
		fee.FixedAmount = engine.NewAmount(fd.FixedAmount)
		fee.InterestOnUnpaid = fd.InterestOnUnpaid
		fee.Spread = engine.RateFromFloat(fd.Spread)
		fee.Deferrable = fd.Deferrable
		state.AddFee(fee)
	}

	if def.Triggers.OC.Threshold <= 0 || def.Triggers.IC.Threshold <= 0 {
		return nil, &engine.ConfigurationError{Field: "triggers", Detail: "OC and IC thresholds must be positive"}
	}
	state.OC = engine.NewOCTrigger("oc", engine.RateFromFloat(def.Triggers.OC.Threshold), parseZeroPolicy(def.Triggers.OC.ZeroDenominator))
	state.IC = engine.NewICTrigger("ic", engine.RateFromFloat(def.Triggers.IC.Threshold), parseZeroPolicy(def.Triggers.IC.ZeroDenominator))

	if def.Reinvestment.End != "" {
		end, err := parseDate("reinvestment.end", def.Reinvestment.End)
		if err != nil {
			return nil, err
		}
		state.ReinvestPolicy = engine.ReinvestmentPolicy{
			ReinvestmentEnd: end,
			Percentage:      engine.RateFromFloat(def.Reinvestment.Percentage),
			Category:        parseCategory(def.Reinvestment.Category),
			PostPercentage:  engine.RateFromFloat(def.Reinvestment.PostPercentage),
			PostCategory:    parseCategory(def.Reinvestment.PostCategory),
		}
		state.LotCoupon = engine.RateFromFloat(def.Reinvestment.Coupon)
		state.LotDayCount = parseDayCount(def.Reinvestment.DayCount)
		if err := checkCurve("reinvestment.prepay_curve", def.Reinvestment.PrepayCurve, 0); err != nil {
			return nil, err
		}
		if err := checkCurve("reinvestment.default_curve", def.Reinvestment.DefaultCurve, 0); err != nil {
			return nil, err
		}
		if err := checkCurve("reinvestment.severity_curve", def.Reinvestment.SeverityCurve, 1); err != nil {
			return nil, err
		}
		state.LotPrepayCurve = rates(def.Reinvestment.PrepayCurve)
		state.LotDefaultCurve = rates(def.Reinvestment.DefaultCurve)
		state.LotSeverityCurve = rates(def.Reinvestment.SeverityCurve)
		if def.Reinvestment.LiquidationPrice > 0 {
			state.LiquidationPrice = engine.RateFromFloat(def.Reinvestment.LiquidationPrice)
		}
	}

	state.EquityNotional = engine.NewAmount(def.Equity.Notional)
	state.HurdleRate = engine.RateFromFloat(def.Equity.HurdleRate)

	if def.Waterfall.ReserveAccount != "" {
		state.AddAccount(engine.NewAccount(def.Waterfall.ReserveAccount, engine.AccountReserve))
	}
	return state, nil
}

func buildBlueprint(def *Definition, state *engine.DealState) structures.Blueprint {
	b := structures.Blueprint{
		ReserveAccount:         def.Waterfall.ReserveAccount,
		ReserveTarget:          engine.NewAmount(def.Waterfall.ReserveTarget),
		GateReinvestOnCoverage: def.Waterfall.GateReinvestOnCoverage,
	}
	for _, fd := range def.Fees {
		if fd.Senior {
			b.SeniorFees = append(b.SeniorFees, engine.FeeID(fd.ID))
		} else {
			b.SubordinateFees = append(b.SubordinateFees, engine.FeeID(fd.ID))
		}
	}
	for _, td := range def.Tranches {
		if td.PIK {
			b.PIKTranches = append(b.PIKTranches, engine.TrancheID(td.ID))
		}
	}
	return b.WithTranchesFrom(state)
}

func buildStructure(def *Definition, b structures.Blueprint) (engine.Structure, error) {
	switch def.Waterfall.Variant {
	case "", "sequential":
		return structures.NewSequential(b), nil
	case "turbo":
		return structures.NewTurbo(b), nil
	case "pik":
		return structures.NewPIK(b), nil
	case "clawback":
		return structures.NewClawback(b, engine.RateFromFloat(def.Waterfall.CatchupShare)), nil
	case "tiered":
		t := def.Waterfall.Tier
		return structures.NewTiered(b,
			t.Window, t.PeriodsPerYear,
			engine.RateFromFloat(t.DeferralThreshold),
			engine.RateFromFloat(t.IncentiveThreshold),
			engine.RateFromFloat(t.IncentiveShare),
		), nil
	default:
		return nil, &engine.ConfigurationError{
			Field:  "waterfall.variant",
			Detail: fmt.Sprintf("unknown variant %q", def.Waterfall.Variant),
		}
	}
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseDate(field, s string) (engine.Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return engine.Date{}, &engine.ConfigurationError{Field: field, Detail: "want YYYY-MM-DD, got " + s}
	}
	return engine.DateFromTime(t), nil
}

func parseDayCount(s string) engine.DayCount {
	switch s {
	case "ACT/360":
		return engine.Act360
	case "ACT/365":
		return engine.Act365
	default:
		return engine.Thirty360
	}
}

func parseConvention(s string) engine.BusinessDayConvention {
	switch s {
	case "following":
		return engine.ConventionFollowing
	case "modified_following":
		return engine.ConventionModifiedFollowing
	default:
		return engine.ConventionUnadjusted
	}
}

func parseBasis(s string) engine.FeeBasis {
	switch s {
	case "average_balance":
		return engine.BasisAverage
	case "fixed":
		return engine.BasisFixed
	default:
		return engine.BasisBeginning
	}
}

func parseCategory(s string) engine.PrincipalCategory {
	if s == "unscheduled_only" {
		return engine.CategoryUnscheduled
	}
	return engine.CategoryAllPrincipal
}

func parseZeroPolicy(s string) engine.ZeroDenominatorPolicy {
	if s == "error" {
		return engine.ZeroDenomError
	}
	return engine.ZeroDenomPass
}

// checkCurve rejects negative curve points. A positive max bounds the
// points from above as well (severity is a fraction of par).
func checkCurve(field string, points []float64, max float64) error {
	for i, p := range points {
		if p < 0 {
			return &engine.ConfigurationError{
				Field:  field,
				Detail: fmt.Sprintf("point %d is negative", i),
			}
		}
		if max > 0 && p > max {
			return &engine.ConfigurationError{
				Field:  field,
				Detail: fmt.Sprintf("point %d exceeds %g", i, max),
			}
		}
	}
	return nil
}

func rates(vs []float64) []engine.Rate {
	out := make([]engine.Rate, 0, len(vs))
	for _, v := range vs {
		out = append(out, engine.RateFromFloat(v))
	}
	return out
}

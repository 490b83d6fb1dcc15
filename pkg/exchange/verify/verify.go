// Package verify audits stored rates for inversion consistency and checks
// that well-known pairs resolve and convert.
package verify

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/amirasaad/fxrates/pkg/exchange/core"
)

// DefaultTolerance is the accepted deviation of r(A,B)*r(B,A) from 1.
const DefaultTolerance = 0.01

// DefaultPairs are resolved by Run.
var DefaultPairs = [][2]string{
	{"BTC", "PHP"},
	{"ADA", "BTC"},
	{"USD", "PHP"},
	{"ETH", "USD"},
}

// ConversionCase is one sample conversion checked by Run.
type ConversionCase struct {
	Amount float64
	From   string
	To     string
}

// DefaultConversions are converted by Run.
var DefaultConversions = []ConversionCase{
	{Amount: 1, From: "BTC", To: "ADA"},
	{Amount: 1000, From: "USD", To: "PHP"},
	{Amount: 1, From: "ETH", To: "PHP"},
}

// PairLister lists stored pairs.
type PairLister interface {
	ListAll(ctx context.Context) ([]core.RatePair, error)
}

// RateResolver resolves a pair.
type RateResolver interface {
	Resolve(ctx context.Context, from, to string) (core.ResolvedRate, error)
}

// AmountConverter converts an amount.
type AmountConverter interface {
	Convert(ctx context.Context, amount float64, from, to string) (core.ConversionResult, error)
}

// Mismatch is a stored pair whose reverse row disagrees with it.
type Mismatch struct {
	From    string  `json:"from"`
	To      string  `json:"to"`
	Rate    float64 `json:"rate"`
	Reverse float64 `json:"reverse"`
	Product float64 `json:"product"`
}

// ConsistencyReport summarises a scan of the stored pairs.
type ConsistencyReport struct {
	Checked    int        `json:"checked"`
	Consistent int        `json:"consistent"`
	Mismatches []Mismatch `json:"mismatches,omitempty"`
	// OneWay lists pairs without a stored reverse row. They are served by
	// inversion and are not an error.
	OneWay  []string `json:"one_way,omitempty"`
	Corrupt []string `json:"corrupt,omitempty"`
}

// OK reports whether no stored pair violates the inversion invariant.
func (r ConsistencyReport) OK() bool {
	return len(r.Mismatches) == 0 && len(r.Corrupt) == 0
}

// PairCheck is the outcome of resolving one pair.
type PairCheck struct {
	From     string    `json:"from"`
	To       string    `json:"to"`
	Rate     float64   `json:"rate,omitempty"`
	PathUsed core.Path `json:"path_used,omitempty"`
	Inverted bool      `json:"is_inverted"`
	Error    string    `json:"error,omitempty"`
}

// ConversionCheck is the outcome of one sample conversion.
type ConversionCheck struct {
	Case   ConversionCase         `json:"case"`
	Result *core.ConversionResult `json:"result,omitempty"`
	Error  string                 `json:"error,omitempty"`
}

// Report is the full verification output.
type Report struct {
	Consistency ConsistencyReport `json:"consistency"`
	Pairs       []PairCheck       `json:"pairs"`
	Conversions []ConversionCheck `json:"conversions"`
}

// OK reports whether the stored data is consistent and at least one sample
// pair resolved.
func (r Report) OK() bool {
	if !r.Consistency.OK() {
		return false
	}
	for _, p := range r.Pairs {
		if p.Error == "" {
			return true
		}
	}
	return len(r.Pairs) == 0
}

// Verifier runs the checks.
type Verifier struct {
	store     PairLister
	resolver  RateResolver
	converter AmountConverter
	logger    *slog.Logger
}

// New creates a Verifier.
func New(store PairLister, resolver RateResolver, converter AmountConverter, logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{
		store:     store,
		resolver:  resolver,
		converter: converter,
		logger:    logger.With("component", "verifier"),
	}
}

// Consistency checks every stored pair against its stored reverse.
// A non-positive tolerance means DefaultTolerance.
func (v *Verifier) Consistency(ctx context.Context, tolerance float64) (ConsistencyReport, error) {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	pairs, err := v.store.ListAll(ctx)
	if err != nil {
		return ConsistencyReport{}, fmt.Errorf("list pairs: %w", err)
	}

	byKey := make(map[string]core.RatePair, len(pairs))
	for _, p := range pairs {
		byKey[p.Key()] = p
	}

	var rep ConsistencyReport
	for _, p := range pairs {
		rep.Checked++
		if !core.ValidRate(p.Rate) {
			rep.Corrupt = append(rep.Corrupt, p.Key())
			continue
		}
		rev, ok := byKey[p.To+":"+p.From]
		if !ok {
			rep.OneWay = append(rep.OneWay, p.Key())
			rep.Consistent++
			continue
		}
		product := p.Rate * rev.Rate
		if math.Abs(product-1) < tolerance {
			rep.Consistent++
			continue
		}
		rep.Mismatches = append(rep.Mismatches, Mismatch{
			From: p.From, To: p.To, Rate: p.Rate, Reverse: rev.Rate, Product: product,
		})
		v.logger.Warn("inversion mismatch", "from", p.From, "to", p.To, "product", product)
	}
	return rep, nil
}

// ResolvePairs resolves each pair and records the outcome.
func (v *Verifier) ResolvePairs(ctx context.Context, pairs [][2]string) []PairCheck {
	out := make([]PairCheck, 0, len(pairs))
	for _, p := range pairs {
		check := PairCheck{From: p[0], To: p[1]}
		rr, err := v.resolver.Resolve(ctx, p[0], p[1])
		if err != nil {
			check.Error = err.Error()
		} else {
			check.Rate = rr.Rate
			check.PathUsed = rr.PathUsed
			check.Inverted = rr.IsInverted
		}
		out = append(out, check)
	}
	return out
}

// Convert runs each sample conversion.
func (v *Verifier) Convert(ctx context.Context, cases []ConversionCase) []ConversionCheck {
	out := make([]ConversionCheck, 0, len(cases))
	for _, c := range cases {
		check := ConversionCheck{Case: c}
		res, err := v.converter.Convert(ctx, c.Amount, c.From, c.To)
		if err != nil {
			check.Error = err.Error()
		} else {
			check.Result = &res
		}
		out = append(out, check)
	}
	return out
}

// Run performs every check with the default pairs and tolerance.
func (v *Verifier) Run(ctx context.Context) (Report, error) {
	cons, err := v.Consistency(ctx, DefaultTolerance)
	if err != nil {
		return Report{}, err
	}
	rep := Report{
		Consistency: cons,
		Pairs:       v.ResolvePairs(ctx, DefaultPairs),
	}
	if v.converter != nil {
		rep.Conversions = v.Convert(ctx, DefaultConversions)
	}
	v.logger.Info("verification finished",
		"checked", cons.Checked, "consistent", cons.Consistent,
		"mismatches", len(cons.Mismatches), "one_way", len(cons.OneWay), "ok", rep.OK())
	return rep, nil
}

package agent

import (
	"math/rand"
	"sort"

	"SwarmFund/internal/model"
)

// Method is one concrete way a strategy generates value, with its expected
// value band.
type Method struct {
	Name     string
	Kind     model.StrategyKind
	MinValue float64
	MaxValue float64
}

// ExpectedValue is the midpoint of the method's value band, used for
// ranking candidates.
func (m Method) ExpectedValue() float64 {
	return (m.MinValue + m.MaxValue) / 2
}

// Catalogue maps each strategy kind to its known methods.
var Catalogue = map[model.StrategyKind][]Method{
	model.StrategyFreelance: {
		{Name: "gig_automation", Kind: model.StrategyFreelance, MinValue: 5, MaxValue: 50},
		{Name: "proposal_bidding", Kind: model.StrategyFreelance, MinValue: 20, MaxValue: 200},
		{Name: "content_writing", Kind: model.StrategyFreelance, MinValue: 10, MaxValue: 100},
	},
	model.StrategyAffiliate: {
		{Name: "marketplace_referral", Kind: model.StrategyAffiliate, MinValue: 1, MaxValue: 50},
		{Name: "offer_network", Kind: model.StrategyAffiliate, MinValue: 5, MaxValue: 100},
		{Name: "partner_program", Kind: model.StrategyAffiliate, MinValue: 10, MaxValue: 200},
	},
	model.StrategyDigitalProduct: {
		{Name: "template_sales", Kind: model.StrategyDigitalProduct, MinValue: 5, MaxValue: 50},
		{Name: "stock_assets", Kind: model.StrategyDigitalProduct, MinValue: 1, MaxValue: 20},
		{Name: "printables", Kind: model.StrategyDigitalProduct, MinValue: 2, MaxValue: 30},
	},
	model.StrategyServiceResale: {
		{Name: "seo_services", Kind: model.StrategyServiceResale, MinValue: 50, MaxValue: 500},
		{Name: "hosting_resale", Kind: model.StrategyServiceResale, MinValue: 10, MaxValue: 100},
		{Name: "domain_flipping", Kind: model.StrategyServiceResale, MinValue: 20, MaxValue: 1000},
	},
	model.StrategyAIService: {
		{Name: "content_generation", Kind: model.StrategyAIService, MinValue: 10, MaxValue: 100},
		{Name: "data_analysis", Kind: model.StrategyAIService, MinValue: 50, MaxValue: 500},
		{Name: "image_generation", Kind: model.StrategyAIService, MinValue: 5, MaxValue: 50},
	},
}

// topK bounds the candidate pool for method selection. Picking randomly
// among the leaders keeps the pool from converging on a single method.
const topK = 3

// MethodsFor returns the catalogue for a kind. Unknown kinds get the full
// catalogue, which is what the generic strategy executes against.
func MethodsFor(kind model.StrategyKind) []Method {
	if methods, ok := Catalogue[kind]; ok {
		return methods
	}
	all := make([]Method, 0, len(Catalogue)*3)
	for _, ks := range model.KnownStrategies() {
		all = append(all, Catalogue[ks]...)
	}
	return all
}

// SelectMethod ranks the kind's methods by expected value and picks
// pseudo-randomly among the top candidates. The second return is false when
// no method exists.
func SelectMethod(rng *rand.Rand, kind model.StrategyKind) (Method, bool) {
	candidates := MethodsFor(kind)
	if len(candidates) == 0 {
		return Method{}, false
	}
	ranked := make([]Method, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].ExpectedValue() > ranked[j].ExpectedValue()
	})
	k := topK
	if len(ranked) < k {
		k = len(ranked)
	}
	return ranked[rng.Intn(k)], true
}

// ExpectedReturnRate derives an indicative return rate for a strategy from
// its method catalogue: the mean expected method value scaled against the
// best method's band ceiling.
func ExpectedReturnRate(kind model.StrategyKind) float64 {
	methods := MethodsFor(kind)
	if len(methods) == 0 {
		return 0
	}
	sum, max := 0.0, 0.0
	for _, m := range methods {
		sum += m.ExpectedValue()
		if m.MaxValue > max {
			max = m.MaxValue
		}
	}
	if max == 0 {
		return 0
	}
	return sum / float64(len(methods)) / max
}

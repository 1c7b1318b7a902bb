// Package compile turns one extracted entity into an executable graph
// query: a free-text search string for fuzzy dish matching, a parameter
// mapping, a Cypher statement assembled from fragments keyed by the
// parameters present, and a discriminated intent tag.
package compile

import (
	"strconv"
	"strings"

	"github.com/crave-labs/menugraph/internal/domain"
)

// PlatformName is excluded from restaurant name filtering: it denotes
// the ordering platform, not a restaurant.
const PlatformName = "zomato"

// Compile converts an entity's structured fields into a search string
// and a parameter mapping. The search string concatenates, in fixed
// order, only the fields that are set; each field simultaneously
// populates the matching parameter key. Cypher assembly happens
// separately in Build, after the similarity gate may have attached
// candidate scores.
func Compile(e domain.Entity, tolerance float64) domain.CompiledQuery {
	params := domain.Params{}
	var search strings.Builder

	appendTag := func(tag string) {
		if search.Len() > 0 {
			search.WriteString(", " + tag)
		}
	}

	// Restaurant attributes only populate params, never the search text.
	if e.RestaurantRating.Available {
		params[domain.ParamDeliveryRating] = e.RestaurantRating.Value
	}
	if e.PhoneNumber != "" {
		params[domain.ParamPhoneNumber] = e.PhoneNumber
	}
	if e.Address != "" {
		params[domain.ParamAddress] = strings.ToLower(e.Address)
	}
	if e.Deliverables != "" {
		params[domain.ParamDeliverables] = strings.ToLower(e.Deliverables)
	}

	if e.Flavour != "" {
		search.WriteString(strings.ToLower(e.Flavour))
	}
	if name := strings.ToLower(e.FoodName); name != "" && name != "food" && name != "dish" {
		if search.Len() > 0 {
			search.WriteString(" ")
		}
		search.WriteString(name)
	}
	if e.Bestseller {
		appendTag("bestseller: true")
		params[domain.ParamBestseller] = "true"
	}
	if e.Type != "" && e.Type != domain.FoodUnspecified {
		appendTag("type: " + string(e.Type))
		params[domain.ParamType] = string(e.Type)
	}
	if e.FoodRating.Available {
		appendTag("rating: " + formatNumber(e.FoodRating.Value))
		params[domain.ParamFoodRating] = e.FoodRating.Value
	}
	if e.FoodPrice != 0 {
		appendTag("price: " + formatNumber(e.FoodPrice))
		params[domain.ParamPrice] = e.FoodPrice
		params[domain.ParamTolerance] = tolerance
	}

	if len(e.RestaurantNames) > 0 {
		pairs := make([]any, 0, len(e.RestaurantNames))
		for _, p := range e.RestaurantNames {
			lowered := strings.ToLower(p.Name)
			if lowered == PlatformName {
				continue
			}
			if p.Include {
				appendTag("restaurant_name: " + p.Name)
			}
			pairs = append(pairs, []any{lowered, p.Include})
		}
		if len(pairs) > 0 {
			params[domain.ParamName] = pairs
		}
	}

	if e.Limit > 0 {
		params[domain.ParamLimit] = e.Limit
	}
	if e.OrderBy != nil {
		params[directiveParam(e.OrderBy.Field)] = string(e.OrderBy.Dir)
	}

	intent := computeIntent(e, params)

	// Quantity is attached only when the entity implies a concrete food
	// match: a food filter, a non-empty search text, or a pure top-N
	// request over a food attribute. Never for a pure restaurant query.
	foodTopN := intent.TopNByDirective &&
		e.OrderBy != nil && e.OrderBy.Field != domain.OrderByRestaurantRating
	if e.Quantity > 0 && (foodTopN || search.Len() > 0 || intent.HasFoodFilter) {
		params[domain.ParamQuantity] = e.Quantity
	}

	return domain.CompiledQuery{
		SearchText: search.String(),
		Params:     params,
		Intent:     intent,
	}
}

// computeIntent derives the intent tag from the parameter key set,
// before quantity or similarity scores are attached.
func computeIntent(e domain.Entity, params domain.Params) domain.Intent {
	hasFood := params.Has(domain.ParamPrice) || params.Has(domain.ParamType) ||
		params.Has(domain.ParamFoodRating) || params.Has(domain.ParamBestseller)

	topN := false
	if e.OrderBy != nil && params.Has(domain.ParamLimit) {
		// Exactly {limit, <one directive>}: nothing else set.
		topN = len(params) == 2
	}

	return domain.Intent{
		Directive:       e.OrderBy,
		Limit:           e.Limit,
		HasFoodFilter:   hasFood,
		TopNByDirective: topN,
	}
}

func directiveParam(f domain.OrderField) string {
	switch f {
	case domain.OrderByFoodRating:
		return domain.ParamFoodRatingFilter
	case domain.OrderByFoodPrice:
		return domain.ParamFoodPriceFilter
	default:
		return domain.ParamRestaurantRatingFilter
	}
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

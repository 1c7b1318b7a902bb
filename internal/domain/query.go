package domain

// Graph query parameter keys. The set of keys present on a compiled query
// deterministically selects the query fragments and the result projection.
const (
	ParamDeliveryRating         = "delivery_rating"
	ParamPhoneNumber            = "phone_number"
	ParamAddress                = "address"
	ParamDeliverables           = "deliverables"
	ParamName                   = "name"
	ParamBestseller             = "bestseller"
	ParamType                   = "type"
	ParamFoodRating             = "food_rating"
	ParamPrice                  = "price"
	ParamTolerance              = "tolerance"
	ParamQuantity               = "quantity"
	ParamLimit                  = "limit"
	ParamFoodScores             = "food_scores"
	ParamFoodRatingFilter       = "food_rating_filter"
	ParamFoodPriceFilter        = "food_price_filter"
	ParamRestaurantRatingFilter = "restaurant_rating_filter"
)

// Params is the parameter mapping passed alongside a Cypher statement.
type Params map[string]any

// Has reports whether the key is present.
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Clone returns a shallow copy.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// ProjectionShape identifies which result-column projection a compiled
// query emits. Exactly one shape is selected per query, as a pure
// function of the parameter keys present.
type ProjectionShape int

const (
	ShapeRestaurant ProjectionShape = iota
	ShapeDeliverables
	ShapeQuantity
	ShapeSimilarity
	ShapeQuantityDeliverables
	ShapeSimilarityDeliverables
)

func (s ProjectionShape) String() string {
	switch s {
	case ShapeRestaurant:
		return "restaurant"
	case ShapeDeliverables:
		return "deliverables"
	case ShapeQuantity:
		return "quantity"
	case ShapeSimilarity:
		return "similarity"
	case ShapeQuantityDeliverables:
		return "quantity+deliverables"
	case ShapeSimilarityDeliverables:
		return "similarity+deliverables"
	default:
		return "unknown"
	}
}

// Intent is the discriminated query-intent tag computed once during
// filter compilation. Downstream stages branch on it instead of
// re-deriving intent from parameter key sets.
type Intent struct {
	Shape ProjectionShape

	// TopNByDirective marks a pure "top-N by X" query: a result limit
	// plus exactly one ordering directive and no other filters. The
	// aggregator defers truncation for such queries until after the
	// explicit ordering has been applied.
	TopNByDirective bool

	// HasFoodFilter is set when any concrete food filter
	// (price, type, rating, bestseller) is present.
	HasFoodFilter bool

	Directive *OrderDirective
	Limit     int
}

// CompiledQuery is an executable graph query: Cypher text plus its
// parameter mapping, the free-text search string used for fuzzy dish
// matching, and the intent tag. Built per entity, executed once.
type CompiledQuery struct {
	SearchText string
	Cypher     string
	Params     Params
	Intent     Intent
}

// Scored is an (id, score) pair produced by fuzzy matching.
// Higher scores mean more similar.
type Scored struct {
	ID    string
	Score float64
}

// QAExample is a curated question with its known-good Cypher statement,
// selected into generation prompts as a few-shot example.
type QAExample struct {
	Question string
	Cypher   string
}

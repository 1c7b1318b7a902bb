package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// FoodType is the dietary category of a dish.
type FoodType string

const (
	FoodVeg         FoodType = "veg"
	FoodNonVeg      FoodType = "non-veg"
	FoodEgg         FoodType = "egg"
	FoodUnspecified FoodType = "not_mentioned"
)

// Direction is an ordering direction for an order directive.
type Direction string

const (
	Ascending  Direction = "ASC"
	Descending Direction = "DESC"
)

// OrderField names the attribute an ordering directive applies to.
type OrderField string

const (
	OrderByFoodRating       OrderField = "food_rating"
	OrderByFoodPrice        OrderField = "food_price"
	OrderByRestaurantRating OrderField = "restaurant_rating"
)

// OrderDirective is an explicit ordering requested in the question.
// At most one directive is carried per entity.
type OrderDirective struct {
	Field OrderField
	Dir   Direction
}

// Rating is a numeric rating that may be unavailable. The extraction
// service emits either a number or the literal "not_available"; anything
// that does not parse as a number decodes as unavailable.
type Rating struct {
	Value     float64
	Available bool
}

// NewRating creates an available rating.
func NewRating(v float64) Rating { return Rating{Value: v, Available: true} }

// UnmarshalJSON accepts a JSON number, a numeric string, or any other
// value (treated as unavailable).
func (r *Rating) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*r = Rating{}
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*r = Rating{Value: f, Available: true}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			*r = Rating{Value: f, Available: true}
			return nil
		}
	}
	*r = Rating{}
	return nil
}

// MarshalJSON emits the number, or "not_available" when the rating is absent.
func (r Rating) MarshalJSON() ([]byte, error) {
	if !r.Available {
		return json.Marshal("not_available")
	}
	return json.Marshal(r.Value)
}

// NamePair is a restaurant name with an include/exclude condition.
// Include true means the restaurant name must contain the name,
// false means it must not.
type NamePair struct {
	Name    string
	Include bool
}

// Entity is one structured dish/restaurant description extracted from a
// question. Produced once per question by the extraction service and
// immutable afterwards.
type Entity struct {
	FoodName   string
	Flavour    string
	Bestseller bool
	Type       FoodType
	FoodRating Rating
	FoodPrice  float64
	Quantity   int

	RestaurantNames  []NamePair
	Deliverables     string
	RestaurantRating Rating
	PhoneNumber      string
	Address          string

	Limit   int
	OrderBy *OrderDirective
}

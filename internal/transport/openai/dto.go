package openai

import (
	"github.com/crave-labs/menugraph/internal/domain"
)

type guardrailDTO struct {
	IsFoodRelated bool `json:"is_food_related"`
}

type restaurantNameDTO struct {
	Name    string `json:"name"`
	Include bool   `json:"include"`
}

type entityDTO struct {
	FoodName   string        `json:"food_name"`
	Flavour    string        `json:"flavour"`
	Bestseller bool          `json:"bestseller"`
	Type       string        `json:"type"`
	FoodRating domain.Rating `json:"food_rating"`
	FoodPrice  float64       `json:"food_price"`
	Quantity   int           `json:"quantity"`

	RestaurantNames  []restaurantNameDTO `json:"restaurant_names"`
	Deliverables     string              `json:"deliverables"`
	RestaurantRating domain.Rating       `json:"restaurant_rating"`
	PhoneNumber      string              `json:"phone_number"`
	Address          string              `json:"address"`

	Limit                   int    `json:"limit"`
	OrderByFoodRating       string `json:"order_by_food_rating"`
	OrderByFoodPrice        string `json:"order_by_food_price"`
	OrderByRestaurantRating string `json:"order_by_restaurant_rating"`
}

type extractDTO struct {
	Entities []entityDTO `json:"entities"`
}

type cypherDTO struct {
	Cypher string `json:"cypher"`
}

type filterDTO struct {
	Label string `json:"label"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

type reviewDTO struct {
	Errors  []string    `json:"errors"`
	Filters []filterDTO `json:"filters"`
}

// toEntity maps one extracted DTO onto the domain entity. At most one
// ordering directive survives, food rating winning over food price over
// restaurant rating when the model emits several.
func (d entityDTO) toEntity() domain.Entity {
	e := domain.Entity{
		FoodName:         d.FoodName,
		Flavour:          d.Flavour,
		Bestseller:       d.Bestseller,
		Type:             foodType(d.Type),
		FoodRating:       d.FoodRating,
		FoodPrice:        d.FoodPrice,
		Quantity:         d.Quantity,
		Deliverables:     d.Deliverables,
		RestaurantRating: d.RestaurantRating,
		PhoneNumber:      d.PhoneNumber,
		Address:          d.Address,
		Limit:            d.Limit,
	}
	if e.Quantity <= 0 {
		e.Quantity = 1
	}
	for _, n := range d.RestaurantNames {
		if n.Name == "" {
			continue
		}
		e.RestaurantNames = append(e.RestaurantNames, domain.NamePair{Name: n.Name, Include: n.Include})
	}

	switch {
	case validDirection(d.OrderByFoodRating):
		e.OrderBy = &domain.OrderDirective{Field: domain.OrderByFoodRating, Dir: domain.Direction(d.OrderByFoodRating)}
	case validDirection(d.OrderByFoodPrice):
		e.OrderBy = &domain.OrderDirective{Field: domain.OrderByFoodPrice, Dir: domain.Direction(d.OrderByFoodPrice)}
	case validDirection(d.OrderByRestaurantRating):
		e.OrderBy = &domain.OrderDirective{Field: domain.OrderByRestaurantRating, Dir: domain.Direction(d.OrderByRestaurantRating)}
	}
	return e
}

// isZero reports whether the extraction produced nothing usable for
// this entity.
func (d entityDTO) isZero() bool {
	return d.FoodName == "" && d.Flavour == "" && !d.Bestseller &&
		(d.Type == "" || d.Type == string(domain.FoodUnspecified)) &&
		!d.FoodRating.Available && d.FoodPrice == 0 &&
		len(d.RestaurantNames) == 0 && d.Deliverables == "" &&
		!d.RestaurantRating.Available && d.PhoneNumber == "" && d.Address == "" &&
		d.Limit == 0 &&
		!validDirection(d.OrderByFoodRating) &&
		!validDirection(d.OrderByFoodPrice) &&
		!validDirection(d.OrderByRestaurantRating)
}

func foodType(s string) domain.FoodType {
	switch domain.FoodType(s) {
	case domain.FoodVeg, domain.FoodNonVeg, domain.FoodEgg:
		return domain.FoodType(s)
	default:
		return domain.FoodUnspecified
	}
}

func validDirection(s string) bool {
	return s == string(domain.Ascending) || s == string(domain.Descending)
}

package domain

import "strconv"

// Field names a column a compiled query can project. Per-entity result
// rows map fields to optional values; an absent key means the query's
// projection did not include that column.
type Field string

const (
	FieldRestaurant         Field = "restaurant"
	FieldRestaurantScore    Field = "restaurant_score"
	FieldZomatoPage         Field = "zomato_page"
	FieldRestaurantImageURL Field = "restaurant_image_url"
	FieldDeliveryRating     Field = "delivery_rating"
	FieldDiningRating       Field = "dining_rating"
	FieldDeliverables       Field = "deliverables"
	FieldPhoneNumber        Field = "phone_number"
	FieldAddress            Field = "address"
	FieldFoodName           Field = "food_name"
	FieldFoodType           Field = "food_type"
	FieldBestseller         Field = "bestseller"
	FieldPrice              Field = "price"
	FieldQuantity           Field = "quantity"
	FieldFoodRating         Field = "food_rating"
	FieldDescription        Field = "description"
	FieldFoodImageURL       Field = "food_image_url"
	FieldSimilarityScore    Field = "similarity_score"
)

// RecordFields is the fixed order in which sub-record fields are emitted.
var RecordFields = []Field{
	FieldRestaurant, FieldRestaurantScore, FieldZomatoPage, FieldRestaurantImageURL,
	FieldDeliveryRating, FieldDiningRating, FieldDeliverables, FieldPhoneNumber,
	FieldAddress, FieldFoodName, FieldFoodType, FieldBestseller, FieldPrice,
	FieldQuantity, FieldFoodRating, FieldDescription, FieldFoodImageURL,
	FieldSimilarityScore,
}

// Row is one result row for one entity, keyed by restaurant id.
type Row struct {
	RestaurantID string
	Fields       map[Field]any
}

// RowFromRecord converts a raw graph-store record into a typed row.
// Returns false when the record carries no restaurant id.
func RowFromRecord(rec map[string]any) (Row, bool) {
	idVal, ok := rec["restaurant_id"]
	if !ok || idVal == nil {
		return Row{}, false
	}
	id, ok := idVal.(string)
	if !ok {
		return Row{}, false
	}

	fields := make(map[Field]any, len(rec))
	for _, f := range RecordFields {
		if v, ok := rec[string(f)]; ok && v != nil {
			fields[f] = v
		}
	}
	return Row{RestaurantID: id, Fields: fields}, true
}

// Float reads a field as a number, coercing the value types the graph
// driver may hand back.
func (r Row) Float(f Field) (float64, bool) {
	return asFloat(r.Fields[f])
}

// Has reports whether the field is present.
func (r Row) Has(f Field) bool {
	_, ok := r.Fields[f]
	return ok
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// EntityTable is one entity's collected result rows, tagged with the
// entity's 1-based position in the question.
type EntityTable struct {
	Index int
	Rows  []Row
	Query CompiledQuery
}

package compile

import (
	"strings"

	"github.com/crave-labs/menugraph/internal/domain"
)

// WHERE-clause fragments keyed by parameter name. Each fragment assumes
// the restaurant variable r and, for food filters, the food variable f.
var whereFragments = map[string]string{
	domain.ParamDeliveryRating: `r.delivery_rating IS NOT NULL AND r.delivery_rating <> 'not_available'
      AND toFloatOrNull(r.delivery_rating) >= $delivery_rating`,

	domain.ParamPhoneNumber: `r.phone_no CONTAINS $phone_number`,

	domain.ParamAddress: `toLower(r.address) CONTAINS $address`,

	domain.ParamName: `ALL(pair IN $name WHERE
          (pair[1] = true AND toLower(r.name) CONTAINS toLower(pair[0]))
          OR
          (pair[1] = false AND NOT toLower(r.name) CONTAINS toLower(pair[0])))`,

	domain.ParamBestseller: `f.bestseller = true`,

	domain.ParamType: `f.type = $type`,

	domain.ParamFoodRating: `(f.rating IS NOT NULL AND f.rating <> 'not_available')
      AND toFloatOrNull(f.rating) >= $food_rating`,

	// Upper bound only: cheaper than requested is always acceptable.
	domain.ParamPrice: `f.price <= $price + $tolerance`,
}

// whereOrder fixes the order filters are ANDed in, so identical
// parameter sets always compile to identical statements.
var whereOrder = []string{
	domain.ParamDeliveryRating,
	domain.ParamPhoneNumber,
	domain.ParamAddress,
	domain.ParamName,
	domain.ParamBestseller,
	domain.ParamType,
	domain.ParamFoodRating,
	domain.ParamPrice,
}

const (
	fulltextCall = `CALL db.index.fulltext.queryNodes('restaurant_deliverables_fulltext_index', $deliverables) YIELD node AS r, score AS restaurant_score`

	unwindScores = `UNWIND $food_scores AS fs`

	matchFoodByScore = `MATCH (r:Restaurant)-[:DELIVERS]->(f:Food {id: fs.id})`
	matchFood        = `MATCH (r:Restaurant)-[:DELIVERS]->(f:Food)`
	matchRestaurant  = `MATCH (r:Restaurant)`
)

// Build assembles the Cypher statement for a compiled query and
// finalizes the projection shape. Which fragments and which projection
// are selected is a pure function of the parameter keys present.
func Build(q domain.CompiledQuery) domain.CompiledQuery {
	var b strings.Builder

	hasScores := q.Params.Has(domain.ParamFoodScores)
	hasQuantity := q.Params.Has(domain.ParamQuantity)
	hasDeliverables := q.Params.Has(domain.ParamDeliverables)

	if hasDeliverables {
		b.WriteString(fulltextCall + "\n")
	}

	switch {
	case hasScores:
		b.WriteString(unwindScores + "\n")
		b.WriteString(matchFoodByScore + "\n")
	case hasQuantity:
		b.WriteString(matchFood + "\n")
	default:
		b.WriteString(matchRestaurant + "\n")
	}

	wrote := false
	for _, key := range whereOrder {
		if !q.Params.Has(key) {
			continue
		}
		if wrote {
			b.WriteString("AND " + whereFragments[key] + "\n")
		} else {
			b.WriteString("WHERE " + whereFragments[key] + "\n")
			wrote = true
		}
	}

	q.Intent.Shape = selectShape(hasScores, hasQuantity, hasDeliverables)
	b.WriteString(projections[q.Intent.Shape])

	q.Cypher = b.String()
	return q
}

// selectShape picks exactly one of the six projection shapes.
func selectShape(hasScores, hasQuantity, hasDeliverables bool) domain.ProjectionShape {
	switch {
	case hasScores && hasDeliverables:
		return domain.ShapeSimilarityDeliverables
	case hasQuantity && hasDeliverables:
		return domain.ShapeQuantityDeliverables
	case hasScores:
		return domain.ShapeSimilarity
	case hasQuantity:
		return domain.ShapeQuantity
	case hasDeliverables:
		return domain.ShapeDeliverables
	default:
		return domain.ShapeRestaurant
	}
}

const foodColumns = `RETURN r.id AS restaurant_id,
       r.name AS restaurant,
       r.url AS zomato_page,
       r.delivery_rating AS delivery_rating,
       f.name AS food_name,
       f.bestseller AS bestseller,
       f.price AS price,
       f.type AS food_type,
       coalesce($quantity, 1) AS quantity,
       CASE
         WHEN f.rating IS NOT NULL AND f.rating <> 'not_available' THEN f.rating
         ELSE NULL
       END AS food_rating,
       f.desc AS description,
       f.image_url AS food_image_url`

const restaurantColumns = `RETURN r.id AS restaurant_id,
       r.name AS restaurant,
       r.url AS zomato_page,
       r.image_url AS restaurant_image_url,
       CASE
         WHEN r.delivery_rating IS NOT NULL AND r.delivery_rating <> 'not_available' THEN r.delivery_rating
         ELSE NULL
       END AS delivery_rating,
       CASE
         WHEN r.dining_rating IS NOT NULL AND r.dining_rating <> 'not_available' THEN r.dining_rating
         ELSE NULL
       END AS dining_rating,
       r.deliverables AS deliverables,
       r.phone_no AS phone_number,
       r.address AS address`

var projections = map[domain.ProjectionShape]string{
	domain.ShapeSimilarityDeliverables: foodColumns + `,
       fs.score AS similarity_score,
       restaurant_score`,
	domain.ShapeQuantityDeliverables: foodColumns + `,
       restaurant_score`,
	domain.ShapeSimilarity: foodColumns + `,
       fs.score AS similarity_score`,
	domain.ShapeQuantity:     foodColumns,
	domain.ShapeDeliverables: restaurantColumns + `,
       restaurant_score`,
	domain.ShapeRestaurant: restaurantColumns,
}

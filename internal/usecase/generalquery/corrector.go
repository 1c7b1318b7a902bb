package generalquery

import (
	"regexp"
	"strings"

	"github.com/crave-labs/menugraph/internal/domain"
)

// relPattern matches a single-hop relationship pattern
// (node)-[rel]->(node), in either direction or undirected.
var relPattern = regexp.MustCompile(`\(([^()]*)\)(<-|-)\[([^\[\]]*)\](->|-)\(([^()]*)\)`)

// labelPattern extracts the first label or type after a colon, with or
// without backticks.
var labelPattern = regexp.MustCompile(":\\s*`?([A-Za-z_][A-Za-z0-9_]*)`?")

// correctDirections verifies every directed relationship pattern in a
// statement against the graph's relationship triples, flipping patterns
// written against the stored direction. Returns the empty string when a
// pattern uses a relationship the graph cannot satisfy in either
// direction, and the statement unchanged when nothing is directed or
// everything already agrees.
func correctDirections(cypher string, schema *domain.Schema) string {
	matches := relPattern.FindAllStringSubmatchIndex(cypher, -1)
	if len(matches) == 0 {
		return cypher
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		segStart, segEnd := m[0], m[1]
		left := cypher[m[2]:m[3]]
		leftArrow := cypher[m[4]:m[5]]
		rel := cypher[m[6]:m[7]]
		rightArrow := cypher[m[8]:m[9]]
		right := cypher[m[10]:m[11]]

		b.WriteString(cypher[last:segStart])
		last = segEnd

		relType := extractLabel(rel)
		pointsRight := rightArrow == "->"
		pointsLeft := leftArrow == "<-"

		// Untyped or undirected patterns carry nothing to verify.
		if relType == "" || (!pointsRight && !pointsLeft) {
			b.WriteString(cypher[segStart:segEnd])
			continue
		}

		source, target := extractLabel(left), extractLabel(right)
		if pointsLeft {
			source, target = target, source
		}

		switch {
		case schema.HasRelationship(source, relType, target):
			b.WriteString(cypher[segStart:segEnd])
		case schema.HasRelationship(target, relType, source):
			if pointsRight {
				b.WriteString("(" + left + ")<-[" + rel + "]-(" + right + ")")
			} else {
				b.WriteString("(" + left + ")-[" + rel + "]->(" + right + ")")
			}
		default:
			return ""
		}
	}
	b.WriteString(cypher[last:])
	return b.String()
}

func extractLabel(s string) string {
	m := labelPattern.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return m[1]
}

package openai

import "encoding/json"

const promptGuardrail = `You are a strict classifier for a food ordering assistant.
Decide whether the user's question is about food ordering, food details,
restaurants, or anything related to finding or comparing dishes and
restaurants. Questions about other topics are not food related.`

const promptExtract = `You extract structured dish and restaurant descriptions from a
food ordering question. Produce one entity per distinct dish or
restaurant the question mentions, in the order they are mentioned.
Rules:
- food_name is the dish name only, without adjectives.
- flavour holds taste adjectives such as spicy or sweet.
- type is one of veg, non-veg, egg, or not_mentioned.
- food_rating and restaurant_rating are numbers, or "not_available"
  when the question names none.
- restaurant_names lists each restaurant mentioned with include=false
  when the user wants to avoid it.
- quantity is how many units of the dish the user wants, 1 when unsaid.
- limit is only set when the user asks for a top-N or first-N list.
- The order_by fields are "ASC", "DESC", or "" when not requested.
Leave every field you cannot ground in the question at its empty value.`

const promptGenerate = `You are an expert Cypher author for a food ordering graph.
Write one read-only Cypher statement that answers the user's question
against the given schema. Use only labels, relationship types and
properties that appear in the schema. Return the statement only, with
no explanation and no code fences.`

const promptReview = `You review a Cypher statement written to answer a food ordering
question. Against the given schema, report every semantic problem: a
label, relationship type or property that the schema does not contain,
a comparison against the wrong property, or a clause that cannot answer
the question. Also list every literal value the statement compares a
node property against, with its label and property key. An empty error
list means the statement is sound.`

const promptCorrect = `You fix a Cypher statement that failed validation. Rewrite it so
that every reported problem is resolved, using only labels,
relationship types and properties from the given schema. Return the
corrected statement only, with no explanation and no code fences.`

var schemaGuardrail = json.RawMessage(`{
  "type": "object",
  "properties": {
    "is_food_related": {"type": "boolean"}
  },
  "required": ["is_food_related"],
  "additionalProperties": false
}`)

var schemaExtract = json.RawMessage(`{
  "type": "object",
  "properties": {
    "entities": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "food_name": {"type": "string"},
          "flavour": {"type": "string"},
          "bestseller": {"type": "boolean"},
          "type": {"type": "string", "enum": ["veg", "non-veg", "egg", "not_mentioned"]},
          "food_rating": {"type": ["number", "string"]},
          "food_price": {"type": "number"},
          "quantity": {"type": "integer"},
          "restaurant_names": {
            "type": "array",
            "items": {
              "type": "object",
              "properties": {
                "name": {"type": "string"},
                "include": {"type": "boolean"}
              },
              "required": ["name", "include"],
              "additionalProperties": false
            }
          },
          "deliverables": {"type": "string"},
          "restaurant_rating": {"type": ["number", "string"]},
          "phone_number": {"type": "string"},
          "address": {"type": "string"},
          "limit": {"type": "integer"},
          "order_by_food_rating": {"type": "string", "enum": ["", "ASC", "DESC"]},
          "order_by_food_price": {"type": "string", "enum": ["", "ASC", "DESC"]},
          "order_by_restaurant_rating": {"type": "string", "enum": ["", "ASC", "DESC"]}
        },
        "required": ["food_name", "flavour", "bestseller", "type", "food_rating",
          "food_price", "quantity", "restaurant_names", "deliverables",
          "restaurant_rating", "phone_number", "address", "limit",
          "order_by_food_rating", "order_by_food_price", "order_by_restaurant_rating"],
        "additionalProperties": false
      }
    }
  },
  "required": ["entities"],
  "additionalProperties": false
}`)

var schemaCypher = json.RawMessage(`{
  "type": "object",
  "properties": {
    "cypher": {"type": "string"}
  },
  "required": ["cypher"],
  "additionalProperties": false
}`)

var schemaReview = json.RawMessage(`{
  "type": "object",
  "properties": {
    "errors": {
      "type": "array",
      "items": {"type": "string"}
    },
    "filters": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "label": {"type": "string"},
          "key": {"type": "string"},
          "value": {"type": "string"}
        },
        "required": ["label", "key", "value"],
        "additionalProperties": false
      }
    }
  },
  "required": ["errors", "filters"],
  "additionalProperties": false
}`)

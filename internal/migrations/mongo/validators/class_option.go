package validators

import "go.mongodb.org/mongo-driver/bson"

var ClassOptionValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"name", "places", "created_at"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":              bson.M{"bsonType": "objectId"},
			"name":             bson.M{"bsonType": "string", "minLength": 2, "maxLength": 100},
			"places":           bson.M{"bsonType": []string{"int", "long"}, "minimum": 1, "maximum": 1000},
			"waitlist_enabled": bson.M{"bsonType": "bool"},
			"drop_in": bson.M{
				"bsonType": "object",
				"properties": bson.M{
					"price":    bson.M{"bsonType": []string{"double", "int", "long"}, "minimum": 0},
					"currency": bson.M{"bsonType": "string", "minLength": 3, "maxLength": 3},
					"discount_tiers": bson.M{
						"bsonType": "array",
						"maxItems": 20,
						"items": bson.M{
							"bsonType": "object",
							"required": []string{"min_quantity", "discount_percent", "type"},
							"properties": bson.M{
								"min_quantity":     bson.M{"bsonType": []string{"int", "long"}, "minimum": 1},
								"discount_percent": bson.M{"bsonType": []string{"double", "int", "long"}, "minimum": 0, "maximum": 100},
								"type":             bson.M{"bsonType": "string", "enum": []string{"normal", "trial"}},
							},
						},
					},
				},
			},
			"created_at": bson.M{"bsonType": "date"},
		},
	},
}

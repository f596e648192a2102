package validators

import "go.mongodb.org/mongo-driver/bson"

var TransactionValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"lesson_id",
			"status",
			"payment_method",
			"amount",
			"quantity",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"lesson_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"status": bson.M{
				"bsonType": "string",
				"enum":     []string{"pending", "completed", "failed"},
			},

			"payment_method": bson.M{
				"bsonType": "string",
				"enum":     []string{"cash", "card", "class_pass", "membership", "free"},
			},

			"amount": bson.M{
				"bsonType": []string{"double", "int", "long"},
				"minimum":  0,
			},

			"quantity": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
			},

			"booked_by": bson.M{
				"bsonType": "object",
				"required": []string{"email"},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}

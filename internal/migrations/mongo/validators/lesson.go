package validators

import "go.mongodb.org/mongo-driver/bson"

// LessonValidator allows a null original_lock_out_time for lessons created
// before the snapshot was taken.
var LessonValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"class_option_id",
			"start_time",
			"end_time",
			"lock_out_time",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"class_option_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"start_time": bson.M{
				"bsonType": "date",
			},

			"end_time": bson.M{
				"bsonType": "date",
			},

			"lock_out_time": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
				"maximum":  10080,
			},

			"original_lock_out_time": bson.M{
				"bsonType": []string{"int", "long", "null"},
			},

			"location": bson.M{
				"bsonType":  "string",
				"maxLength": 200,
			},

			"active": bson.M{
				"bsonType": []string{"bool", "null"},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}

package validators

import "go.mongodb.org/mongo-driver/bson"

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"_id",
			"booking_type",
			"user_id",
			"starts_at",
			"ends_at",
			"status",
			"created_at",
			"updated_at",
			"history",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},
			"booking_type": bson.M{
				"enum": []string{"class", "trainer_session"},
			},
			"user_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},
			"occurrence_id": bson.M{
				"bsonType": "string",
			},
			"trainer_id": bson.M{
				"bsonType": "string",
			},
			"starts_at": bson.M{
				"bsonType": "date",
			},
			"ends_at": bson.M{
				"bsonType": "date",
			},
			"price": bson.M{
				"bsonType": "decimal",
			},
			"status": bson.M{
				"enum": []string{"pending", "confirmed", "wait_listed", "cancelled", "completed"},
			},
			"waitlist_position": bson.M{
				"bsonType": []string{"int", "long", "null"},
				"minimum":  1,
			},
			"history": bson.M{
				"bsonType": "array",
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"to", "actor_id", "at"},
				},
			},
		},
	},
}

package validators

import "go.mongodb.org/mongo-driver/bson"

var OccurrenceValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"_id",
			"class_name",
			"class_type",
			"level",
			"starts_at",
			"ends_at",
			"instructor_id",
			"max_capacity",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"class_name": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 100,
			},
			"class_type": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 50,
			},
			"starts_at": bson.M{
				"bsonType": "date",
			},
			"ends_at": bson.M{
				"bsonType": "date",
			},
			"max_capacity": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
			},
			"lock_version": bson.M{
				"bsonType": []string{"int", "long"},
			},
		},
	},
}

var TrainerValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"_id", "name", "hourly_rate", "availability"},
		"additionalProperties": true,

		"properties": bson.M{
			"name": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 100,
			},
			"hourly_rate": bson.M{
				"bsonType": "decimal",
			},
			"availability": bson.M{
				"bsonType": "array",
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"weekday", "start", "end"},
					"properties": bson.M{
						"weekday": bson.M{
							"bsonType": []string{"int", "long"},
							"minimum":  0,
							"maximum":  6,
						},
						"start": bson.M{"bsonType": "string", "pattern": "^([01][0-9]|2[0-3]):[0-5][0-9]$"},
						"end":   bson.M{"bsonType": "string", "pattern": "^([01][0-9]|2[0-4]):[0-5][0-9]$"},
					},
				},
			},
		},
	},
}

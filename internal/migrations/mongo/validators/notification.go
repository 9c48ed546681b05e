package validators

import "go.mongodb.org/mongo-driver/bson"

var NotificationValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"recipient_id",
			"title",
			"content",
			"type",
			"is_read",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"recipient_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},

			"title": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 200,
			},

			"content": bson.M{
				"bsonType":  "string",
				"maxLength": 2000,
			},

			"type": bson.M{
				"bsonType":  "string",
				"maxLength": 50,
			},

			"is_read": bson.M{
				"bsonType": "bool",
			},

			"meta_data": bson.M{
				"bsonType": "object",
			},
		},
	},
}

// internal/workers/application/validate-application-data/models.go
package validateapplicationdata

import (
	"encoding/json"

	"agritour-certification/internal/common/validation"
)

type Input struct {
	ApplicationID string          `json:"applicationId"`
	ApplicantID   string          `json:"applicantId"`
	FormData      json.RawMessage `json:"formData"`
}

type Output struct {
	IsValid            bool                         `json:"isValid"`
	VisibleQuestionIDs []string                     `json:"visibleQuestionIds"`
	ValidationErrors   []validation.ValidationError `json:"validationErrors"`
}

// MinYear is the first certification year the program accepts.
const MinYear = 2020

// formSchema describes the structure of a submitted form. Business rules that need
// the question catalog are checked in code.
const formSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["basicInfo", "answers", "confirmed"],
	"properties": {
		"basicInfo": {
			"type": "object",
			"required": ["farmName", "ownerName", "phone", "email", "address", "city", "category", "year"],
			"properties": {
				"farmName":    {"type": "string", "minLength": 1, "maxLength": 200},
				"companyName": {"type": "string", "maxLength": 200},
				"ownerName":   {"type": "string", "minLength": 1, "maxLength": 100},
				"phone":       {"type": "string", "minLength": 1},
				"email":       {"type": "string", "minLength": 1},
				"address":     {"type": "string", "minLength": 1, "maxLength": 300},
				"city":        {"type": "string", "minLength": 1},
				"category":    {"type": "string", "enum": ["type1", "type2", "type3", "type4"]},
				"specialty":   {"type": ["array", "null"], "items": {"type": "string"}},
				"addOns": {
					"type": ["array", "null"],
					"uniqueItems": true,
					"items": {"type": "string", "enum": ["sustainability", "food-experience"]}
				},
				"year": {"type": "integer", "minimum": 2020}
			}
		},
		"answers": {
			"type": "object",
			"additionalProperties": {
				"type": "object",
				"properties": {
					"score": {"type": ["number", "null"], "minimum": 0, "maximum": 5},
					"note":  {"type": "string", "maxLength": 2000},
					"attachments": {"type": ["array", "null"]}
				}
			}
		},
		"confirmed": {"type": "boolean", "enum": [true]}
	}
}`

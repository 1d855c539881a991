// internal/analysis/listener/schema.go
package listener

// responseFrameSchema is the contract for frames on the response topic.
// Optional result fields may be omitted or null; an omitted field leaves the
// stored value untouched.
const responseFrameSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["correlationId", "result"],
	"properties": {
		"correlationId": {"type": "integer"},
		"result": {
			"type": "object",
			"properties": {
				"score": {"type": ["integer", "null"], "minimum": 0, "maximum": 100},
				"summary": {"type": ["string", "null"]},
				"matchedSkills": {"type": ["array", "null"], "items": {"type": "string"}},
				"missingSkills": {"type": ["array", "null"], "items": {"type": "string"}},
				"recommendations": {
					"oneOf": [
						{"type": "string"},
						{"type": "array", "items": {"type": "string"}},
						{"type": "null"}
					]
				}
			}
		}
	}
}`

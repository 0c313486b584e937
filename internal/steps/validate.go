package steps

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/AIObjectives/tttc-light-js-sub002/internal/pipeline"
)

// Per-step payload schemas. Checkpoints are resumed by later runs, so a
// malformed payload is rejected here rather than poisoning a future resume.
var stepSchemas = map[pipeline.StepName]*jsonschema.Schema{
	pipeline.StepClustering: jsonschema.MustCompileString("clustering.json", `{
		"type": "object",
		"required": ["taxonomy"],
		"properties": {
			"taxonomy": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["topicName"],
					"properties": {
						"topicName": {"type": "string", "minLength": 1},
						"topicShortDescription": {"type": "string"},
						"subtopics": {
							"type": "array",
							"items": {
								"type": "object",
								"required": ["subtopicName"],
								"properties": {
									"subtopicName": {"type": "string", "minLength": 1}
								}
							}
						}
					}
				}
			}
		}
	}`),
	pipeline.StepExtraction: jsonschema.MustCompileString("extraction.json", `{
		"type": "object",
		"required": ["claims"],
		"properties": {
			"claims": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["claim", "commentId", "topicName"],
					"properties": {
						"claim": {"type": "string", "minLength": 1},
						"quote": {"type": "string"},
						"commentId": {"type": "string", "minLength": 1},
						"topicName": {"type": "string", "minLength": 1},
						"subtopicName": {"type": "string"}
					}
				}
			}
		}
	}`),
	pipeline.StepSorting: jsonschema.MustCompileString("sorting.json", `{
		"type": "object",
		"required": ["tree"],
		"properties": {
			"tree": {"type": "object"},
			"counts": {"type": "object", "additionalProperties": {"type": "integer"}}
		}
	}`),
	pipeline.StepSummaries: jsonschema.MustCompileString("summaries.json", `{
		"type": "object",
		"required": ["summaries"],
		"properties": {
			"summaries": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["topicName", "summary"],
					"properties": {
						"topicName": {"type": "string", "minLength": 1},
						"summary": {"type": "string", "minLength": 1}
					}
				}
			}
		}
	}`),
	pipeline.StepCruxes: jsonschema.MustCompileString("cruxes.json", `{
		"type": "object",
		"required": ["cruxClaims"],
		"properties": {
			"cruxClaims": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["cruxClaim"],
					"properties": {
						"cruxClaim": {"type": "string", "minLength": 1},
						"agree": {"type": "array", "items": {"type": "string"}},
						"disagree": {"type": "array", "items": {"type": "string"}}
					}
				}
			}
		}
	}`),
}

// validatePayload checks a step payload against its schema.
func validatePayload(step pipeline.StepName, payload json.RawMessage) error {
	sch, ok := stepSchemas[step]
	if !ok {
		return nil
	}
	var doc any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return fmt.Errorf("step %s payload is not JSON: %w", step, err)
	}
	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("step %s payload rejected: %w", step, err)
	}
	return nil
}

package nodes

import (
	"encoding/json"
	"strings"
)

// parseJSONResponse extracts a JSON object from an LLM reply. Models wrap
// JSON in code fences or prose often enough that a bare Unmarshal is not
// reliable.
func parseJSONResponse(response string, out interface{}) error {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	jsonStart := strings.Index(response, "{")
	jsonEnd := strings.LastIndex(response, "}")
	if jsonStart >= 0 && jsonEnd > jsonStart {
		response = response[jsonStart : jsonEnd+1]
	}

	return json.Unmarshal([]byte(response), out)
}

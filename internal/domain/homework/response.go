// internal/domain/homework/response.go
package homework

import (
	"encoding/json"
	"fmt"
)

const (
	homeworksKey   = "homeworks"
	currentDateKey = "current_date"
)

// CheckResponse validates a decoded API response and returns its homework records
// in the order the server sent them.
func CheckResponse(response any) ([]Record, error) {
	body, ok := response.(map[string]any)
	if !ok {
		return nil, &StructuralError{Reason: "JSON пришел без словаря."}
	}

	raw, ok := body[homeworksKey]
	if !ok {
		return nil, &StructuralError{Reason: fmt.Sprintf("В ответе API отсутствует ключ %s.", homeworksKey)}
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, &StructuralError{Reason: fmt.Sprintf("%s не содержит список.", homeworksKey)}
	}

	records := make([]Record, 0, len(list))
	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, &StructuralError{Reason: fmt.Sprintf("Элемент %d в %s не является словарём.", i, homeworksKey)}
		}
		records = append(records, Record(m))
	}
	return records, nil
}

// CurrentDate extracts the server cursor to use as from_date on the next poll.
func CurrentDate(response any) (int64, error) {
	body, ok := response.(map[string]any)
	if !ok {
		return 0, &StructuralError{Reason: "JSON пришел без словаря."}
	}

	raw, ok := body[currentDateKey]
	if !ok {
		return 0, &StructuralError{Reason: fmt.Sprintf("В ответе API отсутствует ключ %s.", currentDateKey)}
	}

	switch v := raw.(type) {
	case json.Number:
		ts, err := v.Int64()
		if err != nil {
			return 0, &StructuralError{Reason: fmt.Sprintf("%s не является целым числом: %s.", currentDateKey, v)}
		}
		return ts, nil
	case float64:
		if v != float64(int64(v)) {
			return 0, &StructuralError{Reason: fmt.Sprintf("%s не является целым числом: %v.", currentDateKey, v)}
		}
		return int64(v), nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	default:
		return 0, &StructuralError{Reason: fmt.Sprintf("%s не является целым числом: %v.", currentDateKey, v)}
	}
}

package messages

import (
	"encoding/json"
	"visionary-backend/internal/models"
)

// Decode parses a persisted message list. An empty blob is an empty list
// and repeated ids keep their first occurrence.
func Decode(blob string) ([]models.Message, error) {
	if blob == "" {
		return []models.Message{}, nil
	}

	var list []models.Message
	err := json.Unmarshal([]byte(blob), &list)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(list))
	unique := make([]models.Message, 0, len(list))
	for _, msg := range list {
		if _, ok := seen[msg.ID]; ok {
			continue
		}
		seen[msg.ID] = struct{}{}
		unique = append(unique, msg)
	}

	return unique, nil
}

func Encode(list []models.Message) (string, error) {
	if list == nil {
		list = []models.Message{}
	}

	jsonBytes, err := json.Marshal(list)
	if err != nil {
		return "", err
	}
	return string(jsonBytes), nil
}

func MarkRead(list []models.Message, id string) ([]models.Message, bool) {
	updated := make([]models.Message, len(list))
	changed := false
	for i, msg := range list {
		if msg.ID == id && !msg.IsRead {
			msg.IsRead = true
			changed = true
		}
		updated[i] = msg
	}
	return updated, changed
}

func Delete(list []models.Message, id string) ([]models.Message, bool) {
	updated := make([]models.Message, 0, len(list))
	for _, msg := range list {
		if msg.ID != id {
			updated = append(updated, msg)
		}
	}
	return updated, len(updated) != len(list)
}

func MarkAllRead(list []models.Message) ([]models.Message, bool) {
	updated := make([]models.Message, len(list))
	changed := false
	for i, msg := range list {
		if !msg.IsRead {
			msg.IsRead = true
			changed = true
		}
		updated[i] = msg
	}
	return updated, changed
}

func HasType(list []models.Message, messageType models.MessageType) bool {
	for _, msg := range list {
		if msg.Type == messageType {
			return true
		}
	}
	return false
}

func Contains(list []models.Message, id string) bool {
	for _, msg := range list {
		if msg.ID == id {
			return true
		}
	}
	return false
}

func UnreadCount(list []models.Message) int {
	count := 0
	for _, msg := range list {
		if !msg.IsRead {
			count++
		}
	}
	return count
}

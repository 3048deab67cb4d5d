package domain

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// InterviewID - id интервью из REST-слоя (таблица interviews).
type InterviewID int64

const roomKeyPrefix = "interview_"

// RoomKey - стабильный ключ комнаты: "interview_<id>".
type RoomKey string

func (id InterviewID) RoomKey() RoomKey {
	return RoomKey(roomKeyPrefix + strconv.FormatInt(int64(id), 10))
}

func (id InterviewID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

func (id InterviewID) Valid() bool { return id > 0 }

// UnmarshalJSON accepts both 42 and "42"; the web client sends parseInt(id),
// older clients send the raw route param.
func (id *InterviewID) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == "" {
		*id = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var raw string
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		s = strings.TrimSpace(raw)
		if s == "" {
			*id = 0
			return nil
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return errors.New("interview_id must be an integer")
	}
	*id = InterviewID(n)
	return nil
}

func ParseInterviewID(s string) (InterviewID, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return 0, ErrInterviewIDRequired
	}
	return InterviewID(n), nil
}

type Interview struct {
	ID     InterviewID `db:"id"`
	Title  string      `db:"title"`
	Status string      `db:"status"`
}

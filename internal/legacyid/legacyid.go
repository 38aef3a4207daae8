// Package legacyid восстанавливает момент создания записи по идентификатору старого формата.
package legacyid

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Placeholder выводится вместо даты, если её не удалось определить.
const Placeholder = "—"

// prefixLen задаёт количество шестнадцатеричных символов, кодирующих секунды от начала эпохи.
const prefixLen = 8

// ErrMalformedIdentifier возвращается, если идентификатор не начинается с 8 шестнадцатеричных символов.
var ErrMalformedIdentifier = errors.New("malformed identifier")

// Resolve интерпретирует первые 8 шестнадцатеричных символов идентификатора как
// big-endian число секунд от начала эпохи.
func Resolve(id string) (time.Time, error) {
	if primitive.IsValidObjectID(id) {
		oid, err := primitive.ObjectIDFromHex(id)
		if err == nil {
			return oid.Timestamp().UTC(), nil
		}
	}

	if len(id) < prefixLen || !isHex(id[:prefixLen]) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedIdentifier, id)
	}

	secs, err := strconv.ParseUint(id[:prefixLen], 16, 32)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedIdentifier, id)
	}

	return time.Unix(int64(secs), 0).UTC(), nil
}

// Effective возвращает явное время создания, если оно есть, иначе выводит его из идентификатора.
func Effective(id string, createdAt *time.Time) (time.Time, error) {
	if createdAt != nil {
		return *createdAt, nil
	}
	return Resolve(id)
}

// Format возвращает время создания в формате RFC3339 или Placeholder.
func Format(id string, createdAt *time.Time) string {
	ts, err := Effective(id, createdAt)
	if err != nil {
		return Placeholder
	}
	return ts.Format(time.RFC3339)
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

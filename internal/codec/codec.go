// Package codec converts members to and from their canonical plaintext form,
// the text that is encrypted into a record file.
//
// The form is one key=value field per line in a fixed order, followed by a
// sum line holding the hex SHA-256 of everything before it:
//
//	name=Doe, Jane
//	id=42
//	joinDate=2024-01-15T10:00
//	expireDate=2025-01-15T10:00
//	sum=5b1c...
//
// Each line is split at its first '=', so names may contain '=', ',' or any
// other text except line breaks.
package codec

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/org/rostervault/pkg/models"
)

// TimeLayout is the fixed, locale-independent timestamp format (UTC, minutes).
const TimeLayout = "2006-01-02T15:04"

// ErrFormat is returned when a member cannot be encoded or text does not
// have the canonical shape.
var ErrFormat = errors.New("invalid record format")

const (
	fieldName   = "name"
	fieldID     = "id"
	fieldJoin   = "joinDate"
	fieldExpire = "expireDate"
	fieldSum    = "sum"
)

var fieldOrder = []string{fieldName, fieldID, fieldJoin, fieldExpire, fieldSum}

// Encode returns the canonical text of m. The output is deterministic.
func Encode(m models.Member) (string, error) {
	if strings.ContainsAny(m.Name, "\r\n") {
		return "", fmt.Errorf("%w: name contains a line break", ErrFormat)
	}
	if !utf8.ValidString(m.Name) {
		return "", fmt.Errorf("%w: name is not valid UTF-8", ErrFormat)
	}
	if m.ID < 0 {
		return "", fmt.Errorf("%w: negative id %d", ErrFormat, m.ID)
	}
	for _, t := range []time.Time{m.JoinDate, m.ExpireDate} {
		if y := t.UTC().Year(); y < 0 || y > 9999 {
			return "", fmt.Errorf("%w: year %d out of range", ErrFormat, y)
		}
	}

	body := strings.Join([]string{
		fieldName + "=" + m.Name,
		fieldID + "=" + strconv.Itoa(m.ID),
		fieldJoin + "=" + m.JoinDate.UTC().Format(TimeLayout),
		fieldExpire + "=" + m.ExpireDate.UTC().Format(TimeLayout),
	}, "\n")
	return body + "\n" + fieldSum + "=" + checksum(body), nil
}

// Decode parses canonical text back into a Member. It is the left inverse of
// Encode for every member Encode accepts, up to sub-minute precision.
func Decode(text string) (models.Member, error) {
	if !utf8.ValidString(text) {
		return models.Member{}, fmt.Errorf("%w: not valid UTF-8", ErrFormat)
	}
	lines := strings.Split(text, "\n")
	if len(lines) != len(fieldOrder) {
		return models.Member{}, fmt.Errorf("%w: expected %d fields, got %d", ErrFormat, len(fieldOrder), len(lines))
	}

	values := make([]string, len(lines))
	for i, line := range lines {
		key, value, ok := strings.Cut(line, "=")
		if !ok || key != fieldOrder[i] {
			return models.Member{}, fmt.Errorf("%w: field %d: expected %q", ErrFormat, i+1, fieldOrder[i])
		}
		values[i] = value
	}

	body := strings.Join(lines[:len(lines)-1], "\n")
	if values[4] != checksum(body) {
		return models.Member{}, fmt.Errorf("%w: checksum mismatch", ErrFormat)
	}

	id, err := parseID(values[1])
	if err != nil {
		return models.Member{}, err
	}
	join, err := time.Parse(TimeLayout, values[2])
	if err != nil {
		return models.Member{}, fmt.Errorf("%w: %s: %v", ErrFormat, fieldJoin, err)
	}
	expire, err := time.Parse(TimeLayout, values[3])
	if err != nil {
		return models.Member{}, fmt.Errorf("%w: %s: %v", ErrFormat, fieldExpire, err)
	}
	return models.NewMember(values[0], id, join, expire), nil
}

// parseID accepts only canonical non-negative decimals: no sign, no leading
// zeros.
func parseID(s string) (int, error) {
	if s == "" || (len(s) > 1 && s[0] == '0') || strings.TrimLeft(s, "0123456789") != "" {
		return 0, fmt.Errorf("%w: id %q is not a canonical non-negative integer", ErrFormat, s)
	}
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: id %q: %v", ErrFormat, s, err)
	}
	return id, nil
}

func checksum(body string) string {
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}

package membership

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// StaticValidator accepts a fixed set of member ids.
type StaticValidator struct {
	ids map[int64]struct{}
}

func NewStaticValidator(ids ...int64) *StaticValidator {
	v := &StaticValidator{ids: make(map[int64]struct{}, len(ids))}
	for _, id := range ids {
		v.ids[id] = struct{}{}
	}
	return v
}

// ParseStaticValidator builds a validator from a comma-separated id list such as "1, 2,3".
func ParseStaticValidator(list string) (*StaticValidator, error) {
	var ids []int64
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid member id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return NewStaticValidator(ids...), nil
}

func (v *StaticValidator) IsValid(_ context.Context, memberID int64) (bool, error) {
	_, ok := v.ids[memberID]
	return ok, nil
}

package domain

import (
	"bytes"
	"fmt"
	"strconv"
)

// FlexInt decodes a JSON integer that the venue serves either as a bare
// number (GraphQL) or as a quoted string (REST protobuf-JSON).
type FlexInt int32

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(string(b), 10, 32)
	if err != nil {
		return fmt.Errorf("invalid integer %q: %w", b, err)
	}
	*f = FlexInt(n)
	return nil
}

func (f FlexInt) Int32() int32 { return int32(f) }

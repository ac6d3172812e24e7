package model

import (
	"database/sql/driver"
	"fmt"
)

// Result 表示面试流程的最终结果，零值代表仍在进行。
type Result string

const (
	ResultInProgress Result = ""
	ResultRefusal    Result = "Refusal"
	ResultOffer      Result = "Offer"
)

// ParseResult 将字符串转换为 Result，未知值返回错误。空字符串表示进行中。
func ParseResult(s string) (Result, error) {
	r := Result(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown interview result %q", s)
	}
	return r, nil
}

// Valid 判断是否为已知取值。
func (r Result) Valid() bool {
	switch r {
	case ResultInProgress, ResultRefusal, ResultOffer:
		return true
	}
	return false
}

// IsTerminal 表示流程是否已结束。
func (r Result) IsTerminal() bool {
	switch r {
	case ResultRefusal, ResultOffer:
		return true
	case ResultInProgress:
		return false
	}
	return false
}

// String 返回便于展示的文本。
func (r Result) String() string {
	if r == ResultInProgress {
		return "in progress"
	}
	return string(r)
}

// Value 实现 driver.Valuer，进行中写入 NULL。
func (r Result) Value() (driver.Value, error) {
	if r == ResultInProgress {
		return nil, nil
	}
	if !r.Valid() {
		return nil, fmt.Errorf("unknown interview result %q", string(r))
	}
	return string(r), nil
}

// Scan 实现 sql.Scanner。
func (r *Result) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*r = ResultInProgress
		return nil
	case string:
		parsed, err := ParseResult(v)
		if err != nil {
			return err
		}
		*r = parsed
		return nil
	case []byte:
		parsed, err := ParseResult(string(v))
		if err != nil {
			return err
		}
		*r = parsed
		return nil
	default:
		return fmt.Errorf("scan interview result: unsupported type %T", src)
	}
}

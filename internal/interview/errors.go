package interview

import (
	"errors"
	"fmt"
)

// ErrNotFound 表示记录不存在或不属于当前用户。
var ErrNotFound = errors.New("interview not found")

// ValidationError 描述字段校验失败，总是在访问存储之前返回。
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return e.Field + ": " + e.Msg
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// RemoteError 包装存储层故障，原样上抛，不做重试。
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote store %s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

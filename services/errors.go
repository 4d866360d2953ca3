package services

import "errors"

// 错误分类，经 Hub 统一映射为下发给客户端的 error 事件
var (
	ErrNotFound     = errors.New("not found")
	ErrBlocked      = errors.New("blocked")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidState = errors.New("invalid state")
)

// StorageError 持久层故障，消息未持久化成功时不会向房间扇出
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return "storage error during " + e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// ErrorCode 把内部错误翻译成下发给客户端的错误码
func ErrorCode(err error) string {
	var se *StorageError
	switch {
	case errors.Is(err, ErrBlocked):
		return "Blocked"
	case errors.Is(err, ErrForbidden):
		return "Forbidden"
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrInvalidState):
		return "InvalidState"
	case errors.As(err, &se):
		return "StorageError"
	default:
		return "Internal"
	}
}

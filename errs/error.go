package errs

import (
	"fmt"
	"strings"
)

type CodeError interface {
	error
	Code() int32
	Print(extras ...string) CodeError
	Printf(format string, args ...any) CodeError
	Is(error) bool
}

func CreateCodeError(code int32, desc string) CodeError {
	return &codeError{
		errno: code, //  错误码数字
		desc:  desc, //  错误描述字符串, 如：BAD_KEY、ATOMIC_STATE
	}
}

func WrapError(err error) CodeError {
	x, ok := err.(*codeError)
	if ok {
		return x
	}
	return CreateCodeError(ErrCode_Unknown, err.Error())
}

type codeError struct {
	errno int32
	desc  string
}

func (e *codeError) Code() int32 {
	return e.errno
}

func (e *codeError) Error() string {
	return e.desc
}

// Print 派生新错误, 附加说明不影响原值
func (e *codeError) Print(extras ...string) CodeError {
	if len(extras) == 0 {
		return e
	}
	ns := len(e.desc) + len(extras)
	for _, extra := range extras {
		ns += len(extra)
	}
	builder := strings.Builder{}
	builder.Grow(ns)
	builder.WriteString(e.desc)
	for _, extra := range extras {
		builder.WriteByte(',')
		builder.WriteString(extra)
	}
	return &codeError{
		errno: e.errno,
		desc:  builder.String(),
	}
}

func (e *codeError) Printf(format string, args ...any) CodeError {
	if len(format) == 0 {
		return e
	}
	return &codeError{
		errno: e.errno,
		desc:  fmt.Sprintf(e.desc+","+format, args...),
	}
}

// Is 只按错误码比较, 配合 errors.Is 使用
func (e *codeError) Is(target error) bool {
	if x, ok := target.(*codeError); ok {
		return x.errno == e.errno
	}
	return false
}

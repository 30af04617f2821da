package models

import "fmt"

// ParseError 字段解析失败,归属于单条记录
type ParseError struct {
	Field  string
	Value  string
	Reason string
}

// Error 实现error接口
func (e *ParseError) Error() string {
	return fmt.Sprintf("字段解析失败 [%s=%q]: %s", e.Field, e.Value, e.Reason)
}

// FetchError 抓取失败(网络错误或非200状态)
type FetchError struct {
	URL    string
	Status int
	Cause  error
}

// Error 实现error接口
func (e *FetchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("抓取失败 [%s]: %v", e.URL, e.Cause)
	}
	return fmt.Sprintf("抓取失败 [%s]: HTTP %d", e.URL, e.Status)
}

// Unwrap 支持errors.Unwrap
func (e *FetchError) Unwrap() error {
	return e.Cause
}

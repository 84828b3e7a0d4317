package gateway

import "fmt"

// TimeoutError 表示一次阻塞调用在限定时间内未等到网关应答。
// 连接在调用中途断开时不会有显式信号，同样表现为超时。
type TimeoutError struct {
	Op string
}

func (e *TimeoutError) Error() string {
	return e.Op + "超时"
}

// RejectedError 表示网关针对本次调用返回了结构化错误应答。
type RejectedError struct {
	Op  string
	Msg string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s失败: %s", e.Op, e.Msg)
}

// SubmissionError 表示请求发出时被立即拒绝（尚未进入网关）。
// Code 为底层接口的返回值：-1 网络断开，-2 未处理请求积压，-3 流控。
type SubmissionError struct {
	Code int
}

func (e *SubmissionError) Error() string {
	return submitErrorMsg(e.Code)
}

// ValidationError 表示调用方参数非法，请求未发出。
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func validationf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

func submitErrorMsg(code int) string {
	switch code {
	case -1:
		return "网络连接失败"
	case -2:
		return "未处理请求超过许可数"
	case -3:
		return "每秒发送请求数超过许可数"
	}
	return fmt.Sprintf("未知提交错误(%d)", code)
}

// checkSubmit 把底层提交接口的返回码转换为错误，0 表示已受理。
func checkSubmit(code int) error {
	if code == 0 {
		return nil
	}
	return &SubmissionError{Code: code}
}

package task

import "encoding/json"

type Task interface {
	TaskType() string
	TaskValue() ([]byte, error)
}

// Stream types consumed by the retry workers.
const (
	TypeProductRetry = "ProductRetryTask"
	TypePageRetry    = "PageRetryTask"
)

// Types lists every task type that has a stream.
var Types = []string{TypeProductRetry, TypePageRetry}

// DefaultTaskValue provides a common implementation for TaskValue
func DefaultTaskValue(task interface{}) ([]byte, error) {
	return json.Marshal(task)
}

func UnmarshalTask[T Task](task []byte) (T, error) {
	var t T
	err := json.Unmarshal(task, &t)
	return t, err
}

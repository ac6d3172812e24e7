package model

import "time"

// EventType 标识面试记录的变更类型。
type EventType string

const (
	EventCreated EventType = "interview.created"
	EventUpdated EventType = "interview.updated"
	EventDeleted EventType = "interview.deleted"
)

// Event 描述一次成功写入后的变更，PreviousResult 用于识别结果变化。
type Event struct {
	Type           EventType
	OwnerID        string
	Interview      Interview
	PreviousResult Result
	At             time.Time
}

// ResultChanged 表示本次更新将流程推进到了新的最终结果。
func (e Event) ResultChanged() bool {
	return e.Type != EventDeleted && e.Interview.Result != e.PreviousResult && e.Interview.Result.IsTerminal()
}

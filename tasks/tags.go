package tasks

import (
	"taglab.io/tagger/redis"
)

const TagsDB redis.DB = 0

type TaskStatus string

const (
	TaskStatusProcessing       TaskStatus = "processing"
	TaskStatusSubmitted        TaskStatus = "submitted"
	TaskStatusStarted          TaskStatus = "started"
	TaskStatusFailed           TaskStatus = "failed"
	TaskStatusCompletedSuccess TaskStatus = "completed - success"
	TaskStatusCompletedFailure TaskStatus = "completed - failure"
	TaskStatusCanceled         TaskStatus = "canceled"
)

func (s TaskStatus) Complete() bool {
	return s == TaskStatusCompletedSuccess || s == TaskStatusCompletedFailure || s == TaskStatusCanceled
}

func (s TaskStatus) Submitted() bool {
	return s == TaskStatusSubmitted || s == TaskStatusStarted || s == TaskStatusProcessing
}

// TagTask is the redis document tracking one tagging request from
// submission through completion.
type TagTask struct {
	JobID        string          `json:"job_id"`
	TextFileKey  string          `json:"text_file_key"`
	TaskStatuses TagTaskStatuses `json:"task_statuses"`
}

type TagTaskStatuses struct {
	Tagger TagTaskInfo `json:"tagger"`
}

type TagTaskInfo struct {
	ResultsFileKey string     `json:"results_file_key"`
	StartedAt      *string    `json:"started_at"`
	CompletedAt    *string    `json:"completed_at"`
	Attempts       int        `json:"attempts"`
	Status         TaskStatus `json:"status"`
	ErrorMessages  []string   `json:"error_messages"`
}

type TagTasks struct {
	client redis.Client
}

func (tasks TagTasks) Get(redisKey string) (*TagTask, error) {
	var task TagTask
	err := tasks.client.GetJSON(redisKey, &task)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (tasks TagTasks) Update(redisKey string, updateFunc func(task *TagTask)) error {
	var task TagTask
	return tasks.client.UpdateJSON(redisKey, &task, func() {
		updateFunc(&task)
	})
}

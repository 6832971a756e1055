package tasks

import (
	"taglab.io/tagger/redis"
)

const JobsDB redis.DB = 1

// JobTask carries the job level flags the worker consults before
// running a tagging request. Jobs are written by the submitting
// service, this side only reads them.
type JobTask struct {
	UserCanceled bool `json:"user_canceled"`
}

type JobTasks struct {
	client redis.Client
}

func (tasks JobTasks) GetCached(redisKey string) (*JobTask, error) {
	var task JobTask
	key := cachedPropertiesKey(redisKey)
	err := tasks.client.GetJSON(key, &task)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

package worker

import (
	"fmt"

	"taglab.io/tagger/tasks"
)

type redisTransactions interface {
	getTagTask(redisKey string) (*tasks.TagTask, error)
	getJobTask(task *Task) (*tasks.JobTask, error)
	onTaskStarted(task *Task) error
	onTaskCancelled(task *Task, errorMessages ...string) error
	onTaskExceededRetries(task *Task, maxRetries int) error
	onTaskFailedWithError(task *Task, err error) error
	onTaskComplete(task *Task) error
	close()
}

type redisClientWrapper struct {
	tasksClient *tasks.Client
}

func (wrapper *redisClientWrapper) close() {
	wrapper.tasksClient.Close()
}

func (wrapper *redisClientWrapper) onTaskStarted(task *Task) error {
	err := wrapper.tasksClient.Tags.Update(task.redisKey, func(task *tasks.TagTask) {
		task.TaskStatuses.Tagger.Status = tasks.TaskStatusStarted
		task.TaskStatuses.Tagger.Attempts += 1
		task.TaskStatuses.Tagger.StartedAt = getFormattedNow()
		task.TaskStatuses.Tagger.CompletedAt = nil
	})
	return err
}

func (wrapper *redisClientWrapper) onTaskCancelled(task *Task, errorMessages ...string) error {
	err := wrapper.tasksClient.Tags.Update(task.redisKey, func(tagTask *tasks.TagTask) {
		tagTask.TaskStatuses.Tagger.Status = tasks.TaskStatusCanceled
		tagTask.TaskStatuses.Tagger.StartedAt = getFormattedNow()
		tagTask.TaskStatuses.Tagger.CompletedAt = getFormattedNow()
		tagTask.TaskStatuses.Tagger.Attempts += 1
		tagTask.TaskStatuses.Tagger.ErrorMessages = append(
			tagTask.TaskStatuses.Tagger.ErrorMessages,
			errorMessages...,
		)
	})
	return err
}

func (wrapper *redisClientWrapper) onTaskExceededRetries(task *Task, maxRetries int) error {
	return wrapper.tasksClient.Tags.Update(task.redisKey, func(tagTask *tasks.TagTask) {
		tagTask.TaskStatuses.Tagger.Status = tasks.TaskStatusCompletedFailure
		tagTask.TaskStatuses.Tagger.StartedAt = getFormattedNow()
		tagTask.TaskStatuses.Tagger.CompletedAt = getFormattedNow()
		tagTask.TaskStatuses.Tagger.Attempts += 1
		tagTask.TaskStatuses.Tagger.ErrorMessages = append(
			tagTask.TaskStatuses.Tagger.ErrorMessages,
			fmt.Sprintf(
				"Task has exceeded retries. (Attempts: %d, max retries: %d )",
				tagTask.TaskStatuses.Tagger.Attempts,
				maxRetries,
			),
		)
	})
}

func (wrapper *redisClientWrapper) onTaskFailedWithError(task *Task, err error) error {
	return wrapper.tasksClient.Tags.Update(task.redisKey, func(tagTask *tasks.TagTask) {
		tagTask.TaskStatuses.Tagger.Status = tasks.TaskStatusFailed
		tagTask.TaskStatuses.Tagger.CompletedAt = getFormattedNow()
		tagTask.TaskStatuses.Tagger.ErrorMessages = append(tagTask.TaskStatuses.Tagger.ErrorMessages, err.Error())
	})
}

func (wrapper *redisClientWrapper) onTaskComplete(task *Task) error {
	return wrapper.tasksClient.Tags.Update(task.redisKey, func(tagTask *tasks.TagTask) {
		if !tagTask.TaskStatuses.Tagger.Status.Complete() {
			tagTask.TaskStatuses.Tagger.Status = tasks.TaskStatusCompletedSuccess
		}
		tagTask.TaskStatuses.Tagger.CompletedAt = getFormattedNow()
		tagTask.TaskStatuses.Tagger.ResultsFileKey = getResultsFileKey(task)
	})
}

func (wrapper *redisClientWrapper) getTagTask(redisKey string) (*tasks.TagTask, error) {
	return wrapper.tasksClient.Tags.Get(redisKey)
}

func (wrapper *redisClientWrapper) getJobTask(task *Task) (*tasks.JobTask, error) {
	return wrapper.tasksClient.Jobs.GetCached(task.tagTask.JobID)
}

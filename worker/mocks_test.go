package worker

import (
	"errors"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"

	"taglab.io/tagger/tasks"
)

type failingMethod struct {
	fail bool
}

type withValue struct {
	fail          bool
	returnedValue interface{}
}

type taggerMock struct {
	tag    TagText
	config taggerMockConfig
	calls  taggerCall
}

type taggerMockConfig struct {
	fail   bool
	result string
}

type taggerCall struct {
	tag bool
}

type redisMock struct {
	config redisMockConfig
	calls  redisMockCalls
}

type redisMockConfig struct {
	getTagTask            withValue
	getJobTask            withValue
	onTaskCancelled       failingMethod
	onTaskStarted         failingMethod
	onTaskExceededRetries failingMethod
	onTaskFailedWithError failingMethod
	onTaskComplete        failingMethod
}

type redisMockCalls struct {
	getTagTask            bool
	getJobTask            bool
	onTaskCancelled       bool
	onTaskStarted         bool
	onTaskExceededRetries bool
	onTaskFailedWithError bool
	onTaskComplete        bool
}

type rmqMock struct {
	config rmqMockConfig
	calls  rmqMockCalls
}

type rmqMockConfig struct {
	publishResult       failingMethod
	acknowledgeDelivery failingMethod
}

type rmqMockCalls struct {
	publishResult       bool
	acknowledgeDelivery bool
	rejectDelivery      bool
}

type storeMock struct {
	config storeMockConfig
	calls  storeMockCalls
}

type storeMockConfig struct {
	getRequestText  withValue
	saveResultsFile failingMethod
}

type storeMockCalls struct {
	getRequestText  bool
	saveResultsFile bool
}

func (mock *storeMock) close() {}

func (mock *rmqMock) close() {}

func (mock *redisMock) close() {}

func getTaggerMock(config taggerMockConfig) *taggerMock {
	var mock taggerMock
	if config.fail {
		mock.tag = func(text string) (string, error) {
			mock.calls.tag = true
			return "", errors.New("mock: tagging failed")
		}
	} else {
		mock.tag = func(text string) (string, error) {
			mock.calls.tag = true
			return config.result, nil
		}
	}
	return &mock
}

func (mock *redisMock) getTagTask(redisKey string) (*tasks.TagTask, error) {
	mock.calls.getTagTask = true
	if mock.config.getTagTask.fail {
		return nil, errors.New("failed to get tag task")
	}
	switch value := mock.config.getTagTask.returnedValue.(type) {
	case tasks.TagTask:
		return &value, nil
	default:
		return &tasks.TagTask{}, nil
	}
}

func (mock *redisMock) getJobTask(task *Task) (*tasks.JobTask, error) {
	mock.calls.getJobTask = true
	if mock.config.getJobTask.fail {
		return nil, errors.New("failed to get job task")
	}
	switch value := mock.config.getJobTask.returnedValue.(type) {
	case tasks.JobTask:
		return &value, nil
	default:
		return &tasks.JobTask{}, nil
	}
}

func (mock *redisMock) onTaskStarted(task *Task) error {
	mock.calls.onTaskStarted = true
	if mock.config.onTaskStarted.fail {
		return errors.New("failed to update tag task on start")
	}
	return nil
}

func (mock *redisMock) onTaskCancelled(task *Task, errorMessages ...string) error {
	mock.calls.onTaskCancelled = true
	if mock.config.onTaskCancelled.fail {
		return errors.New("failed to update tag task on cancel")
	}
	return nil
}

func (mock *redisMock) onTaskExceededRetries(task *Task, maxRetries int) error {
	mock.calls.onTaskExceededRetries = true
	if mock.config.onTaskExceededRetries.fail {
		return errors.New("failed to update tag task on exceeded retries")
	}
	return nil
}

func (mock *redisMock) onTaskFailedWithError(task *Task, err error) error {
	mock.calls.onTaskFailedWithError = true
	if mock.config.onTaskFailedWithError.fail {
		return errors.New("failed to update tag task on fail with error")
	}
	return nil
}

func (mock *redisMock) onTaskComplete(task *Task) error {
	mock.calls.onTaskComplete = true
	if mock.config.onTaskComplete.fail {
		return errors.New("failed to update tag task on complete")
	}
	return nil
}

func (mock *rmqMock) rejectDelivery(delivery *amqp.Delivery, rejectLogger *zerolog.Logger) {
	mock.calls.rejectDelivery = true
}

func (mock *rmqMock) getDeliveriesCh() <-chan amqp.Delivery {
	return nil
}

func (mock *rmqMock) getReqChanErrorsCh() <-chan *amqp.Error {
	return nil
}

func (mock *rmqMock) getRespChanErrorsCh() <-chan *amqp.Error {
	return nil
}

func (mock *rmqMock) publishResult(task *Task, message Message) error {
	mock.calls.publishResult = true
	if mock.config.publishResult.fail {
		return errors.New("failed to publish result")
	}
	return nil
}

func (mock *rmqMock) acknowledgeDelivery(delivery *amqp.Delivery) error {
	mock.calls.acknowledgeDelivery = true
	if mock.config.acknowledgeDelivery.fail {
		return errors.New("failed to acknowledge delivery")
	}
	return nil
}

func (mock *storeMock) getRequestText(task *Task) ([]byte, error) {
	mock.calls.getRequestText = true
	if mock.config.getRequestText.fail {
		return nil, errors.New("mock: failed to load from s3")
	}
	switch value := mock.config.getRequestText.returnedValue.(type) {
	case []byte:
		return value, nil
	default:
		return []byte("some input"), nil
	}
}

func (mock *storeMock) saveResultsFile(task *Task, result string) error {
	mock.calls.saveResultsFile = true
	if mock.config.saveResultsFile.fail {
		return errors.New("failed to upload results")
	}
	return nil
}

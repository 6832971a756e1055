package worker

import (
	"reflect"
	"testing"

	"github.com/streadway/amqp"

	"taglab.io/tagger/logger"
	"taglab.io/tagger/tasks"
)

type mockedClientsConfig struct {
	rmqMockConfig
	redisMockConfig
	storeMockConfig
	taggerMockConfig
}

type mockedClients struct {
	redis  *redisMock
	rmq    *rmqMock
	store  *storeMock
	tagger *taggerMock
}

type methodsCalls struct {
	redis  redisMockCalls
	rmq    rmqMockCalls
	store  storeMockCalls
	tagger taggerCall
}

func testConfiguration(t *testing.T, config mockedClientsConfig, expectedCalls methodsCalls) {
	worker, mocks := configureWorker(config)
	worker.processMessage(&amqp.Delivery{
		Body: []byte("{}"),
	})
	calls := methodsCalls{
		redis:  mocks.redis.calls,
		rmq:    mocks.rmq.calls,
		store:  mocks.store.calls,
		tagger: mocks.tagger.calls,
	}
	if !reflect.DeepEqual(calls, expectedCalls) {
		t.Errorf("Got unexpected called methods set.\nExpected:\n%+v\nGot:\n%+v", expectedCalls, calls)
	}
}

func configureWorker(config mockedClientsConfig) (*Worker, *mockedClients) {
	redis := &redisMock{config: config.redisMockConfig}
	store := &storeMock{config: config.storeMockConfig}
	rmq := &rmqMock{config: config.rmqMockConfig}
	taggerMock := getTaggerMock(config.taggerMockConfig)

	workerLogger := logger.NewLogger("Test Worker")

	return &Worker{
			config:       Config{3},
			redis:        redis,
			store:        store,
			rmq:          rmq,
			workerLogger: &workerLogger,
			tag:          taggerMock.tag,
		}, &mockedClients{
			redis:  redis,
			rmq:    rmq,
			store:  store,
			tagger: taggerMock,
		}
}

func TestWorker(t *testing.T) {
	t.Run("Successful", testSuccessfulTask)
	t.Run("Failed to get tag task", testGetTagTaskFailed)
	t.Run("Failed to get job task", testGetJobTaskFailed)
	t.Run("Already complete with success", testAlreadyCompletedSuccessfully)
	t.Run("Already complete with failure", testAlreadyCompletedWithFailure)
	t.Run("User cancelled", testUserCancelled)
	t.Run("Exceeded attempts", testExceededAttempts)
	t.Run("Failed to update task in onTaskStarted", testFailedToUpdateOnTaskStarted)
	t.Run("Failed to load data from S3", testFailedToFetchFromS3)
	t.Run("Failed due to tagger error", testTaggerError)
	t.Run("Failed to update task in onTaskFailedWithError", testFailedToUpdateOnTaskFailedWithError)
	t.Run("Failed to update task in onTaskComplete", testFailedToUpdateOnTaskComplete)
	t.Run("Failed to save result to S3", testFailedToSaveToS3)
	t.Run("Failed to acknowledge delivery", testFailedAckDelivery)
	t.Run("Failed to publish result", testFailedPublishResult)
}

func testSuccessfulTask(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{},
		methodsCalls{
			redis: redisMockCalls{
				getTagTask: true, getJobTask: true, onTaskStarted: true, onTaskComplete: true,
			},
			rmq: rmqMockCalls{publishResult: true, acknowledgeDelivery: true},
			store: storeMockCalls{
				getRequestText:  true,
				saveResultsFile: true,
			},
			tagger: taggerCall{true},
		},
	)
}

func testGetTagTaskFailed(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			redisMockConfig: redisMockConfig{
				getTagTask: withValue{fail: true},
			},
		},
		methodsCalls{
			redis: redisMockCalls{getTagTask: true},
			rmq:   rmqMockCalls{rejectDelivery: true},
		},
	)
}

func testGetJobTaskFailed(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			redisMockConfig: redisMockConfig{
				getJobTask: withValue{fail: true},
			},
		},
		methodsCalls{
			redis: redisMockCalls{getTagTask: true, getJobTask: true},
			rmq:   rmqMockCalls{rejectDelivery: true},
		},
	)
}

func testAlreadyCompletedSuccessfully(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			redisMockConfig: redisMockConfig{
				getTagTask: withValue{
					returnedValue: tasks.TagTask{
						TaskStatuses: tasks.TagTaskStatuses{Tagger: tasks.TagTaskInfo{Status: tasks.TaskStatusCompletedSuccess}},
					},
				},
			},
		},
		methodsCalls{
			redis: redisMockCalls{getTagTask: true},
			rmq:   rmqMockCalls{publishResult: true, acknowledgeDelivery: true},
		},
	)
}

func testAlreadyCompletedWithFailure(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			redisMockConfig: redisMockConfig{
				getTagTask: withValue{
					returnedValue: tasks.TagTask{
						TaskStatuses: tasks.TagTaskStatuses{Tagger: tasks.TagTaskInfo{Status: tasks.TaskStatusCompletedFailure}},
					},
				},
			},
		},
		methodsCalls{
			redis: redisMockCalls{getTagTask: true},
			rmq:   rmqMockCalls{publishResult: true, acknowledgeDelivery: true},
		},
	)
}

func testUserCancelled(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			redisMockConfig: redisMockConfig{
				getJobTask: withValue{returnedValue: tasks.JobTask{UserCanceled: true}},
			},
		},
		methodsCalls{
			redis: redisMockCalls{getTagTask: true, getJobTask: true, onTaskCancelled: true},
			rmq:   rmqMockCalls{publishResult: true, acknowledgeDelivery: true},
		},
	)
}

func testExceededAttempts(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			redisMockConfig: redisMockConfig{
				getTagTask: withValue{
					returnedValue: tasks.TagTask{
						TaskStatuses: tasks.TagTaskStatuses{Tagger: tasks.TagTaskInfo{Attempts: 3}},
					},
				},
			},
		},
		methodsCalls{
			redis: redisMockCalls{getTagTask: true, getJobTask: true, onTaskExceededRetries: true},
			rmq:   rmqMockCalls{publishResult: true, acknowledgeDelivery: true},
		},
	)
}

func testFailedToUpdateOnTaskStarted(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			redisMockConfig: redisMockConfig{
				onTaskStarted: failingMethod{fail: true},
			},
		},
		methodsCalls{
			redis: redisMockCalls{getTagTask: true, getJobTask: true, onTaskStarted: true},
			rmq:   rmqMockCalls{rejectDelivery: true},
		},
	)
}

func testFailedToFetchFromS3(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			storeMockConfig: storeMockConfig{
				getRequestText: withValue{fail: true},
			},
		},
		methodsCalls{
			redis: redisMockCalls{
				getTagTask: true, getJobTask: true, onTaskStarted: true, onTaskFailedWithError: true,
			},
			rmq:   rmqMockCalls{publishResult: true, acknowledgeDelivery: true},
			store: storeMockCalls{getRequestText: true},
		},
	)
}

func testTaggerError(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			taggerMockConfig: taggerMockConfig{fail: true},
		},
		methodsCalls{
			redis: redisMockCalls{
				getTagTask: true, getJobTask: true, onTaskStarted: true, onTaskFailedWithError: true,
			},
			rmq:    rmqMockCalls{publishResult: true, acknowledgeDelivery: true},
			store:  storeMockCalls{getRequestText: true},
			tagger: taggerCall{true},
		},
	)
}

func testFailedToUpdateOnTaskFailedWithError(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			taggerMockConfig: taggerMockConfig{fail: true},
			redisMockConfig: redisMockConfig{
				onTaskFailedWithError: failingMethod{fail: true},
			},
		},
		methodsCalls{
			redis: redisMockCalls{
				getTagTask: true, getJobTask: true, onTaskStarted: true, onTaskFailedWithError: true,
			},
			rmq:    rmqMockCalls{rejectDelivery: true},
			store:  storeMockCalls{getRequestText: true},
			tagger: taggerCall{true},
		},
	)
}

func testFailedToUpdateOnTaskComplete(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			redisMockConfig: redisMockConfig{
				onTaskComplete: failingMethod{fail: true},
			},
		},
		methodsCalls{
			redis: redisMockCalls{
				getTagTask: true, getJobTask: true, onTaskStarted: true, onTaskComplete: true,
			},
			rmq: rmqMockCalls{rejectDelivery: true},
			store: storeMockCalls{
				getRequestText:  true,
				saveResultsFile: true,
			},
			tagger: taggerCall{true},
		},
	)
}

func testFailedToSaveToS3(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			storeMockConfig: storeMockConfig{
				saveResultsFile: failingMethod{fail: true},
			},
		},
		methodsCalls{
			redis: redisMockCalls{
				getTagTask: true, getJobTask: true, onTaskStarted: true, onTaskFailedWithError: true,
			},
			rmq: rmqMockCalls{publishResult: true, acknowledgeDelivery: true},
			store: storeMockCalls{
				getRequestText:  true,
				saveResultsFile: true,
			},
			tagger: taggerCall{true},
		},
	)
}

func testFailedAckDelivery(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			rmqMockConfig: rmqMockConfig{
				acknowledgeDelivery: failingMethod{fail: true},
			},
		},
		methodsCalls{
			redis: redisMockCalls{
				getTagTask: true, getJobTask: true, onTaskStarted: true, onTaskComplete: true,
			},
			rmq: rmqMockCalls{publishResult: true, acknowledgeDelivery: true},
			store: storeMockCalls{
				getRequestText:  true,
				saveResultsFile: true,
			},
			tagger: taggerCall{true},
		},
	)
}

func testFailedPublishResult(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			rmqMockConfig: rmqMockConfig{
				publishResult: failingMethod{fail: true},
			},
		},
		methodsCalls{
			redis: redisMockCalls{
				getTagTask: true, getJobTask: true, onTaskStarted: true, onTaskComplete: true,
			},
			rmq: rmqMockCalls{publishResult: true, rejectDelivery: true},
			store: storeMockCalls{
				getRequestText:  true,
				saveResultsFile: true,
			},
			tagger: taggerCall{true},
		},
	)
}

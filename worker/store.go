package worker

import (
	"taglab.io/tagger/modelstore"
)

type storeTransactions interface {
	saveResultsFile(task *Task, result string) error
	getRequestText(task *Task) ([]byte, error)
	close()
}

type storeClientWrapper struct {
	storeClient *modelstore.Client
}

func (wrapper *storeClientWrapper) close() {
	wrapper.storeClient.Close()
}

func (wrapper *storeClientWrapper) saveResultsFile(task *Task, result string) error {
	resultsFileKey := getResultsFileKey(task)
	_, err := wrapper.storeClient.Upload([]byte(result), resultsFileKey)
	return err
}

func (wrapper *storeClientWrapper) getRequestText(task *Task) ([]byte, error) {
	return wrapper.storeClient.Download(task.tagTask.TextFileKey)
}

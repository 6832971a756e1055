package tasks

import (
	"fmt"

	"taglab.io/tagger/redis"
)

type Client struct {
	Tags TagTasks
	Jobs JobTasks
}

// NewClient is the preferred way of working with task documents.
func NewClient() (Client, error) {
	tagsRedisClient, err := redis.NewClient(TagsDB)
	if err != nil {
		return Client{}, err
	}
	jobsRedisClient, err := redis.NewClient(JobsDB)
	if err != nil {
		return Client{}, err
	}
	return Client{
		Tags: TagTasks{client: tagsRedisClient},
		Jobs: JobTasks{client: jobsRedisClient},
	}, nil
}

func (client *Client) Close() {
	_ = client.Tags.client.Close()
	_ = client.Jobs.client.Close()
}

func cachedPropertiesKey(redisKey string) string {
	return fmt.Sprintf("%s-cached-properties", redisKey)
}

// Package scheduler self-schedules the next Bridge worker drain trigger as
// a Google Cloud Task, adapted from the teacher's cloud-backed webhook
// dispatcher (internal/webhooks/cloud_dispatcher.go).
package scheduler

import (
	"context"
	"fmt"
	"time"

	cloudtasks "cloud.google.com/go/cloudtasks/apiv2"
	"cloud.google.com/go/cloudtasks/apiv2/cloudtaskspb"
)

// Dispatcher enqueues a drain-trigger HTTP task.
type Dispatcher interface {
	ScheduleDrain(ctx context.Context, delay time.Duration) error
}

// CloudTasksDispatcher posts to TargetURL via a Cloud Tasks queue.
type CloudTasksDispatcher struct {
	client       *cloudtasks.Client
	queuePath    string
	targetURL    string
	bearerToken  string
}

func NewCloudTasksDispatcher(client *cloudtasks.Client, projectID, locationID, queueID, targetURL, bearerToken string) *CloudTasksDispatcher {
	return &CloudTasksDispatcher{
		client:      client,
		queuePath:   fmt.Sprintf("projects/%s/locations/%s/queues/%s", projectID, locationID, queueID),
		targetURL:   targetURL,
		bearerToken: bearerToken,
	}
}

func (d *CloudTasksDispatcher) ScheduleDrain(ctx context.Context, delay time.Duration) error {
	task := &cloudtaskspb.Task{
		MessageType: &cloudtaskspb.Task_HttpRequest{
			HttpRequest: &cloudtaskspb.HttpRequest{
				Url:        d.targetURL,
				HttpMethod: cloudtaskspb.HttpMethod_POST,
				Headers:    map[string]string{"Authorization": "Bearer " + d.bearerToken},
			},
		},
	}
	if delay > 0 {
		task.ScheduleTime = timestampAfter(delay)
	}

	_, err := d.client.CreateTask(ctx, &cloudtaskspb.CreateTaskRequest{
		Parent: d.queuePath,
		Task:   task,
	})
	if err != nil {
		return fmt.Errorf("scheduler: create task: %w", err)
	}
	return nil
}

// InMemoryDispatcher is a Dispatcher that only records the requested
// delays; it creates no task.
type InMemoryDispatcher struct {
	Calls []time.Duration
}

func NewInMemoryDispatcher() *InMemoryDispatcher {
	return &InMemoryDispatcher{}
}

func (d *InMemoryDispatcher) ScheduleDrain(_ context.Context, delay time.Duration) error {
	d.Calls = append(d.Calls, delay)
	return nil
}

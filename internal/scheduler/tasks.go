package scheduler

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const TaskMatchingDailySweep = "matching.daily_sweep"

const TaskMatchingRunClient = "matching.run_client"

const TaskMatchingNewProperty = "matching.new_property"

type RunClientPayload struct {
	ClientID string `json:"clientId"`
}

type NewPropertyPayload struct {
	ClientID   string `json:"clientId"`
	PropertyID string `json:"propertyId"`
}

func NewDailySweepTask() *asynq.Task {
	return asynq.NewTask(TaskMatchingDailySweep, nil)
}

func NewRunClientTask(payload RunClientPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskMatchingRunClient, data), nil
}

func ParseRunClientPayload(task *asynq.Task) (RunClientPayload, error) {
	var payload RunClientPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return RunClientPayload{}, err
	}
	if payload.ClientID == "" {
		return RunClientPayload{}, fmt.Errorf("%s: missing clientId", TaskMatchingRunClient)
	}
	return payload, nil
}

func NewNewPropertyTask(payload NewPropertyPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskMatchingNewProperty, data), nil
}

func ParseNewPropertyPayload(task *asynq.Task) (NewPropertyPayload, error) {
	var payload NewPropertyPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return NewPropertyPayload{}, err
	}
	if payload.ClientID == "" || payload.PropertyID == "" {
		return NewPropertyPayload{}, fmt.Errorf("%s: missing clientId or propertyId", TaskMatchingNewProperty)
	}
	return payload, nil
}

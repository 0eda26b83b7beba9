package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"

	"meetrecord/internal/config"
	"meetrecord/internal/recorder"
)

type ecsAPI interface {
	RunTask(ctx context.Context, params *ecs.RunTaskInput, optFns ...func(*ecs.Options)) (*ecs.RunTaskOutput, error)
	StopTask(ctx context.Context, params *ecs.StopTaskInput, optFns ...func(*ecs.Options)) (*ecs.StopTaskOutput, error)
	StartTask(ctx context.Context, params *ecs.StartTaskInput, optFns ...func(*ecs.Options)) (*ecs.StartTaskOutput, error)
	ListContainerInstances(ctx context.Context, params *ecs.ListContainerInstancesInput, optFns ...func(*ecs.Options)) (*ecs.ListContainerInstancesOutput, error)
}

// LaunchSpec — параметры запуска контейнера записи. Блобы передаются
// воркеру через окружение в base64, чтобы пережить любое экранирование
// по дороге.
type LaunchSpec struct {
	BotID        string
	MeetingData  []byte
	AttendeeData []byte
	ObjectKey    string
}

// SchedulerService управляет контейнерами записи в кластере ECS: запуск,
// остановка и прогрев свежих хостов автоскейлинга.
type SchedulerService struct {
	client ecsAPI
	cfg    *config.RecordingConfig

	// подменяется в тестах
	sleep func(time.Duration)
}

func NewSchedulerService(client ecsAPI, cfg *config.RecordingConfig) *SchedulerService {
	return &SchedulerService{
		client: client,
		cfg:    cfg,
		sleep:  time.Sleep,
	}
}

// Launch запускает контейнер записи и возвращает ARN задачи. Запуск
// считается успешным только при однозначном исходе: ровно одна задача,
// без отказов размещения, в желаемом статусе RUNNING. Любая
// неоднозначность — ошибка, вызывающий не должен сохранять запись.
func (s *SchedulerService) Launch(ctx context.Context, spec LaunchSpec) (string, error) {
	env := []ecstypes.KeyValuePair{
		{Name: aws.String(recorder.EnvTaskType), Value: aws.String(recorder.TaskTypeRecording)},
		{Name: aws.String(recorder.EnvMeetingData), Value: aws.String(base64.StdEncoding.EncodeToString(spec.MeetingData))},
		{Name: aws.String(recorder.EnvAttendeeData), Value: aws.String(base64.StdEncoding.EncodeToString(spec.AttendeeData))},
		{Name: aws.String(recorder.EnvBucket), Value: aws.String(s.cfg.Bucket)},
		{Name: aws.String(recorder.EnvObjectKey), Value: aws.String(spec.ObjectKey)},
		{Name: aws.String(recorder.EnvScreenWidth), Value: aws.String(strconv.Itoa(s.cfg.ScreenWidth))},
		{Name: aws.String(recorder.EnvScreenHeight), Value: aws.String(strconv.Itoa(s.cfg.ScreenHeight))},
	}

	result, err := s.client.RunTask(ctx, &ecs.RunTaskInput{
		Cluster:        aws.String(s.cfg.ECSClusterARN),
		TaskDefinition: aws.String(s.cfg.ECSTaskDefinitionARN),
		Count:          aws.Int32(1),
		StartedBy:      aws.String("Recording-" + spec.BotID),
		Overrides: &ecstypes.TaskOverride{
			ContainerOverrides: []ecstypes.ContainerOverride{
				{
					Name:        aws.String(s.cfg.ECSContainerName),
					Environment: env,
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to run recording task: %w", err)
	}

	if len(result.Failures) > 0 {
		return "", fmt.Errorf("recording task placement failed: %s", failureSummary(result.Failures))
	}
	if len(result.Tasks) != 1 {
		return "", fmt.Errorf("expected exactly one recording task, got %d", len(result.Tasks))
	}

	task := result.Tasks[0]
	if aws.ToString(task.DesiredStatus) != "RUNNING" {
		return "", fmt.Errorf("recording task in unexpected desired status %q", aws.ToString(task.DesiredStatus))
	}

	taskARN := aws.ToString(task.TaskArn)
	log.Printf("[Scheduler] Recording task started: %s", taskARN)
	return taskARN, nil
}

// Stop останавливает задачу записи. Возвращает true только при
// подтвержденном переводе в STOPPED.
func (s *SchedulerService) Stop(ctx context.Context, taskARN string, reason string) (bool, error) {
	result, err := s.client.StopTask(ctx, &ecs.StopTaskInput{
		Cluster: aws.String(s.cfg.ECSClusterARN),
		Task:    aws.String(taskARN),
		Reason:  aws.String(reason),
	})
	if err != nil {
		return false, fmt.Errorf("failed to stop recording task %s: %w", taskARN, err)
	}

	if result.Task == nil || aws.ToString(result.Task.DesiredStatus) != "STOPPED" {
		return false, nil
	}

	log.Printf("[Scheduler] Recording task stopped: %s", taskARN)
	return true, nil
}

// PreWarm запускает прогревочную задачу на свежем хосте автоскейлинга,
// чтобы образ контейнера записи оказался на диске до первого реального
// запуска. instanceID — EC2-идентификатор только что поднятого хоста.
func (s *SchedulerService) PreWarm(ctx context.Context, instanceID string) error {
	containerInstanceARN, err := s.findContainerInstance(ctx, instanceID)
	if err != nil {
		return err
	}

	result, err := s.client.StartTask(ctx, &ecs.StartTaskInput{
		Cluster:            aws.String(s.cfg.ECSClusterARN),
		TaskDefinition:     aws.String(s.cfg.ECSTaskDefinitionARN),
		ContainerInstances: []string{containerInstanceARN},
		StartedBy:          aws.String("PreWarm-" + instanceID),
		Overrides: &ecstypes.TaskOverride{
			ContainerOverrides: []ecstypes.ContainerOverride{
				{
					Name: aws.String(s.cfg.ECSContainerName),
					Environment: []ecstypes.KeyValuePair{
						{Name: aws.String(recorder.EnvTaskType), Value: aws.String(recorder.TaskTypePreWarm)},
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to start pre-warm task on %s: %w", instanceID, err)
	}

	if len(result.Failures) > 0 {
		return fmt.Errorf("pre-warm task placement failed: %s", failureSummary(result.Failures))
	}
	if len(result.Tasks) != 1 {
		return fmt.Errorf("expected exactly one pre-warm task, got %d", len(result.Tasks))
	}
	if status := aws.ToString(result.Tasks[0].DesiredStatus); status != "RUNNING" {
		return fmt.Errorf("pre-warm task in unexpected desired status %q", status)
	}

	log.Printf("[Scheduler] Pre-warm task started on instance %s", instanceID)
	return nil
}

// findContainerInstance ищет регистрацию EC2-хоста в кластере. Хост
// регистрируется асинхронно после запуска, поэтому одна повторная
// попытка после паузы.
func (s *SchedulerService) findContainerInstance(ctx context.Context, instanceID string) (string, error) {
	filter := fmt.Sprintf("ec2InstanceId == %s", instanceID)

	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			s.sleep(time.Duration(s.cfg.PreWarmRetryDelaySeconds) * time.Second)
		}

		result, err := s.client.ListContainerInstances(ctx, &ecs.ListContainerInstancesInput{
			Cluster: aws.String(s.cfg.ECSClusterARN),
			Filter:  aws.String(filter),
		})
		if err != nil {
			return "", fmt.Errorf("failed to list container instances: %w", err)
		}

		if len(result.ContainerInstanceArns) > 0 {
			return result.ContainerInstanceArns[0], nil
		}

		log.Printf("[Scheduler] Instance %s not registered in cluster yet (attempt %d)", instanceID, attempt+1)
	}

	return "", fmt.Errorf("instance %s did not register in cluster", instanceID)
}

func failureSummary(failures []ecstypes.Failure) string {
	summary := ""
	for i, f := range failures {
		if i > 0 {
			summary += "; "
		}
		summary += fmt.Sprintf("%s: %s", aws.ToString(f.Arn), aws.ToString(f.Reason))
	}
	return summary
}

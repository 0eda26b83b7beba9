package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"meetrecord/internal/recorder"
	"meetrecord/internal/service/s3"
)

// Точка входа контейнера записи. Планировщик передает все параметры через
// окружение задачи; тип задачи выбирает между реальной записью и прогревом.
func main() {
	taskType := os.Getenv(recorder.EnvTaskType)

	switch taskType {
	case recorder.TaskTypePreWarm:
		// Образ уже вытянут на хост, больше от прогрева ничего не нужно
		log.Printf("[Worker] Pre-warm task complete")
		return
	case recorder.TaskTypeRecording:
	default:
		log.Fatalf("[Worker] Unknown task type %q", taskType)
	}

	cfg, err := recorder.ConfigFromEnv()
	if err != nil {
		log.Fatalf("[Worker] Invalid environment: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storage, err := s3.NewClientFromEnv(ctx, cfg.Bucket)
	if err != nil {
		log.Fatalf("[Worker] Failed to create S3 client: %v", err)
	}

	pipeline := recorder.NewPipeline(cfg, storage)
	if err := pipeline.Run(ctx); err != nil {
		log.Fatalf("[Worker] Recording failed: %v", err)
	}

	log.Printf("[Worker] Recording task complete")
}

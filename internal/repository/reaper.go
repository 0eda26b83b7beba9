package repository

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

type purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Reaper периодически вычищает строки с истекшим TTL. Хранилище само по
// себе строки не удаляет, expires_at — лишь отметка, которую нужно
// отрабатывать фоновым процессом.
type Reaper struct {
	cron       *cron.Cron
	recordings purger
	meetings   purger
	cache      purger
}

func NewReaper(recordings, meetings, cache purger) *Reaper {
	return &Reaper{
		cron:       cron.New(),
		recordings: recordings,
		meetings:   meetings,
		cache:      cache,
	}
}

// Start запускает ежечасную уборку. Останавливается через Stop.
func (r *Reaper) Start() error {
	_, err := r.cron.AddFunc("@hourly", r.runOnce)
	if err != nil {
		return err
	}
	r.cron.Start()
	log.Printf("[Reaper] Started hourly TTL cleanup")
	return nil
}

func (r *Reaper) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	log.Printf("[Reaper] Stopped")
}

func (r *Reaper) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if n, err := r.recordings.PurgeExpired(ctx); err != nil {
		log.Printf("[Reaper] Failed to purge recordings: %v", err)
	} else if n > 0 {
		log.Printf("[Reaper] Purged %d expired recordings", n)
	}

	if n, err := r.meetings.PurgeExpired(ctx); err != nil {
		log.Printf("[Reaper] Failed to purge meetings: %v", err)
	} else if n > 0 {
		log.Printf("[Reaper] Purged %d expired meetings", n)
	}

	if n, err := r.cache.PurgeExpired(ctx); err != nil {
		log.Printf("[Reaper] Failed to purge operator cache: %v", err)
	} else if n > 0 {
		log.Printf("[Reaper] Purged %d expired operator cache rows", n)
	}
}

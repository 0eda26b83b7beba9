// storage.go
package s3

import (
	"context"
	"io"
	"time"
)

// Storage определяет интерфейс для работы с S3-совместимым хранилищем
type Storage interface {
	// UploadStream ведет потоковую загрузку по частям, размер заранее
	// неизвестен. Возвращает после полной выгрузки хвоста потока.
	UploadStream(ctx context.Context, key string, body io.Reader, contentType string) error
	// PresignGetObject выдает подписанную ссылку на скачивание объекта
	PresignGetObject(ctx context.Context, key string, expires time.Duration) (string, error)
	HeadObject(ctx context.Context, key string) (bool, error)
	DeleteObject(ctx context.Context, key string) error
}

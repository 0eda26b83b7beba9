package recording

import (
	"context"
	"log"
	"sync"
	"time"
)

// StopCounts — ответ сервера на остановку записи.
type StopCounts struct {
	StoppedCount    int `json:"stoppedCount"`
	NotStoppedCount int `json:"notStoppedCount"`
}

// Client — серверные операции записи, которые дергает машина состояний.
type Client interface {
	StartRecording(ctx context.Context) error
	StopRecording(ctx context.Context) (StopCounts, error)
}

// Features — флаги, управляющие видимостью и автозапуском записи.
type Features struct {
	StartStopEnabled       bool
	RecordingStackDeployed bool
	AutoStartEnabled       bool
}

// Observer получает каждое изменение состояния. suppressInfo выставляется
// для рутинных системных подтверждений: информационный тост можно не
// показывать, ошибки подавлению не подлежат.
type Observer func(status Status, suppressInfo bool)

const defaultPresenceDebounce = time.Second

// Manager — машина состояний записи на стороне клиента встречи. Все
// переходы сериализуются мьютексом: машина никогда не находится в двух
// состояниях сразу, а недопустимые команды просто не выполняются.
type Manager struct {
	mu        sync.Mutex
	status    Status
	client    Client
	features  Features
	observers map[string]Observer

	present       bool
	presenceTimer *time.Timer
	debounce      time.Duration
}

type Option func(*Manager)

// WithPresenceDebounce задает паузу между пропаданием бота из ростера и
// переходом в STOPPED. Пауза гасит дребезг при перезаключении соединения.
func WithPresenceDebounce(d time.Duration) Option {
	return func(m *Manager) {
		m.debounce = d
	}
}

func NewManager(client Client, features Features, opts ...Option) *Manager {
	m := &Manager{
		status:    StatusNotStarted,
		client:    client,
		features:  features,
		observers: make(map[string]Observer),
		debounce:  defaultPresenceDebounce,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Status возвращает текущее состояние машины.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Subscribe регистрирует наблюдателя под ключом. Повторная подписка с тем
// же ключом замещает старую.
func (m *Manager) Subscribe(key string, observer Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers[key] = observer
}

// Unsubscribe снимает наблюдателя. Обязателен при демонтаже компонента.
func (m *Manager) Unsubscribe(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.observers, key)
}

// SetFeatures обновляет флаги, например после перечитывания профиля.
func (m *Manager) SetFeatures(features Features) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.features = features
}

// ToggleEnabled — показывать ли кнопку записи вообще.
func (m *Manager) ToggleEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.features.StartStopEnabled && m.features.RecordingStackDeployed
}

// ShouldAutoStart — запускать ли запись сразу после входа в встречу.
// Автозапуск не зависит от видимости ручной кнопки.
func (m *Manager) ShouldAutoStart() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.features.AutoStartEnabled && m.features.RecordingStackDeployed
}

// Start запускает запись. Из состояний, где запуск не разрешен, ничего
// не делает и возвращает текущее состояние.
func (m *Manager) Start(ctx context.Context) Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.status.Startable() {
		return m.status
	}
	return m.startLocked(ctx)
}

func (m *Manager) startLocked(ctx context.Context) Status {
	if err := m.client.StartRecording(ctx); err != nil {
		log.Printf("[RecordingManager] Start failed: %v", err)
		m.transitionLocked(StatusStartingFailed, false)
		return m.status
	}

	m.transitionLocked(StatusStarting, false)
	return m.status
}

// Stop останавливает запись. Итог трехзначный: сервер сообщает, сколько
// процессов записи остановилось и сколько нет, и смесь этих чисел не
// выдается за полный успех.
func (m *Manager) Stop(ctx context.Context) Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.status.Stoppable() {
		return m.status
	}
	return m.stopLocked(ctx, false)
}

// stopLocked останавливает запись. suppressInfo относится только к
// благополучному исходу: сбои и неоднозначные итоги показываются всегда.
func (m *Manager) stopLocked(ctx context.Context, suppressInfo bool) Status {
	counts, err := m.client.StopRecording(ctx)
	if err != nil {
		log.Printf("[RecordingManager] Stop failed: %v", err)
		m.transitionLocked(StatusStoppingFailed, false)
		return m.status
	}

	switch {
	case counts.StoppedCount > 0 && counts.NotStoppedCount == 0:
		m.transitionLocked(StatusStopping, suppressInfo)
	case counts.NotStoppedCount > 0 && counts.StoppedCount == 0:
		m.transitionLocked(StatusStoppingFailed, false)
	default:
		m.transitionLocked(StatusStoppingUnknown, false)
	}
	return m.status
}

// Toggle — один обработчик на кнопку: запускает или останавливает по
// текущему состоянию. Если ни то ни другое не разрешено, наблюдатели
// получают REQUEST_REJECTED, но состояние машины не меняется — отказ
// относится к этому нажатию, а не к записи.
func (m *Manager) Toggle(ctx context.Context) Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case m.status.Startable():
		return m.startLocked(ctx)
	case m.status.Stoppable():
		return m.stopLocked(ctx, false)
	default:
		m.publishLocked(StatusRequestRejected, false)
		return m.status
	}
}

// SetAttendeePresent — сверка с ростером встречи. Появление бота в
// ростере и есть настоящее подтверждение записи: успешный запуск
// контейнера означает лишь, что процесс стартовал, а не что он вошел в
// встречу. Пропадание бота переводит в STOPPED после паузы.
func (m *Manager) SetAttendeePresent(present bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wasPresent := m.present
	m.present = present

	if present && !wasPresent {
		if m.presenceTimer != nil {
			m.presenceTimer.Stop()
			m.presenceTimer = nil
		}
		if m.status == StatusStarting {
			m.transitionLocked(StatusStarted, false)
		}
		return
	}

	if !present && wasPresent {
		if m.presenceTimer != nil {
			m.presenceTimer.Stop()
		}
		m.presenceTimer = time.AfterFunc(m.debounce, m.presenceLost)
	}
}

func (m *Manager) presenceLost() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.presenceTimer = nil
	if m.present {
		return
	}
	m.transitionLocked(StatusStopped, false)
}

// MeetingEnded — встреча завершается. Если запись еще идет, останавливаем
// ее без прощального тоста: пользователь и так выходит.
func (m *Manager) MeetingEnded(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.status.Stoppable() {
		return
	}
	m.stopLocked(ctx, true)
}

func (m *Manager) transitionLocked(status Status, suppressInfo bool) {
	m.status = status
	m.publishLocked(status, suppressInfo)
}

func (m *Manager) publishLocked(status Status, suppressInfo bool) {
	for _, observer := range m.observers {
		observer(status, suppressInfo)
	}
}

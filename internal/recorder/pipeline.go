package recorder

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"os/exec"
	"strconv"
	"syscall"
	"time"
)

// Config — параметры одной сессии записи, прочитанные из окружения задачи.
type Config struct {
	MeetingData  []byte
	AttendeeData []byte
	Bucket       string
	ObjectKey    string
	ScreenWidth  int
	ScreenHeight int
	JoinURL      string
}

// ConfigFromEnv читает и валидирует контракт окружения контейнера записи.
func ConfigFromEnv() (*Config, error) {
	cfg := &Config{
		Bucket:       os.Getenv(EnvBucket),
		ObjectKey:    os.Getenv(EnvObjectKey),
		ScreenWidth:  envInt(EnvScreenWidth, 1280),
		ScreenHeight: envInt(EnvScreenHeight, 720),
		JoinURL:      os.Getenv(EnvJoinURL),
	}

	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%s is required", EnvBucket)
	}
	if cfg.ObjectKey == "" {
		return nil, fmt.Errorf("%s is required", EnvObjectKey)
	}
	if cfg.JoinURL == "" {
		cfg.JoinURL = "http://localhost:8080/record"
	}

	var err error
	if cfg.MeetingData, err = envBase64(EnvMeetingData); err != nil {
		return nil, err
	}
	if cfg.AttendeeData, err = envBase64(EnvAttendeeData); err != nil {
		return nil, err
	}

	return cfg, nil
}

func envInt(name string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(name)); err == nil && v > 0 {
		return v
	}
	return fallback
}

func envBase64(name string) ([]byte, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return nil, fmt.Errorf("%s is required", name)
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%s is not valid base64: %w", name, err)
	}
	return data, nil
}

type uploader interface {
	UploadStream(ctx context.Context, key string, body io.Reader, contentType string) error
}

// Pipeline — конвейер записи: безголовый браузер подключается к встрече,
// ffmpeg захватывает экран и звук X-дисплея и отдает фрагментированный
// mp4 в stdout, откуда поток без остановки уходит в хранилище.
type Pipeline struct {
	cfg     *Config
	storage uploader

	// подменяются в тестах
	browserPath string
	ffmpegPath  string
}

func NewPipeline(cfg *Config, storage uploader) *Pipeline {
	return &Pipeline{
		cfg:         cfg,
		storage:     storage,
		browserPath: "chromium-browser",
		ffmpegPath:  "ffmpeg",
	}
}

// Run ведет запись до отмены контекста. По отмене ffmpeg получает SIGTERM,
// дописывает открытый фрагмент и закрывает stdout; возврат происходит
// только после полной выгрузки хвоста потока в хранилище.
func (p *Pipeline) Run(ctx context.Context) error {
	browser := exec.Command(p.browserPath, p.browserArgs()...)
	browser.Stdout = os.Stdout
	browser.Stderr = os.Stderr
	if err := browser.Start(); err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer func() {
		if browser.Process != nil {
			browser.Process.Kill()
			browser.Wait()
		}
	}()

	ffmpeg := exec.Command(p.ffmpegPath, p.ffmpegArgs()...)
	ffmpeg.Stderr = os.Stderr
	stdout, err := ffmpeg.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open ffmpeg stdout: %w", err)
	}
	if err := ffmpeg.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	log.Printf("[Recorder] Capture started, uploading to s3://%s/%s", p.cfg.Bucket, p.cfg.ObjectKey)

	// Загрузка живет на собственном контексте: после остановки захвата
	// хвост потока обязан доехать до хранилища.
	uploadDone := make(chan error, 1)
	go func() {
		uploadDone <- p.storage.UploadStream(context.Background(), p.cfg.ObjectKey, stdout, "video/mp4")
	}()

	ffmpegDone := make(chan error, 1)
	go func() {
		ffmpegDone <- ffmpeg.Wait()
	}()

	select {
	case <-ctx.Done():
		log.Printf("[Recorder] Stop requested, finalizing capture")
		if err := ffmpeg.Process.Signal(syscall.SIGTERM); err != nil {
			log.Printf("[Recorder] Failed to signal ffmpeg: %v", err)
		}
		if err := waitWithTimeout(ffmpegDone, 30*time.Second); err != nil {
			log.Printf("[Recorder] ffmpeg exited with: %v", err)
		}
	case err := <-ffmpegDone:
		if err != nil {
			log.Printf("[Recorder] ffmpeg exited unexpectedly: %v", err)
		}
	}

	if err := <-uploadDone; err != nil {
		return fmt.Errorf("failed to upload recording: %w", err)
	}

	log.Printf("[Recorder] Recording uploaded: %s", p.cfg.ObjectKey)
	return nil
}

func waitWithTimeout(done <-chan error, timeout time.Duration) error {
	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("timed out after %v", timeout)
	}
}

// browserArgs собирает запуск браузера в режиме киоска на весь захватываемый
// экран. Данные встречи и участника уезжают во фрагменте URL: фрагмент не
// попадает в HTTP-запросы и серверные логи страницы подключения.
func (p *Pipeline) browserArgs() []string {
	fragment := url.Values{}
	fragment.Set("meeting", base64.StdEncoding.EncodeToString(p.cfg.MeetingData))
	fragment.Set("attendee", base64.StdEncoding.EncodeToString(p.cfg.AttendeeData))

	return []string{
		"--no-sandbox",
		"--kiosk",
		"--autoplay-policy=no-user-gesture-required",
		"--use-fake-ui-for-media-stream",
		fmt.Sprintf("--window-size=%d,%d", p.cfg.ScreenWidth, p.cfg.ScreenHeight),
		fmt.Sprintf("--window-position=%d,%d", 0, 0),
		fmt.Sprintf("%s#%s", p.cfg.JoinURL, fragment.Encode()),
	}
}

// ffmpegArgs — захват X-дисплея и PulseAudio в фрагментированный mp4.
// CBR и фиксированный GOP держат поток ровным для загрузки по частям,
// frag_keyframe+empty_moov позволяет писать контейнер без перемотки:
// файл остается воспроизводимым, даже если процесс убьют на полуслове.
func (p *Pipeline) ffmpegArgs() []string {
	const frameRate = 30
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "x11grab",
		"-draw_mouse", "0",
		"-s", fmt.Sprintf("%dx%d", p.cfg.ScreenWidth, p.cfg.ScreenHeight),
		"-r", strconv.Itoa(frameRate),
		"-i", ":0.0",
		"-f", "pulse",
		"-ac", "2",
		"-i", "default",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-profile:v", "main",
		"-preset", "fast",
		"-x264opts", "nal-hrd=cbr:no-scenecut",
		"-minrate", "3000",
		"-maxrate", "3000",
		"-g", strconv.Itoa(frameRate * 2),
		"-af", "adelay=delays=250|250, aresample=async=1:first_pts=0",
		"-c:a", "aac",
		"-b:a", "160k",
		"-ar", "44100",
		"-ac", "2",
		"-movflags", "frag_keyframe+empty_moov",
		"-frag_duration", "500",
		"-f", "mp4",
		"-",
	}
}

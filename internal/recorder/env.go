package recorder

// Контракт окружения между планировщиком и контейнером записи.
// Планировщик сериализует параметры в эти переменные при запуске задачи,
// воркер читает их на старте.
const (
	EnvTaskType     = "TASK_TYPE"
	EnvMeetingData  = "MEETING_DATA"
	EnvAttendeeData = "ATTENDEE_DATA"
	EnvBucket       = "RECORDING_BUCKET_NAME"
	EnvObjectKey    = "RECORDING_FILE_NAME"
	EnvScreenWidth  = "RECORDING_SCREEN_WIDTH"
	EnvScreenHeight = "RECORDING_SCREEN_HEIGHT"

	// EnvJoinURL задается определением задачи, а не планировщиком: адрес
	// страницы подключения зашит в образ контейнера записи.
	EnvJoinURL = "RECORDING_JOIN_URL"
)

const (
	// TaskTypeRecording — полноценная сессия записи.
	TaskTypeRecording = "RECORDING"
	// TaskTypePreWarm — задача-пустышка для прогрева образа на хосте.
	TaskTypePreWarm = "PRE_WARM"
)

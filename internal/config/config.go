package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port              int
	Password          string
	SessionSecret     string // Klucz HMAC tokenów sesji; pusty = losowy przy starcie
	PhotosFolder      string // Katalog z kandydatami do sugestii
	PostedFolder      string // Archiwum zatwierdzonych zdjęć
	ScheduleWeekday   time.Weekday
	ScheduleHour      int
	ScheduleMinute    int
	SchedulerCooldown time.Duration // Przerwa po każdym przebiegu (ochrona przed podwójnym odpaleniem)
	MaxCandidates     int
	DBPath            string
	LogDirectory      string
	CascadePath       string // Plik haarcascade_frontalface_default.xml; pusty = bez detekcji twarzy
	PreferEXIFDate    bool
	DedupCandidates   bool
}

// Load reads an optional .env file from the working directory and then
// builds the configuration from environment variables.
func Load() *Config {
	// Brak pliku .env nie jest błędem
	_ = godotenv.Load()

	return &Config{
		Port:              getEnvAsInt("PORT", 8080),
		Password:          getEnv("PASSWORD", "curator"),
		SessionSecret:     getEnv("SESSION_SECRET", ""),
		PhotosFolder:      getEnv("PHOTOS_FOLDER", "photos_to_post"),
		PostedFolder:      getEnv("POSTED_FOLDER", "posted_images"),
		ScheduleWeekday:   time.Weekday((getEnvAsInt("SCHEDULE_WEEKDAY", int(time.Sunday))%7 + 7) % 7),
		ScheduleHour:      getEnvAsIntInRange("SCHEDULE_HOUR", 21, 0, 23),
		ScheduleMinute:    getEnvAsIntInRange("SCHEDULE_MINUTE", 0, 0, 59),
		SchedulerCooldown: time.Duration(getEnvAsInt("SCHEDULER_COOLDOWN", 5)) * time.Second,
		MaxCandidates:     getEnvAsInt("MAX_CANDIDATES", 50),
		DBPath:            getEnv("DB_PATH", "insta_queue.db"),
		LogDirectory:      getEnv("LOG_DIR", filepath.Join(".", "logs")),
		CascadePath:       getEnv("CASCADE_PATH", ""),
		PreferEXIFDate:    getEnvAsBool("PREFER_EXIF_DATE", false),
		DedupCandidates:   getEnvAsBool("DEDUP_CANDIDATES", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsIntInRange falls back to defaultValue when the value is outside [lo, hi].
func getEnvAsIntInRange(key string, defaultValue, lo, hi int) int {
	value := getEnvAsInt(key, defaultValue)
	if value < lo || value > hi {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

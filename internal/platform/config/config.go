// Package config centralizes environment-driven configuration so main stays
// lean. Matching and pipeline knobs are passed explicitly into the components
// that use them; nothing here is read as ambient state after startup.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr        string
	PostgresURL string
	Redis       Redis
	Kafka       Kafka
	Pipeline    Pipeline
	Matching    Matching
}

// Redis holds cache connection settings. An empty URL disables the cache.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	ReportTTL    time.Duration
}

// Kafka holds event publisher settings. Empty brokers disable publishing.
type Kafka struct {
	Brokers     []string
	ReportTopic string
}

// Pipeline holds the per-document processing knobs.
type Pipeline struct {
	// MinOCRConfidence flags tokens below it as low-confidence (never drops).
	MinOCRConfidence float64
	// PerUnitTimeout bounds preprocess+OCR of a single page.
	PerUnitTimeout time.Duration
	// ExtractRetries bounds retries of retriable page failures.
	ExtractRetries int
	// PageParallelism caps concurrent page workers per document.
	PageParallelism int
	// OCRLanguage selects the tesseract trained data.
	OCRLanguage string
}

// Matching holds the reconciliation scoring knobs.
type Matching struct {
	DateWindowDays      int
	AmountTolerance     float64
	FuzzyMatchThreshold float64
	AcceptanceThreshold float64
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	return Server{
		Addr:        envString("FISCO_ADDR", ":8080"),
		PostgresURL: os.Getenv("FISCO_POSTGRES_URL"),
		Redis: Redis{
			URL:          os.Getenv("FISCO_REDIS_URL"),
			PoolSize:     envInt("FISCO_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("FISCO_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("FISCO_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("FISCO_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("FISCO_REDIS_WRITE_TIMEOUT", 3*time.Second),
			ReportTTL:    envDuration("FISCO_REPORT_CACHE_TTL", 15*time.Minute),
		},
		Kafka: Kafka{
			Brokers:     splitNonEmpty(os.Getenv("FISCO_KAFKA_BROKERS")),
			ReportTopic: envString("FISCO_KAFKA_REPORT_TOPIC", "fisco.reports"),
		},
		Pipeline: Pipeline{
			MinOCRConfidence: envFloat("MIN_OCR_CONFIDENCE", 0.4),
			PerUnitTimeout:   envDuration("PER_UNIT_TIMEOUT", 30*time.Second),
			ExtractRetries:   envInt("EXTRACT_RETRIES", 2),
			PageParallelism:  envInt("PAGE_PARALLELISM", 4),
			OCRLanguage:      envString("OCR_LANGUAGE", "por"),
		},
		Matching: Matching{
			DateWindowDays:      envInt("DATE_WINDOW_DAYS", 5),
			AmountTolerance:     envFloat("AMOUNT_TOLERANCE", 0.01),
			FuzzyMatchThreshold: envFloat("FUZZY_MATCH_THRESHOLD", 0.85),
			AcceptanceThreshold: envFloat("ACCEPTANCE_THRESHOLD", 0.6),
		},
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

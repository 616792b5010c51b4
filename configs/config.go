package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"

	"sqljob/pkg/executor"
)

// ErrInvalidConfig wraps every validation failure reported by LoadConfig.
var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Dir        string
	Pattern    string
	Binary     string
	BinaryFlag string

	Policy executor.Policy

	Parallel int
	Timeout  time.Duration

	LogLevel    string
	LogEncoding string
	LogOutput   string

	PushgatewayURL  string
	TracingEndpoint string
	TracingSample   float64
}

// LoadConfig reads the SQLJOB_* environment. All invalid variables are
// reported together in one error wrapping ErrInvalidConfig.
func LoadConfig() (*Config, error) {
	var errs []error
	collect := func(name string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	cfg := &Config{
		Dir:             getEnv("SQLJOB_DIR", "./job"),
		Pattern:         getEnv("SQLJOB_PATTERN", "*.sql"),
		Binary:          getEnv("SQLJOB_BINARY", "./build/bin/sql"),
		BinaryFlag:      getEnv("SQLJOB_BINARY_FLAG", "-d"),
		LogLevel:        getEnv("SQLJOB_LOG_LEVEL", "info"),
		LogEncoding:     getEnv("SQLJOB_LOG_ENCODING", "console"),
		LogOutput:       getEnv("SQLJOB_LOG_OUTPUT", "stderr"),
		PushgatewayURL:  getEnv("SQLJOB_PUSHGATEWAY_URL", ""),
		TracingEndpoint: getEnv("SQLJOB_TRACING_ENDPOINT", ""),
	}

	var err error
	cfg.Policy.Pass, err = executor.ParseCodes(getEnv("SQLJOB_PASS_CODES", "0"))
	collect("SQLJOB_PASS_CODES", err)
	cfg.Policy.Fail, err = executor.ParseCodes(getEnv("SQLJOB_FAIL_CODES", "1"))
	collect("SQLJOB_FAIL_CODES", err)
	cfg.Policy.Crash, err = executor.ParseCodes(getEnv("SQLJOB_CRASH_CODES", ""))
	collect("SQLJOB_CRASH_CODES", err)
	cfg.Policy.Unmatched, err = executor.ParseUnmatched(getEnv("SQLJOB_UNMATCHED", "crash"))
	collect("SQLJOB_UNMATCHED", err)
	if len(errs) == 0 {
		collect("exit status policy", cfg.Policy.Validate())
	}

	cfg.Parallel, err = getEnvAsInt("SQLJOB_PARALLEL", 1)
	collect("SQLJOB_PARALLEL", err)
	if err == nil && cfg.Parallel < 0 {
		collect("SQLJOB_PARALLEL", fmt.Errorf("must not be negative, got %d", cfg.Parallel))
	}
	if cfg.Parallel == 0 {
		cfg.Parallel = detectWorkers()
	}

	cfg.Timeout, err = getEnvAsDuration("SQLJOB_TIMEOUT", 0)
	collect("SQLJOB_TIMEOUT", err)

	cfg.TracingSample, err = getEnvAsFloat("SQLJOB_TRACING_SAMPLE", 1.0)
	collect("SQLJOB_TRACING_SAMPLE", err)
	if err == nil && (cfg.TracingSample < 0 || cfg.TracingSample > 1) {
		collect("SQLJOB_TRACING_SAMPLE", fmt.Errorf("must be between 0.0 and 1.0, got %g", cfg.TracingSample))
	}

	if cfg.Binary == "" {
		collect("SQLJOB_BINARY", errors.New("must not be empty"))
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return cfg, nil
}

// detectWorkers sizes the pool to the logical CPU count.
func detectWorkers() int {
	n, err := cpu.Counts(true)
	if err != nil || n <= 0 {
		return runtime.NumCPU()
	}
	return n
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) (int, error) {
	valueStr := strings.TrimSpace(getEnv(key, ""))
	if valueStr == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return fallback, fmt.Errorf("not an integer: %q", valueStr)
	}
	return value, nil
}

func getEnvAsDuration(key string, fallback time.Duration) (time.Duration, error) {
	valueStr := strings.TrimSpace(getEnv(key, ""))
	if valueStr == "" || valueStr == "0" {
		return fallback, nil
	}
	d, err := time.ParseDuration(valueStr)
	if err != nil {
		return fallback, err
	}
	if d < 0 {
		return fallback, fmt.Errorf("must not be negative, got %s", d)
	}
	return d, nil
}

func getEnvAsFloat(key string, fallback float64) (float64, error) {
	valueStr := strings.TrimSpace(getEnv(key, ""))
	if valueStr == "" {
		return fallback, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return fallback, fmt.Errorf("not a number: %q", valueStr)
	}
	return value, nil
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds service configuration.
type Config struct {
	DatabaseURL string
	ServerAddr  string

	// SigningMasterKey seeds the deterministic per-contest key derivation.
	SigningMasterKey string
	KeyValidity      time.Duration

	MinTestingPhaseLead time.Duration
	ProximityWindow     time.Duration
	SchedulerInterval   time.Duration

	// ApprovalPolicy is an optional expression gating automatic e-voting
	// approval, e.g. "state == 'ACTIVE' && days_until_contest <= 14".
	ApprovalPolicy string

	RetryMaxAttempts int
	RetryMinDelay    time.Duration
	RetryMaxDelay    time.Duration

	// Leader election. Disabled instances always run the scheduler.
	LeaderElection bool
	NodeID         string
	RaftAddr       string
	RaftDataDir    string
	RaftBootstrap  bool
}

// Load reads configuration from environment.
func Load() (*Config, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		user := getenv("POSTGRES_USER", "contest_hub")
		pass := getenv("POSTGRES_PASSWORD", "contest_hub_pass")
		db := getenv("POSTGRES_DB", "contest_hub")
		host := getenv("POSTGRES_HOST", "localhost")
		port := getenv("POSTGRES_PORT", "5432")
		sslmode := getenv("DATABASE_SSLMODE", "disable")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, sslmode)
	}

	return &Config{
		DatabaseURL:         dsn,
		ServerAddr:          getenv("SERVER_ADDR", "0.0.0.0:8080"),
		SigningMasterKey:    os.Getenv("SIGNING_MASTER_KEY"),
		KeyValidity:         parseDuration(getenv("KEY_VALIDITY", "24h"), 24*time.Hour),
		MinTestingPhaseLead: parseDuration(getenv("MIN_TESTING_PHASE_LEAD", "24h"), 24*time.Hour),
		ProximityWindow:     parseDuration(getenv("PROXIMITY_WINDOW", "24h"), 24*time.Hour),
		SchedulerInterval:   parseDuration(getenv("SCHEDULER_INTERVAL", "1m"), time.Minute),
		ApprovalPolicy:      os.Getenv("E_VOTING_APPROVAL_POLICY"),
		RetryMaxAttempts:    parseInt(getenv("RETRY_MAX_ATTEMPTS", "10"), 10),
		RetryMinDelay:       parseDuration(getenv("RETRY_MIN_DELAY", "50ms"), 50*time.Millisecond),
		RetryMaxDelay:       parseDuration(getenv("RETRY_MAX_DELAY", "250ms"), 250*time.Millisecond),
		LeaderElection:      parseBool(getenv("LEADER_ELECTION", "false"), false),
		NodeID:              getenv("NODE_ID", "node-1"),
		RaftAddr:            getenv("RAFT_ADDR", "127.0.0.1:7000"),
		RaftDataDir:         getenv("RAFT_DATA_DIR", "data/raft"),
		RaftBootstrap:       parseBool(getenv("RAFT_BOOTSTRAP", "true"), true),
	}, nil
}

func getenv(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}

func parseDuration(val string, def time.Duration) time.Duration {
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return def
	}
	return d
}

func parseBool(val string, def bool) bool {
	if val == "" {
		return def
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return def
	}
	return b
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return n
}

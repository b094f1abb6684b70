package config

import (
	"os"
	"strconv"
	"time"
)

const JOURNAL_DB_TYPE = "SHAND_JOURNAL_DB_TYPE"
const JOURNAL_DB_URL = "SHAND_JOURNAL_DB_URL"
const JOURNAL_SQLITE_FILE_NAME = "SHAND_JOURNAL_SQLITE_FILE_NAME"
const ENGINE_SERVER_WEB_PORT = "SHAND_ENGINE_SERVER_WEB_PORT"
const ENGINE_EXECUTOR_SIZE = "SHAND_ENGINE_EXECUTOR_SIZE" //number of workers to run ie the parallel nature of the processes
const ENGINE_QUEUE_SIZE = "SHAND_ENGINE_QUEUE_SIZE"       //capacity of the run queue feeding the workers
const ENGINE_TASK_TIMEOUT = "SHAND_ENGINE_TASK_TIMEOUT"
const ENGINE_APPROVAL_TTL = "SHAND_ENGINE_APPROVAL_TTL"
const ENGINE_APPROVAL_SWEEP_INTERVAL = "SHAND_ENGINE_APPROVAL_SWEEP_INTERVAL"
const NOTIFY_NATS_URL = "SHAND_NOTIFY_NATS_URL"
const NOTIFY_NATS_SUBJECT_PREFIX = "SHAND_NOTIFY_NATS_SUBJECT_PREFIX"
const DEFINITIONS_FILE = "SHAND_DEFINITIONS_FILE"
const BILLING_URL = "SHAND_BILLING_URL"
const BILLING_MERCHANT_ID = "SHAND_BILLING_MERCHANT_ID"
const BILLING_SIGNING_KEY = "SHAND_BILLING_SIGNING_KEY"

const JOURNAL_TYPE_POSTGRES = "POSTGRES"
const JOURNAL_TYPE_MYSQL = "MYSQL"
const JOURNAL_TYPE_SQLITE = "SQLITE"
const JOURNAL_TYPE_MEMORY = "MEMORY"

func GetSystemSettingInteger(settingKey string) int {
	val := GetSystemSettingString(settingKey)
	if val != "" {
		intValue, _ := strconv.Atoi(val)
		return intValue
	}

	return 0
}

func GetSystemSettingDuration(settingKey string) time.Duration {
	val := GetSystemSettingString(settingKey)
	if val != "" {
		d, _ := time.ParseDuration(val)
		return d
	}

	return 0
}

func GetSystemSettingString(settingKey string) string {
	val := os.Getenv(settingKey)
	if val != "" {
		return val
	}
	if settingKey == ENGINE_EXECUTOR_SIZE {
		return "5" // default to 5
	}
	if settingKey == ENGINE_QUEUE_SIZE {
		return "5" // default to 5
	}
	if settingKey == ENGINE_TASK_TIMEOUT {
		return "30s" // default to 30 seconds
	}
	if settingKey == ENGINE_APPROVAL_TTL {
		return "24h" // default to 24 hours
	}
	if settingKey == ENGINE_APPROVAL_SWEEP_INTERVAL {
		return "60s" // default to 60 seconds
	}
	if settingKey == ENGINE_SERVER_WEB_PORT {
		return "8080"
	}
	if settingKey == JOURNAL_DB_TYPE {
		return JOURNAL_TYPE_MEMORY
	}
	if settingKey == JOURNAL_SQLITE_FILE_NAME {
		return "./stagehand.db"
	}
	if settingKey == NOTIFY_NATS_SUBJECT_PREFIX {
		return "stagehand.notify"
	}
	return ""
}

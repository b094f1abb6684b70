package sqlite

import (
	"fmt"
	"os"
	"strconv"
	"sync/atomic"
	"testing"
)

var portBase int32 = 9118 // starting port number (can be anything safe)

func nextPort() int {
	return int(atomic.AddInt32(&portBase, 1))
}

func runTestWithSetup(t *testing.T, testFunc func(t *testing.T, port int)) {
	port := nextPort()
	filename := fmt.Sprintf("stagehand-test-%d.db", port)
	defer os.Remove(filename)
	os.Setenv("HTTP_ADDR", ":"+strconv.Itoa(port))
	os.Setenv("SHAND_JOURNAL_DB_TYPE", "SQLITE")
	os.Setenv("SHAND_JOURNAL_SQLITE_FILE_NAME", filename)
	testFunc(t, port)
}

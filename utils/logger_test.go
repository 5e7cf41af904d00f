package utils_test

import (
	"bytes"
	"testing"

	"github.com/mogaika/animbridge/utils"
)

func TestLoggerDropsWithoutWriter(t *testing.T) {
	var nilLogger *utils.Logger
	nilLogger.Printf("dropped %d", 1)
	nilLogger.Println("dropped")

	zero := utils.Logger{}
	zero.Printf("dropped %d", 2)
	zero.Println("dropped")
}

func TestLoggerWrites(t *testing.T) {
	var buf bytes.Buffer
	l := utils.Logger{Writer: &buf}
	l.Printf("answer %d", 42)
	l.Println("done")
	if got := buf.String(); got != "answer 42\ndone\n" {
		t.Errorf("output %q", got)
	}
}

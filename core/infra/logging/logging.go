// Package logging provides key/value logging with a consistent component
// prefix. Output is plain text by default; set BLINDROP_LOG_FORMAT=json for
// one JSON object per line.
package logging

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
)

const envLogFormat = "BLINDROP_LOG_FORMAT"

var (
	logFormatOnce sync.Once
	logAsJSON     bool
)

func jsonEnabled() bool {
	logFormatOnce.Do(func() {
		logAsJSON = strings.EqualFold(strings.TrimSpace(os.Getenv(envLogFormat)), "json")
	})
	return logAsJSON
}

// Info logs a message with key/value fields.
func Info(component, msg string, kv ...interface{}) {
	emit("INFO", component, msg, kv...)
}

// Error logs an error message with key/value fields.
func Error(component, msg string, kv ...interface{}) {
	emit("ERROR", component, msg, kv...)
}

func emit(level, component, msg string, kv ...interface{}) {
	if jsonEnabled() {
		payload := map[string]any{
			"level":     level,
			"component": component,
			"msg":       msg,
		}
		if len(kv)%2 != 0 {
			kv = append(kv, "(missing)")
		}
		for i := 0; i < len(kv); i += 2 {
			payload[toString(kv[i])] = kv[i+1]
		}
		line, err := json.Marshal(payload)
		if err != nil {
			log.Printf("[%s] %s%s", strings.ToUpper(component), msg, formatFields(kv...))
			return
		}
		log.Print(string(line))
		return
	}
	if level == "ERROR" {
		log.Printf("[%s] ERROR %s%s", strings.ToUpper(component), msg, formatFields(kv...))
		return
	}
	log.Printf("[%s] %s%s", strings.ToUpper(component), msg, formatFields(kv...))
}

func formatFields(kv ...interface{}) string {
	if len(kv) == 0 {
		return ""
	}
	if len(kv)%2 != 0 {
		kv = append(kv, "(missing)")
	}
	var b strings.Builder
	b.WriteString(" ")
	for i := 0; i < len(kv); i += 2 {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(strings.TrimSpace(toString(kv[i])))
		b.WriteString("=")
		b.WriteString(sanitize(kv[i+1]))
	}
	return b.String()
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func sanitize(v interface{}) string {
	s := toString(v)
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	return strings.TrimSpace(s)
}

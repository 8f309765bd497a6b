package heostest

import (
	"encoding/json"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Reply answers every request with the given lines.
func Reply(lines ...string) Responder {
	return func(Request) []string {
		return lines
	}
}

// Echo answers with success and the request parameters as the message,
// which is how the device acknowledges most set commands.
func Echo(req Request) []string {
	return []string{SuccessLine(req.Command, encodeMessage(req.Params), nil)}
}

// Silent never answers.
func Silent(Request) []string {
	return nil
}

// Delay runs responder after d.
func Delay(d time.Duration, responder Responder) Responder {
	return func(req Request) []string {
		time.Sleep(d)
		return responder(req)
	}
}

// Sequence answers the n-th request with the n-th responder and repeats the
// last one afterwards.
func Sequence(responders ...Responder) Responder {
	var (
		mu sync.Mutex
		n  int
	)
	return func(req Request) []string {
		mu.Lock()
		r := responders[min(n, len(responders)-1)]
		n++
		mu.Unlock()
		return r(req)
	}
}

// SuccessLine builds a successful response line. A nil payload is omitted.
func SuccessLine(command, message string, payload any) string {
	return responseLine(command, "success", message, payload)
}

// FailureLine builds a failed response line with the device error id and text.
func FailureLine(command string, eid int, text string) string {
	message := "eid=" + strconv.Itoa(eid) + "&text=" + text
	return responseLine(command, "fail", message, nil)
}

// SystemErrorLine builds a failed response line for a system error with
// the given system error number.
func SystemErrorLine(command string, syserrno int) string {
	message := "eid=12&text=System error&syserrno=" + strconv.Itoa(syserrno)
	return responseLine(command, "fail", message, nil)
}

// UnderProcessLine builds the provisional notice the device sends while a
// command is still executing.
func UnderProcessLine(command string) string {
	return responseLine(command, "", "command under process", nil)
}

// EventLine builds an unsolicited event line. The event/ prefix is added
// when missing.
func EventLine(command, message string) string {
	if !strings.HasPrefix(command, "event/") {
		command = "event/" + command
	}
	return responseLine(command, "", message, nil)
}

func responseLine(command, result, message string, payload any) string {
	heos := map[string]string{"command": command, "message": message}
	if result != "" {
		heos["result"] = result
	}
	line := map[string]any{"heos": heos}
	if payload != nil {
		line["payload"] = payload
	}
	b, err := json.Marshal(line)
	if err != nil {
		panic(err)
	}
	return string(b)
}

func encodeMessage(params map[string]string) string {
	parts := make([]string, 0, len(params))
	for _, key := range slices.Sorted(maps.Keys(params)) {
		parts = append(parts, key+"="+params[key])
	}
	return strings.Join(parts, "&")
}

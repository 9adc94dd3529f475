package muxer

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/anisan-cli/anidl/util"
)

// UnknownProgress is reported while the total duration is unknown.
const UnknownProgress = -1.0

// scanProgress consumes ffmpeg's -progress key=value stream and reports
// elapsed / total * 100 whenever the value changes. It returns when r is exhausted.
func scanProgress(r io.Reader, total time.Duration, report func(float64)) {
	if report == nil {
		report = func(float64) {}
	}

	var (
		scanner = bufio.NewScanner(r)
		last    = -2.0
	)

	emit := func(p float64) {
		if p != last {
			last = p
			report(p)
		}
	}

	for scanner.Scan() {
		k, v, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok {
			continue
		}

		switch k {
		case "out_time_us", "out_time_ms":
			// both keys carry microseconds
			us, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				continue
			}
			emit(percent(time.Duration(us)*time.Microsecond, total))
		case "out_time":
			if elapsed, ok := parseClock(v); ok {
				emit(percent(elapsed, total))
			}
		case "progress":
			if v == "end" && total > 0 {
				emit(100)
			}
		}
	}
}

func percent(elapsed, total time.Duration) float64 {
	if total <= 0 {
		return UnknownProgress
	}
	return util.Clamp(float64(elapsed)/float64(total)*100, 0, 100)
}

// parseClock parses HH:MM:SS.micro as printed by ffmpeg.
func parseClock(s string) (time.Duration, bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, false
	}

	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	sec, err3 := strconv.ParseFloat(parts[2], 64)
	if err1 != nil || err2 != nil || err3 != nil || h < 0 {
		return 0, false
	}

	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(sec*float64(time.Second)), true
}

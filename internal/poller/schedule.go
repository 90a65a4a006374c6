package poller

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// SpecKind describes the normalized kind of a schedule string.
type SpecKind int

const (
	SpecInterval SpecKind = iota
	SpecCron
)

// ParsedSpec is a parsed poll.interval value.
//
// Supported forms:
//   - Interval duration: "10m", "1h30m"
//   - Interval HH:MM: "00:10" (10 minutes), "02:30" (2 hours 30 minutes)
//   - Cron: "*/10 * * * *", "@hourly", "@every 10m"
//
// Optional prefixes "cron:", "interval:" and "every:" force the kind.
type ParsedSpec struct {
	Kind   SpecKind
	Cron   string
	Every  time.Duration
	Source string // "cron" | "duration" | "hhmm"
}

var reHHMM = regexp.MustCompile(`^\s*(\d{1,3}):(\d{2})\s*$`)

var cronParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSchedule parses a schedule string into either a cron expression or an interval.
func ParseSchedule(raw string) (ParsedSpec, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ParsedSpec{}, fmt.Errorf("schedule required")
	}

	low := strings.ToLower(s)
	switch {
	case strings.HasPrefix(low, "cron:"):
		expr := strings.TrimSpace(s[len("cron:"):])
		if expr == "" {
			return ParsedSpec{}, fmt.Errorf("cron schedule required after 'cron:'")
		}
		return ParsedSpec{Kind: SpecCron, Cron: expr, Source: "cron"}, nil
	case strings.HasPrefix(low, "interval:"):
		return parseInterval(s[len("interval:"):])
	case strings.HasPrefix(low, "every:"):
		return parseInterval(s[len("every:"):])
	}

	// whitespace or a leading '@' => cron
	if strings.ContainsAny(s, " \t") || strings.HasPrefix(s, "@") {
		return ParsedSpec{Kind: SpecCron, Cron: s, Source: "cron"}, nil
	}

	if spec, err := parseInterval(s); err == nil {
		return spec, nil
	}
	return ParsedSpec{}, fmt.Errorf(
		"invalid schedule %q (use a duration like '10m', HH:MM like '00:10', or cron like '*/10 * * * *')",
		raw,
	)
}

func parseInterval(v string) (ParsedSpec, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return ParsedSpec{}, fmt.Errorf("interval required")
	}
	if m := reHHMM.FindStringSubmatch(v); m != nil {
		hh, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		if mm > 59 {
			return ParsedSpec{}, fmt.Errorf("invalid minutes in %q", v)
		}
		d := time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute
		if d <= 0 {
			return ParsedSpec{}, fmt.Errorf("interval must be > 0")
		}
		return ParsedSpec{Kind: SpecInterval, Every: d, Source: "hhmm"}, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return ParsedSpec{}, fmt.Errorf("invalid interval %q (use HH:MM or Go duration like '10m')", v)
	}
	if d < time.Second {
		return ParsedSpec{}, fmt.Errorf("interval must be >= 1s")
	}
	return ParsedSpec{Kind: SpecInterval, Every: d, Source: "duration"}, nil
}

// Schedule converts the spec into a cron.Schedule.
func (p ParsedSpec) Schedule() (cron.Schedule, error) {
	if p.Kind == SpecCron {
		sched, err := cronParser.Parse(p.Cron)
		if err != nil {
			return nil, fmt.Errorf("invalid cron %q: %w", p.Cron, err)
		}
		return sched, nil
	}
	return cron.Every(p.Every), nil
}

// NewSchedule parses raw straight into a cron.Schedule.
func NewSchedule(raw string) (cron.Schedule, error) {
	spec, err := ParseSchedule(raw)
	if err != nil {
		return nil, err
	}
	return spec.Schedule()
}

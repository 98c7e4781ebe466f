// Package schedule parses backup cron expressions and runs scheduled
// backups in the foreground.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

type Schedule struct {
	expr  string
	sched cron.Schedule
}

// Parse accepts a standard five-field cron expression or a descriptor such
// as "@daily" or "@every 6h".
func Parse(expr string) (Schedule, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Schedule{}, fmt.Errorf("cron expression is empty")
	}
	sched, err := parser.Parse(expr)
	if err != nil {
		return Schedule{}, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return Schedule{expr: expr, sched: sched}, nil
}

func Validate(expr string) error {
	_, err := Parse(expr)
	return err
}

func (s Schedule) Expr() string {
	return s.expr
}

func (s Schedule) Next(from time.Time) time.Time {
	return s.sched.Next(from)
}

// NextN returns the next n activation times after from.
func (s Schedule) NextN(from time.Time, n int) []time.Time {
	var out []time.Time
	t := from
	for i := 0; i < n; i++ {
		t = s.sched.Next(t)
		if t.IsZero() {
			break
		}
		out = append(out, t)
	}
	return out
}

func (s Schedule) Describe() string {
	return Describe(s.expr)
}

var weekdays = []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// Describe turns the common cron shapes into a sentence. Anything else is
// echoed back as-is.
func Describe(expr string) string {
	expr = strings.TrimSpace(expr)
	switch expr {
	case "@yearly", "@annually":
		return "once a year, at midnight on january 1st"
	case "@monthly":
		return "once a month, at midnight on the 1st"
	case "@weekly":
		return "once a week, at midnight on sunday"
	case "@daily", "@midnight":
		return "every day at 00:00"
	case "@hourly":
		return "every hour, on the hour"
	}
	if rest, ok := strings.CutPrefix(expr, "@every "); ok {
		return "every " + strings.TrimSpace(rest)
	}

	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return "cron: " + expr
	}
	minute, hour, dom, month, dow := fields[0], fields[1], fields[2], fields[3], fields[4]

	if n, ok := step(minute); ok && hour == "*" && dom == "*" && month == "*" && dow == "*" {
		return fmt.Sprintf("every %d minutes", n)
	}
	if isNumber(minute) && hour == "*" && dom == "*" && month == "*" && dow == "*" {
		return fmt.Sprintf("every hour at minute %s", minute)
	}
	if n, ok := step(hour); ok && isNumber(minute) && dom == "*" && month == "*" && dow == "*" {
		return fmt.Sprintf("every %d hours at minute %s", n, minute)
	}
	if !isNumber(minute) || !isNumber(hour) || month != "*" {
		return "cron: " + expr
	}

	h, _ := strconv.Atoi(hour)
	m, _ := strconv.Atoi(minute)
	at := fmt.Sprintf("%02d:%02d", h, m)
	switch {
	case dom == "*" && dow == "*":
		return "every day at " + at
	case dom == "*" && isNumber(dow):
		d, _ := strconv.Atoi(dow)
		return fmt.Sprintf("every %s at %s", weekdays[d%7], at)
	case dom == "*" && dow == "1-5":
		return "every weekday at " + at
	case isNumber(dom) && dow == "*":
		return fmt.Sprintf("on day %s of every month at %s", dom, at)
	}
	return "cron: " + expr
}

func step(field string) (int, bool) {
	rest, ok := strings.CutPrefix(field, "*/")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func isNumber(field string) bool {
	_, err := strconv.Atoi(field)
	return err == nil
}

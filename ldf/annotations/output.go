package annotations

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
)

// OutputFormatter formats events for human-readable display.
type OutputFormatter struct {
	useColor bool
	writer   io.Writer
}

// NewOutputFormatter creates a formatter with color support detection.
func NewOutputFormatter(w io.Writer) *OutputFormatter {
	if w == nil {
		w = os.Stderr
	}
	useColor := false
	if w == os.Stdout || w == os.Stderr {
		useColor = !color.NoColor
	}
	return &OutputFormatter{useColor: useColor, writer: w}
}

// Handle prints events as they occur.
func (f *OutputFormatter) Handle(event Event) {
	if output := f.Format(event); output != "" {
		fmt.Fprintln(f.writer, output)
	}
}

// Format converts an event to a human-readable string.
func (f *OutputFormatter) Format(event Event) string {
	latency := f.formatLatency(event.Latency)
	str := func(key string) string {
		if v, ok := event.Data[key]; ok {
			return fmt.Sprint(v)
		}
		return "?"
	}

	switch event.Name {
	case QueryInvoked:
		return fmt.Sprintf("%s Query: %s", latency, truncateQuery(str("query")))

	case QueryComplete:
		if success, _ := event.Data["success"].(bool); !success {
			return fmt.Sprintf("%s %s Query failed: %v",
				latency, f.colorize("✗", color.FgRed), event.Data["error"])
		}
		out := fmt.Sprintf("%s %s Query done with %s",
			latency,
			f.colorize("===", color.FgGreen),
			f.colorizeCount("results", intValue(event.Data["results.count"])))
		if failed := intValue(event.Data["fragments.failed"]); failed > 0 {
			out += f.colorize(fmt.Sprintf(" (%d fragment pages failed, results may be incomplete)", failed), color.FgYellow)
		}
		return out

	case FragmentRequested:
		return fmt.Sprintf("%s Fragment(%s) %s",
			latency, f.colorize(str("pattern"), color.FgCyan), str("cache"))

	case FragmentPage:
		return fmt.Sprintf("%s GET %s → %s %s",
			latency, str("url"), str("status"),
			f.colorizeCount("triples", intValue(event.Data["triples.count"])))

	case FragmentFailed:
		return fmt.Sprintf("%s %s GET %s: %s",
			latency, f.colorize("⚠️", color.FgYellow), str("url"), str("error"))

	case PatternFragment:
		return fmt.Sprintf("%s Pattern(%s) → %s",
			latency, f.colorize(str("pattern"), color.FgCyan),
			f.colorizeCount("triples", intValue(event.Data["count"])))

	case ReorderChoice:
		return fmt.Sprintf("%s %s Reorder chose %s from %v",
			latency, f.colorize("===", color.FgYellow),
			f.colorize(str("pattern"), color.FgCyan), event.Data["counts"])

	case ClusterVote:
		return fmt.Sprintf("%s Cluster(%s) voted for %s", latency, str("cluster"), str("node"))

	case ClusterSwitch:
		return fmt.Sprintf("%s %s Node(%s) switched %s → %s",
			latency, f.colorize("⇄", color.FgMagenta), str("node"), str("from"), str("to"))

	case ClusterJoin:
		return fmt.Sprintf("%s Join(%s) → %s", latency, str("nodes"),
			f.colorizeCount("bindings", intValue(event.Data["bindings.count"])))
	}

	return fmt.Sprintf("%s %s %v", latency, event.Name, event.Data)
}

// formatLatency formats a duration as [XXXms] or [XXXµs] with color coding.
func (f *OutputFormatter) formatLatency(d time.Duration) string {
	if d < time.Millisecond {
		s := fmt.Sprintf("[%dµs]", d.Microseconds())
		if !f.useColor {
			return s
		}
		return color.GreenString(s)
	}

	ms := float64(d.Microseconds()) / 1000.0
	s := fmt.Sprintf("[%.1fms]", ms)
	if !f.useColor {
		return s
	}
	switch {
	case ms < 50:
		return color.GreenString(s)
	case ms < 200:
		return color.YellowString(s)
	default:
		return color.RedString(s)
	}
}

// colorizeCount formats a count with a label, using color based on the label type.
func (f *OutputFormatter) colorizeCount(label string, count int) string {
	text := fmt.Sprintf("%d %s", count, label)
	if !f.useColor {
		return text
	}
	switch strings.ToLower(label) {
	case "results", "bindings":
		return color.CyanString(text)
	case "triples":
		return color.MagentaString(text)
	default:
		return text
	}
}

// colorize applies color if enabled.
func (f *OutputFormatter) colorize(text string, attrs ...color.Attribute) string {
	if !f.useColor {
		return text
	}
	return color.New(attrs...).Sprint(text)
}

func intValue(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

// truncateQuery shortens long queries for display.
func truncateQuery(query string) string {
	query = strings.Join(strings.Fields(query), " ")
	const maxLen = 80
	if len(query) <= maxLen {
		return query
	}
	return query[:maxLen-3] + "..."
}

// ConsoleHandler creates a handler that prints formatted events to stderr.
func ConsoleHandler() Handler {
	return NewOutputFormatter(os.Stderr).Handle
}

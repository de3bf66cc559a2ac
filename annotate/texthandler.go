package annotate

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

// TextHandler renders Events as single human-readable lines, used by the
// CLI's -verbose flag. Grounded on the teacher's annotations.OutputFormatter:
// same latency-bucketed coloring and colorizeCount helper, rebound to this
// engine's event names.
type TextHandler struct {
	useColor bool
	writer   io.Writer
}

// NewTextHandler builds a TextHandler writing to w (os.Stdout if nil),
// auto-detecting color support the way the teacher's formatter does.
func NewTextHandler(w io.Writer) *TextHandler {
	if w == nil {
		w = os.Stdout
	}
	useColor := false
	if f, ok := w.(*os.File); ok {
		useColor = f.Fd() == uintptr(1) || f.Fd() == uintptr(2)
	}
	return &TextHandler{useColor: useColor, writer: w}
}

// Handle implements Handler.
func (h *TextHandler) Handle(e Event) {
	if line := h.Format(e); line != "" {
		fmt.Fprintln(h.writer, line)
	}
}

// Format renders a single Event.
func (h *TextHandler) Format(e Event) string {
	latency := h.formatLatency(e)
	switch e.Name {
	case RunBegin:
		if size, ok := e.Data["grid.size"]; ok {
			return fmt.Sprintf("%s run starting: steps %v..%v, grid %v", latency, e.Data["steps.low"], e.Data["steps.high"], size)
		}
		return fmt.Sprintf("%s run starting: steps %v..%v", latency, e.Data["steps.low"], e.Data["steps.high"])
	case RunComplete:
		if ok, _ := e.Data["success"].(bool); !ok {
			return fmt.Sprintf("%s %s run failed: %v", latency, h.colorize("FAIL", color.FgRed), e.Data["error"])
		}
		return fmt.Sprintf("%s %s run complete after %s", latency, h.colorize("OK", color.FgGreen), h.colorizeCount("timesteps", intOf(e.Data["timesteps"])))
	case TimestepBegin:
		return fmt.Sprintf("%s %s timestep %v starting", latency, h.colorize("===", color.FgYellow), e.Data["timestep"])
	case TimestepPublish:
		return fmt.Sprintf("%s timestep %v published, %s exported", latency, e.Data["timestep"], h.colorizeCount("records", intOf(e.Data["export.count"])))
	case SubstepBegin:
		return fmt.Sprintf("%s substep %v starting on %s", latency, e.Data["substep"], h.colorizeCount("entities", intOf(e.Data["entity.count"])))
	case SubstepComplete:
		return fmt.Sprintf("%s substep %v complete", latency, e.Data["substep"])
	case DiscoverySpawned:
		return fmt.Sprintf("%s entity %v spawned %v child %v", latency, e.Data["parent"], e.Data["type"], e.Data["child"])
	case ResolveCycle:
		return fmt.Sprintf("%s %s circular dependency on entity %v attribute %v", latency, h.colorize("CYCLE", color.FgRed), e.Data["entity"], e.Data["attribute"])
	case AssertionResult:
		ok, _ := e.Data["ok"].(bool)
		mark := h.colorize("pass", color.FgGreen)
		if !ok {
			mark = h.colorize("FAIL", color.FgRed)
		}
		return fmt.Sprintf("%s assertion %v on entity %v: %s", latency, e.Data["attribute"], e.Data["entity"], mark)
	case ExternalFetchRetry:
		return fmt.Sprintf("%s %s external fetch %q retrying (attempt %v)", latency, h.colorize("WARN", color.FgYellow), e.Data["name"], e.Data["attempt"])
	case ExternalFetchFailed:
		return fmt.Sprintf("%s %s external fetch %q failed: %v", latency, h.colorize("FAIL", color.FgRed), e.Data["name"], e.Data["error"])
	default:
		return fmt.Sprintf("%s %s", latency, e.Name)
	}
}

func (h *TextHandler) formatLatency(e Event) string {
	if e.Latency == 0 {
		return "[--]"
	}
	s := fmt.Sprintf("[%dµs]", e.Latency.Microseconds())
	if !h.useColor {
		return s
	}
	ms := float64(e.Latency.Microseconds()) / 1000.0
	switch {
	case ms < 1:
		return color.GreenString(s)
	case ms < 20:
		return color.YellowString(s)
	default:
		return color.RedString(s)
	}
}

func (h *TextHandler) colorizeCount(label string, count int) string {
	text := fmt.Sprintf("%d %s", count, label)
	if !h.useColor {
		return text
	}
	switch strings.ToLower(label) {
	case "entities":
		return color.CyanString(text)
	case "records", "children":
		return color.MagentaString(text)
	case "timesteps":
		return color.BlueString(text)
	default:
		return text
	}
}

func (h *TextHandler) colorize(text string, attrs ...color.Attribute) string {
	if !h.useColor {
		return text
	}
	return color.New(attrs...).Sprint(text)
}

func intOf(v interface{}) int {
	if i, ok := v.(int); ok {
		return i
	}
	return 0
}

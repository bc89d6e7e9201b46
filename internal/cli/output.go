package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/domain"
	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/monitor"
	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/mq"
	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/notify"
	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/pipeline"
)

// Output управляет форматированием вывода CLI.
type Output struct {
	jsonMode bool
	w        io.Writer // stdout для данных
	errW     io.Writer // stderr для сообщений
}

// NewOutput создаёт Output. Если jsonMode=true, данные выводятся в JSON.
func NewOutput(jsonMode bool) *Output {
	return NewOutputTo(os.Stdout, os.Stderr, jsonMode)
}

// NewOutputTo создаёт Output с заданными writers.
func NewOutputTo(w, errW io.Writer, jsonMode bool) *Output {
	return &Output{
		jsonMode: jsonMode,
		w:        w,
		errW:     errW,
	}
}

// Print выводит данные: таблицу или JSON в зависимости от режима.
func (o *Output) Print(headers []string, rows [][]string, jsonData any) {
	if o.jsonMode {
		o.JSON(jsonData)
		return
	}
	o.Table(headers, rows)
}

// Table выводит данные в виде таблицы через tabwriter.
func (o *Output) Table(headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)

	// Заголовки
	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	// Разделитель
	dashes := make([]string, len(headers))
	for i, h := range headers {
		dashes[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(tw, strings.Join(dashes, "\t"))

	// Строки данных
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}

	tw.Flush()
}

// JSON выводит данные в формате JSON с отступами.
func (o *Output) JSON(v any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

// Success выводит сообщение об успехе в stderr.
func (o *Output) Success(msg string) {
	fmt.Fprintln(o.errW, msg)
}

// Error выводит сообщение об ошибке в stderr.
func (o *Output) Error(msg string) {
	fmt.Fprintln(o.errW, "Error: "+msg)
}

// Result выводит результат pipeline: таблица шагов, затем ошибки и предупреждения.
func (o *Output) Result(res *pipeline.Result) {
	if o.jsonMode {
		o.JSON(res)
		return
	}

	rows := make([][]string, len(res.Steps))
	for i, s := range res.Steps {
		rows[i] = []string{
			s.Name,
			requiredLabel(s.Required),
			successLabel(s.Success),
			strconv.Itoa(s.Attempts),
			formatMillis(s.DurationMillis),
			s.Error,
		}
	}
	o.Table([]string{"STEP", "KIND", "RESULT", "ATTEMPTS", "DURATION", "ERROR"}, rows)

	fmt.Fprintf(o.w, "\nexecution %s: %s in %s\n", res.ExecutionID, res.Status(), formatMillis(res.TotalDurationMillis))
	for _, e := range res.Errors {
		fmt.Fprintln(o.w, "  error:   "+e)
	}
	for _, w := range res.Warnings {
		fmt.Fprintln(o.w, "  warning: "+w)
	}
}

// Task выводит состояние задачи репликации.
func (o *Output) Task(task domain.Task) {
	o.Print(
		[]string{"REF", "STATUS", "PROGRESS", "STARTED", "ERROR"},
		[][]string{taskRow(task)},
		task,
	)
}

// Tasks выводит список задач.
func (o *Output) Tasks(tasks []domain.Task) {
	rows := make([][]string, len(tasks))
	for i, t := range tasks {
		rows[i] = taskRow(t)
	}
	o.Print([]string{"REF", "STATUS", "PROGRESS", "STARTED", "ERROR"}, rows, tasks)
}

// Report выводит результат прямого режима (start + monitor).
func (o *Output) Report(report monitor.Report) {
	if o.jsonMode {
		o.JSON(report)
		return
	}
	o.Table(
		[]string{"REF", "OUTCOME", "STATUS", "PROGRESS", "ATTEMPTS"},
		[][]string{{
			report.Task.Ref,
			string(report.Outcome),
			report.Task.Status.String(),
			strconv.Itoa(report.Task.ProgressPercent) + "%",
			fmt.Sprintf("%d/%d", report.Attempts, report.Total),
		}},
	)
}

// Runs выводит историю run.
func (o *Output) Runs(runs []domain.Run) {
	rows := make([][]string, len(runs))
	for i, r := range runs {
		rows[i] = []string{
			r.ID.String(),
			r.Pipeline,
			r.Target,
			string(r.Status),
			strconv.Itoa(len(r.Steps)),
			formatMillis(r.DurationMillis),
			formatTime(r.StartedAt),
		}
	}
	o.Print([]string{"ID", "PIPELINE", "TARGET", "STATUS", "STEPS", "DURATION", "STARTED"}, rows, runs)
}

// Event выводит событие из очереди одной строкой (или JSON объектом).
func (o *Output) Event(msg mq.Message) {
	if o.jsonMode {
		enc := json.NewEncoder(o.w)
		enc.Encode(msg)
		return
	}

	line := ""
	if n, err := mq.ParsePayload[notify.Message](&msg); err == nil && n.Subject != "" {
		line = n.Subject
		if n.ExecutionID != "" {
			line += " (" + n.ExecutionID + ")"
		}
	} else if payload, err := json.Marshal(msg.Payload); err == nil {
		line = string(payload)
	}
	fmt.Fprintf(o.w, "%s  %-24s  %s\n", formatTime(msg.Timestamp), msg.Type, line)
}

func taskRow(t domain.Task) []string {
	started := "-"
	if t.StartedAt != nil {
		started = formatTime(*t.StartedAt)
	}
	return []string{
		t.Ref,
		t.Status.String(),
		strconv.Itoa(t.ProgressPercent) + "%",
		started,
		t.Error,
	}
}

func requiredLabel(required bool) string {
	if required {
		return "required"
	}
	return "optional"
}

func successLabel(success bool) string {
	if success {
		return "ok"
	}
	return "failed"
}

func formatMillis(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).String()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

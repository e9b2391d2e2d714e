package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
)

// Output управляет форматированием вывода CLI.
//
// Два режима: человекочитаемые таблицы (по умолчанию) и JSON для
// скриптов — `synapse run list --json | jq '.[].id'`. Данные идут в
// stdout, служебные сообщения в stderr, чтобы не ломать pipe.
type Output struct {
	asJSON bool
	out    io.Writer
	errOut io.Writer
}

// NewOutput создаёт Output. Если asJSON=true, данные выводятся в JSON.
func NewOutput(asJSON bool) *Output {
	return &Output{
		asJSON: asJSON,
		out:    os.Stdout,
		errOut: os.Stderr,
	}
}

// Print выводит данные: таблицу или JSON в зависимости от режима.
func (o *Output) Print(headers []string, rows [][]string, jsonData any) {
	if o.asJSON {
		o.JSON(jsonData)
		return
	}
	o.Table(headers, rows)
}

// Table выводит данные в виде таблицы через tabwriter.
// Пустой список строк отмечается в stderr, таблица не печатается.
func (o *Output) Table(headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Fprintln(o.errOut, "(no results)")
		return
	}

	tw := tabwriter.NewWriter(o.out, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	dashes := make([]string, len(headers))
	for i, h := range headers {
		dashes[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(tw, strings.Join(dashes, "\t"))

	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}

	tw.Flush()
}

// JSON выводит данные в формате JSON с отступами.
func (o *Output) JSON(v any) {
	enc := json.NewEncoder(o.out)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

// Success выводит сообщение об успехе в stderr.
func (o *Output) Success(msg string) {
	fmt.Fprintln(o.errOut, msg)
}

// Error выводит сообщение об ошибке в stderr.
func (o *Output) Error(msg string) {
	fmt.Fprintln(o.errOut, "Error: "+msg)
}

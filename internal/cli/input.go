package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/roach88/flux/internal/ir"
)

// readRecords collects JSON action records from positional arguments and,
// if file is set, from a JSON-lines file ("-" reads in). Blank lines and
// lines starting with '#' are skipped.
func readRecords(args []string, file string, in io.Reader) ([]ir.Object, error) {
	var records []ir.Object
	for i, arg := range args {
		obj, err := parseRecord(arg)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		records = append(records, obj)
	}

	if file == "" {
		return records, nil
	}

	r := in
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("open actions file: %w", err)
		}
		defer f.Close()
		r = f
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		obj, err := parseRecord(text)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", file, line, err)
		}
		records = append(records, obj)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read actions file: %w", err)
	}
	return records, nil
}

func parseRecord(text string) (ir.Object, error) {
	v, err := ir.Parse([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("invalid action JSON: %w", err)
	}
	obj, ok := v.(ir.Object)
	if !ok {
		return nil, fmt.Errorf("action must be a JSON object")
	}
	return obj, nil
}

func recordType(obj ir.Object) string {
	t, _ := obj["type"].(ir.String)
	return string(t)
}

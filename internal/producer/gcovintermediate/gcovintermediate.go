// Package gcovintermediate parses GCC/LLVM gcov's line-oriented
// "intermediate" text format (spec §4.2).
package gcovintermediate

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/grcov-go/grcov/internal/coverage"
	"github.com/grcov-go/grcov/internal/producer"
)

func init() {
	producer.Register(coverage.KindGcovIntermediateText, func() producer.Producer { return &Producer{} })
}

// Producer implements producer.Producer for the gcov intermediate format.
type Producer struct{}

// Produce parses the WorkItem's payload, emitting one record per `file:`
// header (spec §4.2).
func (p *Producer) Produce(item coverage.WorkItem, _ producer.Config, emit producer.Emit) error {
	content := item.Payload.Content
	return Parse(content, emit)
}

// Parse runs the intermediate-format grammar over raw text and calls emit
// once per `file:` section. Exported so the gcno/gcda producer can reuse it
// after shelling out to a real gcov binary (spec §9).
func Parse(content []byte, emit producer.Emit) error {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var rec *coverage.Record

	flush := func() {
		if rec != nil && !rec.IsEmpty() {
			emit(rec)
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "file:"):
			flush()
			name := strings.TrimPrefix(line, "file:")
			rec = coverage.NewRecord(name)

		case strings.HasPrefix(line, "function:"):
			if rec == nil {
				continue
			}
			// function:LINE,COUNT,NAME
			parts := strings.SplitN(strings.TrimPrefix(line, "function:"), ",", 3)
			if len(parts) != 3 {
				continue
			}
			startLine, err := strconv.ParseUint(parts[0], 10, 32)
			if err != nil {
				continue
			}
			count, err := strconv.ParseUint(parts[1], 10, 64)
			if err != nil {
				continue
			}
			name := parts[2]
			rec.AddFunction(name, uint32(startLine), count > 0)

		case strings.HasPrefix(line, "lcount:"):
			if rec == nil {
				continue
			}
			// lcount:LINE,COUNT[,UNEXECUTED_BLOCK]
			parts := strings.SplitN(strings.TrimPrefix(line, "lcount:"), ",", 3)
			if len(parts) < 2 {
				continue
			}
			lineNo, err := strconv.ParseUint(parts[0], 10, 32)
			if err != nil {
				continue
			}
			count, err := strconv.ParseUint(parts[1], 10, 64)
			if err != nil {
				continue
			}
			rec.AddLine(uint32(lineNo), count)

		case strings.HasPrefix(line, "branch:"):
			if rec == nil {
				continue
			}
			// branch:LINE,KIND where KIND in {taken, nottaken, notexec}
			parts := strings.SplitN(strings.TrimPrefix(line, "branch:"), ",", 2)
			if len(parts) != 2 {
				continue
			}
			lineNo64, err := strconv.ParseUint(parts[0], 10, 32)
			if err != nil {
				continue
			}
			lineNo := uint32(lineNo64)

			var b coverage.Branch
			switch parts[1] {
			case "taken":
				b = coverage.Branch{Taken: true, Executed: true}
			case "nottaken":
				b = coverage.Branch{Taken: false, Executed: true}
			case "notexec":
				b = coverage.Branch{Taken: false, Executed: false}
			default:
				continue
			}

			// Branches are collected in source order per line; the ordinal
			// index is tracked per-line by Record, so branches on
			// different lines never share a counter (spec §4.2).
			rec.AppendBranch(lineNo, b)
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("gcov intermediate: %w", err)
	}
	return nil
}

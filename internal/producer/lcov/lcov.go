// Package lcov parses the lcov INFO line-oriented format (spec §4.2).
package lcov

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
	producer.Register(coverage.KindLcovInfo, func() producer.Producer { return &Producer{} })
}

// Producer implements producer.Producer for lcov .info files.
type Producer struct{}

// Produce parses the WorkItem's payload, emitting one record per SF:/
// end_of_record pair (spec §4.2).
func (p *Producer) Produce(item coverage.WorkItem, _ producer.Config, emit producer.Emit) error {
	return Parse(item.Payload.Content, emit)
}

// Parse runs the lcov INFO grammar over raw text, calling emit once per
// SF:/end_of_record pair.
func Parse(content []byte, emit producer.Emit) error {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var rec *coverage.Record

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "SF:"):
			rec = coverage.NewRecord(strings.TrimPrefix(line, "SF:"))

		case strings.HasPrefix(line, "DA:"):
			if rec == nil {
				continue
			}
			// DA:L,C[,CHK] - checksum is ignored.
			parts := strings.SplitN(strings.TrimPrefix(line, "DA:"), ",", 3)
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

		case strings.HasPrefix(line, "BRDA:"):
			if rec == nil {
				continue
			}
			// BRDA:L,BLOCK,BRANCH,TAKEN
			parts := strings.SplitN(strings.TrimPrefix(line, "BRDA:"), ",", 4)
			if len(parts) != 4 {
				continue
			}
			lineNo, err := strconv.ParseUint(parts[0], 10, 32)
			if err != nil {
				continue
			}
			branchIdx, err := strconv.Atoi(parts[2])
			if err != nil {
				continue
			}

			var b coverage.Branch
			switch parts[3] {
			case "-":
				b = coverage.Branch{Taken: false, Executed: false}
			case "0":
				b = coverage.Branch{Taken: false, Executed: true}
			default:
				count, err := strconv.ParseUint(parts[3], 10, 64)
				if err != nil || count == 0 {
					b = coverage.Branch{Taken: false, Executed: true}
				} else {
					b = coverage.Branch{Taken: true, Executed: true}
				}
			}
			rec.SetBranch(uint32(lineNo), branchIdx, b)

		case strings.HasPrefix(line, "FN:"):
			if rec == nil {
				continue
			}
			// FN:L,NAME
			parts := strings.SplitN(strings.TrimPrefix(line, "FN:"), ",", 2)
			if len(parts) != 2 {
				continue
			}
			startLine, err := strconv.ParseUint(parts[0], 10, 32)
			if err != nil {
				continue
			}
			rec.AddFunction(parts[1], uint32(startLine), false)

		case strings.HasPrefix(line, "FNDA:"):
			if rec == nil {
				continue
			}
			// FNDA:C,NAME
			parts := strings.SplitN(strings.TrimPrefix(line, "FNDA:"), ",", 2)
			if len(parts) != 2 {
				continue
			}
			count, err := strconv.ParseUint(parts[0], 10, 64)
			if err != nil {
				continue
			}
			rec.MarkFunctionExecuted(parts[1], count > 0)

		case line == "end_of_record":
			if rec != nil && !rec.IsEmpty() {
				emit(rec)
			}
			rec = nil
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("lcov: %w", err)
	}
	return nil
}

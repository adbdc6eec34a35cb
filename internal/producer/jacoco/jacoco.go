// Package jacoco streams JaCoCo XML coverage reports (spec §4.2).
package jacoco

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/grcov-go/grcov/internal/coverage"
	"github.com/grcov-go/grcov/internal/producer"
)

func init() {
	producer.Register(coverage.KindJacocoXML, func() producer.Producer { return &Producer{} })
}

// Producer implements producer.Producer for JaCoCo XML reports.
//
// encoding/xml is used rather than a third-party XML library: no XML
// library appears anywhere in the retrieval pack (teacher or siblings), so
// there is no ecosystem precedent to follow here, and a streaming decoder
// over encoding/xml.Decoder is exactly what "streams the document" (spec
// §4.2) calls for.
type Producer struct{}

// Produce decodes the WorkItem's payload, emitting one record per
// <sourcefile> element (spec §4.2).
func (p *Producer) Produce(item coverage.WorkItem, _ producer.Config, emit producer.Emit) error {
	return Parse(item.Payload.Content, emit)
}

// pendingFunction is a <method> seen under a <class>, held until the
// matching <sourcefile> opens (JaCoCo lists every <class> in a package
// before that package's <sourcefile> elements, so a method's line data
// can't be attached to a Record until its file shows up).
type pendingFunction struct {
	name      string
	startLine uint32
	executed  bool
}

// Parse streams a JaCoCo XML document, emitting one record per
// <sourcefile>/<package> pair. JaCoCo XML nests <sourcefile> inside
// <package>, so the emitted path is "<package>/<sourcefile name>" to keep
// paths from different packages distinct, matching how JaCoCo's own HTML
// report lays out per-package directories.
func Parse(content []byte, emit producer.Emit) error {
	dec := xml.NewDecoder(bytes.NewReader(content))

	var currentPackage string
	var currentClassFile string
	var rec *coverage.Record
	pending := make(map[string][]pendingFunction)

	var inMethod bool
	var methodCounted bool

	flushSourcefile := func() {
		if rec != nil && !rec.IsEmpty() {
			emit(rec)
		}
		rec = nil
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("jacoco: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "package":
				currentPackage = attr(t, "name")
				pending = make(map[string][]pendingFunction)
			case "class":
				currentClassFile = classSourceFile(attr(t, "name"))
			case "sourcefile":
				flushSourcefile()
				name := attr(t, "name")
				path := name
				if currentPackage != "" {
					path = currentPackage + "/" + name
				}
				rec = coverage.NewRecord(path)
				for _, fn := range pending[name] {
					rec.AddFunction(fn.name, fn.startLine, fn.executed)
				}
				delete(pending, name)
			case "method":
				inMethod = true
				methodCounted = false
				name := attr(t, "name") + attr(t, "desc")
				startLine := atoiAttr(t, "line")
				pending[currentClassFile] = append(pending[currentClassFile], pendingFunction{name: name, startLine: uint32(startLine)})
			case "counter":
				if inMethod && !methodCounted && attr(t, "type") == "METHOD" {
					methodCounted = true
					if atoiAttr(t, "covered") > 0 {
						list := pending[currentClassFile]
						if n := len(list); n > 0 {
							list[n-1].executed = true
						}
					}
				}
			case "line":
				if rec == nil {
					continue
				}
				nr := atoiAttr(t, "nr")
				ci := atoiAttr(t, "ci")
				mb := atoiAttr(t, "mb")
				cb := atoiAttr(t, "cb")

				lineNo := uint32(nr)
				count := uint64(0)
				if ci > 0 {
					count = uint64(ci)
				}
				rec.AddLine(lineNo, count)

				total := mb + cb
				for i := 0; i < cb; i++ {
					rec.AppendBranch(lineNo, coverage.Branch{Taken: true, Executed: true})
				}
				for i := cb; i < total; i++ {
					rec.AppendBranch(lineNo, coverage.Branch{Taken: false, Executed: true})
				}
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "method":
				inMethod = false
			case "sourcefile":
				flushSourcefile()
			}
		}
	}
	flushSourcefile()
	return nil
}

// classSourceFile derives the .java file name a class belongs to: the
// simple class name (after the last '/'), with any nested-class suffix
// ("$Inner") stripped, since JaCoCo attributes all nested classes to their
// enclosing file.
func classSourceFile(className string) string {
	simple := className
	if i := strings.LastIndexByte(simple, '/'); i >= 0 {
		simple = simple[i+1:]
	}
	if i := strings.IndexByte(simple, '$'); i >= 0 {
		simple = simple[:i]
	}
	return simple + ".java"
}

func attr(t xml.StartElement, name string) string {
	for _, a := range t.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func atoiAttr(t xml.StartElement, name string) int {
	v := attr(t, name)
	n := 0
	for _, c := range v {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}

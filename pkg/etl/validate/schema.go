// Package validate implements the three validation gates of the pipeline:
// the schema gate over the raw XML, the post-schema checks (filename PII and
// service-code uniqueness), and the PTI policy profile.
package validate

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/timetabler/timetabler/pkg/transmodel"
	"golang.org/x/net/html/charset"
)

var structValidator = validator.New()

// rootConstraints are the field-level rules on the TransXChange root element.
type rootConstraints struct {
	CreationDateTime     string `validate:"required"`
	ModificationDateTime string `validate:"required"`
	SchemaVersion        string `validate:"required,oneof=2.1 2.4"`
}

// elementRule requires a child element inside a container element.
type elementRule struct {
	container string
	child     string
	message   string
}

var childRules = []elementRule{
	{"Service", "ServiceCode", "Service is missing required element ServiceCode"},
	{"VehicleJourney", "VehicleJourneyCode", "VehicleJourney is missing required element VehicleJourneyCode"},
	{"VehicleJourney", "DepartureTime", "VehicleJourney is missing required element DepartureTime"},
}

// CheckSchema scans the raw bytes and returns one violation row per schema
// error, each with the line it occurred on. An empty result means the
// document passed the gate.
func CheckSchema(data []byte, filename string, revisionID int) []transmodel.SchemaViolation {
	var violations []transmodel.SchemaViolation

	addViolation := func(line int, details string) {
		violations = append(violations, transmodel.SchemaViolation{
			Filename:   filename,
			Line:       line,
			Details:    details,
			RevisionID: revisionID,
		})
	}

	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.CharsetReader = charset.NewReaderLabel
	decoder.Entity = map[string]string{}

	type openElement struct {
		name     string
		line     int
		children map[string]bool
	}

	var stack []openElement
	sawRoot := false

	for {
		lineBefore := lineAt(data, decoder.InputOffset())

		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			line := lineBefore
			var syntaxError *xml.SyntaxError
			if errors.As(err, &syntaxError) {
				line = syntaxError.Line
			}

			addViolation(line, err.Error())
			return violations
		}

		switch element := token.(type) {
		case xml.Directive:
			if strings.HasPrefix(strings.TrimSpace(string(element)), "DOCTYPE") {
				addViolation(lineAt(data, decoder.InputOffset()), "DOCTYPE declarations are not allowed")
				return violations
			}
		case xml.StartElement:
			line := lineAt(data, decoder.InputOffset())

			if !sawRoot {
				sawRoot = true
				violations = append(violations, checkRoot(element, line, filename, revisionID)...)
			}

			if len(stack) > 0 {
				parent := &stack[len(stack)-1]
				parent.children[element.Name.Local] = true
			}

			stack = append(stack, openElement{
				name:     element.Name.Local,
				line:     line,
				children: map[string]bool{},
			})
		case xml.EndElement:
			if len(stack) == 0 {
				continue
			}

			closed := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			for _, rule := range childRules {
				if rule.container == closed.name && !closed.children[rule.child] {
					addViolation(closed.line, rule.message)
				}
			}
		}
	}

	if !sawRoot {
		addViolation(1, "document has no root element")
	}

	return violations
}

func checkRoot(root xml.StartElement, line int, filename string, revisionID int) []transmodel.SchemaViolation {
	var violations []transmodel.SchemaViolation

	if root.Name.Local != "TransXChange" {
		violations = append(violations, transmodel.SchemaViolation{
			Filename:   filename,
			Line:       line,
			Details:    fmt.Sprintf("expected root element TransXChange, found %s", root.Name.Local),
			RevisionID: revisionID,
		})
		return violations
	}

	var constraints rootConstraints
	for _, attribute := range root.Attr {
		switch attribute.Name.Local {
		case "CreationDateTime":
			constraints.CreationDateTime = attribute.Value
		case "ModificationDateTime":
			constraints.ModificationDateTime = attribute.Value
		case "SchemaVersion":
			constraints.SchemaVersion = attribute.Value
		}
	}

	err := structValidator.Struct(constraints)
	if err == nil {
		return violations
	}

	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) {
		for _, fieldError := range fieldErrors {
			violations = append(violations, transmodel.SchemaViolation{
				Filename:   filename,
				Line:       line,
				Details:    fmt.Sprintf("root attribute %s fails constraint %s", fieldError.Field(), fieldError.Tag()),
				RevisionID: revisionID,
			})
		}
	}

	return violations
}

// lineAt converts a decoder byte offset into a 1-based line number.
func lineAt(data []byte, offset int64) int {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}

	return bytes.Count(data[:offset], []byte{'\n'}) + 1
}

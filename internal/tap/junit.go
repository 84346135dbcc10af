package tap

import (
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"
)

// JUnit XML schema types

// JUnitTestSuites is the top-level container.
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite maps to one report.
type JUnitTestSuite struct {
	XMLName    xml.Name        `xml:"testsuite"`
	Name       string          `xml:"name,attr"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Skipped    int             `xml:"skipped,attr"`
	Timestamp  string          `xml:"timestamp,attr,omitempty"`
	Properties []JUnitProperty `xml:"properties>property,omitempty"`
	TestCases  []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase maps to one outcome.
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Skipped   *JUnitSkipped `xml:"skipped,omitempty"`
}

// JUnitFailure represents a failed check.
type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitSkipped marks a SKIP or TODO outcome.
type JUnitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// JUnitProperty is a key-value metadata entry.
type JUnitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// JUnitOptions carries suite metadata for ConvertToJUnit.
type JUnitOptions struct {
	Suite      string
	Timestamp  time.Time
	Properties map[string]string
}

// ConvertToJUnit converts the report to JUnit XML types. TODO outcomes are
// reported as skipped rather than failed, as TAP consumers treat them.
func ConvertToJUnit(r *Report, opts JUnitOptions) *JUnitTestSuites {
	suite := JUnitTestSuite{Name: opts.Suite}
	if !opts.Timestamp.IsZero() {
		suite.Timestamp = opts.Timestamp.Format(time.RFC3339)
	}
	for _, name := range sortedKeys(opts.Properties) {
		suite.Properties = append(suite.Properties, JUnitProperty{Name: name, Value: opts.Properties[name]})
	}

	for i, o := range r.outcomes {
		tc := JUnitTestCase{
			Name:      caseName(i, o),
			Classname: opts.Suite,
		}
		switch {
		case o.IsSkip() || o.IsTodo():
			tc.Skipped = &JUnitSkipped{Message: o.Directive}
			suite.Skipped++
		case !o.OK:
			tc.Failure = &JUnitFailure{
				Message: o.Label(),
				Type:    "CheckFailure",
				Body:    o.Comment,
			}
			suite.Failures++
		}
		suite.Tests++
		suite.TestCases = append(suite.TestCases, tc)
	}

	return &JUnitTestSuites{
		Tests:      suite.Tests,
		Failures:   suite.Failures,
		TestSuites: []JUnitTestSuite{suite},
	}
}

func caseName(i int, o Outcome) string {
	if o.Description == "" {
		return "test " + strconv.Itoa(i+1)
	}
	return o.Description
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// WriteJUnit writes the report as indented JUnit XML to w.
func (r *Report) WriteJUnit(w io.Writer, opts JUnitOptions) error {
	data, err := xml.MarshalIndent(ConvertToJUnit(r, opts), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JUnit XML: %w", err)
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("failed to write JUnit XML: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write JUnit XML: %w", err)
	}
	return nil
}

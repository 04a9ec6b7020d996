// SPDX-License-Identifier: MPL-2.0

package cargoreport

import (
	"bytes"
	"encoding/xml"
	"io"
	"strconv"
)

const (
	// StatusPassed marks a test case without failure or skip markers.
	StatusPassed = "passed"
	// StatusFailed marks a test case with a failure or error element.
	StatusFailed = "failed"
	// StatusSkipped marks a test case with a skipped element.
	StatusSkipped = "skipped"
)

type (
	// TestCase is one JUnit test case.
	TestCase struct {
		Name           string  `json:"name" yaml:"name"`
		ClassName      string  `json:"classname" yaml:"classname"`
		TimeSeconds    float64 `json:"time_seconds" yaml:"time_seconds"`
		Status         string  `json:"status" yaml:"status"`
		FailureMessage string  `json:"failure_message,omitempty" yaml:"failure_message,omitempty"`
	}

	// TestSuite is one JUnit test suite.
	TestSuite struct {
		Name        string     `json:"name" yaml:"name"`
		Tests       uint32     `json:"tests" yaml:"tests"`
		Failures    uint32     `json:"failures" yaml:"failures"`
		Errors      uint32     `json:"errors" yaml:"errors"`
		Skipped     uint32     `json:"skipped" yaml:"skipped"`
		TimeSeconds float64    `json:"time_seconds" yaml:"time_seconds"`
		TestCases   []TestCase `json:"test_cases" yaml:"test_cases"`
	}

	// TestReport aggregates every suite of a JUnit document.
	TestReport struct {
		Suites           []TestSuite `json:"suites" yaml:"suites"`
		TotalTests       uint32      `json:"total_tests" yaml:"total_tests"`
		TotalPassed      uint32      `json:"total_passed" yaml:"total_passed"`
		TotalFailed      uint32      `json:"total_failed" yaml:"total_failed"`
		TotalSkipped     uint32      `json:"total_skipped" yaml:"total_skipped"`
		TotalTimeSeconds float64     `json:"total_time_seconds" yaml:"total_time_seconds"`
	}

	xmlSuite struct {
		Name     string    `xml:"name,attr"`
		Tests    string    `xml:"tests,attr"`
		Failures string    `xml:"failures,attr"`
		Errors   string    `xml:"errors,attr"`
		Skipped  string    `xml:"skipped,attr"`
		Time     string    `xml:"time,attr"`
		Cases    []xmlCase `xml:"testcase"`
	}

	xmlCase struct {
		Name      string      `xml:"name,attr"`
		ClassName string      `xml:"classname,attr"`
		Time      string      `xml:"time,attr"`
		Failure   *xmlMessage `xml:"failure"`
		Error     *xmlMessage `xml:"error"`
		Skipped   *xmlMessage `xml:"skipped"`
	}

	xmlMessage struct {
		Message string `xml:"message,attr"`
	}
)

// DecodeJUnit decodes a JUnit XML document. Suites may appear at the top
// level or nested in a <testsuites> element. Missing or malformed numeric
// attributes count as zero.
func DecodeJUnit(data []byte) (TestReport, error) {
	report := TestReport{Suites: []TestSuite{}}
	dec := xml.NewDecoder(bytes.NewReader(data))

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return TestReport{}, decodeErr(FormatJUnit, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "testsuite" {
			continue
		}

		var raw xmlSuite
		if err := dec.DecodeElement(&raw, &start); err != nil {
			return TestReport{}, decodeErr(FormatJUnit, err)
		}
		suite := raw.convert()

		report.TotalTests += suite.Tests
		report.TotalFailed += suite.Failures + suite.Errors
		report.TotalSkipped += suite.Skipped
		if notPassed := suite.Failures + suite.Errors + suite.Skipped; suite.Tests > notPassed {
			report.TotalPassed += suite.Tests - notPassed
		}
		report.TotalTimeSeconds += suite.TimeSeconds
		report.Suites = append(report.Suites, suite)
	}
	return report, nil
}

func (s xmlSuite) convert() TestSuite {
	suite := TestSuite{
		Name:        s.Name,
		Tests:       parseCount(s.Tests),
		Failures:    parseCount(s.Failures),
		Errors:      parseCount(s.Errors),
		Skipped:     parseCount(s.Skipped),
		TimeSeconds: parseSeconds(s.Time),
		TestCases:   make([]TestCase, 0, len(s.Cases)),
	}
	for _, c := range s.Cases {
		tc := TestCase{Name: c.Name, ClassName: c.ClassName, TimeSeconds: parseSeconds(c.Time), Status: StatusPassed}
		switch {
		case c.Failure != nil:
			tc.Status = StatusFailed
			tc.FailureMessage = c.Failure.Message
		case c.Error != nil:
			tc.Status = StatusFailed
			tc.FailureMessage = c.Error.Message
		case c.Skipped != nil:
			tc.Status = StatusSkipped
		}
		suite.TestCases = append(suite.TestCases, tc)
	}
	return suite
}

func parseCount(s string) uint32 {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0
	}
	return uint32(n)
}

func parseSeconds(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

package report

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
)

type junitSuites struct {
	XMLName  xml.Name     `xml:"testsuites"`
	Name     string       `xml:"name,attr"`
	Tests    int          `xml:"tests,attr"`
	Failures int          `xml:"failures,attr"`
	Errors   int          `xml:"errors,attr"`
	Skipped  int          `xml:"skipped,attr"`
	Time     string       `xml:"time,attr"`
	Suites   []junitSuite `xml:"testsuite"`
}

type junitSuite struct {
	Name      string      `xml:"name,attr"`
	ID        string      `xml:"id,attr"`
	Tests     int         `xml:"tests,attr"`
	Failures  int         `xml:"failures,attr"`
	Errors    int         `xml:"errors,attr"`
	Skipped   int         `xml:"skipped,attr"`
	Timestamp string      `xml:"timestamp,attr,omitempty"`
	Cases     []junitCase `xml:"testcase"`
}

type junitCase struct {
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      string        `xml:"time,attr"`
	Failure   *junitProblem `xml:"failure,omitempty"`
	Error     *junitProblem `xml:"error,omitempty"`
	Skipped   *junitSkipped `xml:"skipped,omitempty"`
}

type junitProblem struct {
	Type    string `xml:"type,attr"`
	Message string `xml:"message,attr"`
	Body    string `xml:",chardata"`
}

type junitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

func seconds(ms *int64) string {
	if ms == nil {
		return "0.000"
	}
	return fmt.Sprintf("%.3f", float64(*ms)/1000)
}

// JUnit renders the index as JUnit XML, one test suite per device.
// Scenarios that never ran are grouped under "unassigned".
func JUnit(index *Index) ([]byte, error) {
	suites := junitSuites{Name: "swaglabs"}
	byDevice := make(map[string]int)

	var total int64
	for _, e := range index.Scenarios {
		dev := e.Device
		if dev == "" {
			dev = "unassigned"
		}
		i, ok := byDevice[dev]
		if !ok {
			i = len(suites.Suites)
			byDevice[dev] = i
			suites.Suites = append(suites.Suites, junitSuite{Name: dev, ID: index.RunID})
			if !index.StartTime.IsZero() {
				suites.Suites[i].Timestamp = index.StartTime.UTC().Format("2006-01-02T15:04:05")
			}
		}
		suite := &suites.Suites[i]

		tc := junitCase{Name: e.Name, Classname: "swaglabs." + dev, Time: seconds(e.Duration)}
		if e.Duration != nil {
			total += *e.Duration
		}

		msg, typ := "", ""
		if e.Error != nil {
			msg, typ = e.Error.Message, e.Error.Type
		}
		switch e.Status {
		case StatusFailed:
			tc.Failure = &junitProblem{Type: typ, Message: msg, Body: msg}
			suite.Failures++
			suites.Failures++
		case StatusErrored:
			tc.Error = &junitProblem{Type: typ, Message: msg, Body: msg}
			suite.Errors++
			suites.Errors++
		case StatusSkipped, StatusPending:
			tc.Skipped = &junitSkipped{Message: msg}
			suite.Skipped++
			suites.Skipped++
		}

		suite.Cases = append(suite.Cases, tc)
		suite.Tests++
		suites.Tests++
	}
	suites.Time = seconds(&total)

	out, err := xml.MarshalIndent(suites, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}

// WriteJUnit writes junit.xml next to report.json.
func WriteJUnit(outputDir string, index *Index) error {
	data, err := JUnit(index)
	if err != nil {
		return fmt.Errorf("render junit: %w", err)
	}
	if err := ensureDir(outputDir); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outputDir, "junit.xml"), data, 0o644)
}

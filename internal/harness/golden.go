package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/vulfram/vulfram-core/internal/protocol"
)

// ReportJSON renders a result as canonical JSON followed by a newline.
func ReportJSON(name string, res *Result) ([]byte, error) {
	out, err := protocol.MarshalCanonical(res.Report(name))
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

// RunWithGolden executes a scenario and compares its report against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	res, err := Run(scenario, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, res); err != nil {
		return nil, err
	}
	return res, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name string, res *Result) error {
	t.Helper()

	report, err := ReportJSON(name, res)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, report)
	return nil
}

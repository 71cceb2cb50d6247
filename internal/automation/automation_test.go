package automation

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/ausocean/utils/logging"

	"github.com/san-kum/liepid/internal/config"
)

func discard() logging.Logger {
	return logging.New(logging.Debug, io.Discard, true)
}

const scenarioYAML = `
name: smoke
description: short runs over a few groups
steps:
  - name: step response
    group: r1
    preset: step
    duration: 2
  - name: tight windup
    group: r1
    preset: windup
    duration: 2
    windup_limit: 0.1
  - name: attitude
    group: so3
    duration: 1
    gains:
      kp: [9]
      kd: [6]
`

func TestLoadAndRunScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(scenarioYAML), 0644); err != nil {
		t.Fatal(err)
	}

	sc, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if sc.Name != "smoke" || len(sc.Steps) != 3 {
		t.Fatalf("unexpected scenario: %+v", sc)
	}

	results, err := RunScenario(context.Background(), sc, discard())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if got := results[1].Config.Params.WindupLimit; got != 0.1 {
		t.Errorf("expected windup override 0.1, got %g", got)
	}
	if got := results[2].Config.Gains.Kp; len(got) != 1 || got[0] != 9 {
		t.Errorf("expected kp override [9], got %v", got)
	}
	for i, r := range results {
		if r.Err != nil || r.Result == nil {
			t.Errorf("step %d: unexpected outcome err=%v", i, r.Err)
		}
	}
	if results[0].Result.StepsTaken != 200 {
		t.Errorf("expected 200 steps, got %d", results[0].Result.StepsTaken)
	}
}

func TestLoadEmptyScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, []byte("name: empty\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadScenario(path); !errors.Is(err, ErrEmptyScenario) {
		t.Errorf("expected ErrEmptyScenario, got %v", err)
	}
}

func TestScenarioBadStep(t *testing.T) {
	sc := &Scenario{Steps: []Step{
		{Group: "r1", Preset: "step", Duration: 1},
		{Group: "r1", Preset: "missing"},
	}}
	results, err := RunScenario(context.Background(), sc, discard())
	if err == nil {
		t.Fatal("expected error for unknown preset")
	}
	if len(results) != 1 {
		t.Errorf("expected the first step to complete, got %d results", len(results))
	}
}

func TestRunSweep(t *testing.T) {
	base := config.GetPreset("r1", "step")
	base.Duration = 2

	results, err := RunSweep(context.Background(), &Sweep{Base: base, Param: "kp", Min: 1, Max: 9, NumSteps: 5}, discard())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	for i, want := range []float64{1, 3, 5, 7, 9} {
		if results[i].Value != want {
			t.Errorf("point %d: expected %g, got %g", i, want, results[i].Value)
		}
		if _, ok := results[i].Metrics["tracking_rms"]; !ok {
			t.Errorf("point %d: tracking_rms missing", i)
		}
	}
	if len(base.Gains.Kp) != 1 || base.Gains.Kp[0] != 4 {
		t.Errorf("base config modified: kp=%v", base.Gains.Kp)
	}
}

func TestRunSweepErrors(t *testing.T) {
	base := config.DefaultConfig()
	if _, err := RunSweep(context.Background(), &Sweep{Base: base, Param: "kx", NumSteps: 2}, discard()); !errors.Is(err, ErrUnknownParam) {
		t.Errorf("expected ErrUnknownParam, got %v", err)
	}
	if _, err := RunSweep(context.Background(), &Sweep{Base: base, Param: "kp"}, discard()); !errors.Is(err, config.ErrBadValue) {
		t.Errorf("expected ErrBadValue, got %v", err)
	}
}

package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nstehr/eocatr-core/agent"
	"github.com/nstehr/eocatr-core/decision"
	"github.com/nstehr/eocatr-core/rules"
	"github.com/nstehr/eocatr-core/store"
)

const tigerYAML = `
- environment: {content: forest}
  object: {content: tiger}
  action: {content: approach}
  tool: {content: spear}
  result: {content: injured}
  confidence: 1
`

func setup(t *testing.T) (dir, cfgPath string) {
	t.Helper()
	dir = t.TempDir()
	cfgPath = filepath.Join(dir, "eocatr.yaml")
	body := fmt.Sprintf("storage:\n  driver: sqlite\n  path: %s\nlogging:\n  level: error\n", filepath.Join(dir, "rules.db"))
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o644))

	exps := filepath.Join(dir, "experiences.yaml")
	require.NoError(t, os.WriteFile(exps, []byte(strings.Repeat(tigerYAML, 4)), 0o644))
	return dir, cfgPath
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	jsonOutput, skipMaintain, decideBatch = false, false, false
	topN, decideWorkers = 10, 0
	decideRules = ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute(), "eocatr %s", strings.Join(args, " "))
	return out.String()
}

func TestLearnTopExport(t *testing.T) {
	dir, cfgPath := setup(t)

	out := run(t, "--config", cfgPath, "--json", "learn", "--no-maintain", filepath.Join(dir, "experiences.yaml"))
	var sum learnSummary
	require.NoError(t, json.Unmarshal([]byte(out), &sum))
	require.Equal(t, 4, sum.Experiences)
	require.Positive(t, sum.Rules)

	out = run(t, "--config", cfgPath, "--json", "rules", "top", "-n", "2")
	var top []rules.Record
	require.NoError(t, json.Unmarshal([]byte(out), &top))
	require.NotEmpty(t, top)
	require.LessOrEqual(t, len(top), 2)
	require.GreaterOrEqual(t, top[0].Confidence, top[len(top)-1].Confidence)

	export := filepath.Join(dir, "export", "rules.yaml")
	run(t, "--config", cfgPath, "rules", "export", export)
	recs, err := store.ReadFile(export)
	require.NoError(t, err)
	require.Len(t, recs, sum.Rules)

	out = run(t, "--config", cfgPath, "--json", "rules", "query", `Does("approach")`)
	var matched []rules.Record
	require.NoError(t, json.Unmarshal([]byte(out), &matched))
	for _, rec := range matched {
		require.Equal(t, "approach", rec.Action)
	}
}

func TestLearnAcrossFiles(t *testing.T) {
	dir, cfgPath := setup(t)
	out := run(t, "--config", cfgPath, "--json", "learn", "--no-maintain", filepath.Join(dir, "experiences.yaml"))
	var single learnSummary
	require.NoError(t, json.Unmarshal([]byte(out), &single))

	_, otherCfg := setup(t)
	var files []string
	for i := range 2 {
		path := filepath.Join(dir, fmt.Sprintf("part-%d.yaml", i))
		require.NoError(t, os.WriteFile(path, []byte(strings.Repeat(tigerYAML, 2)), 0o644))
		files = append(files, path)
	}
	out = run(t, append([]string{"--config", otherCfg, "--json", "learn", "--no-maintain"}, files...)...)
	var split learnSummary
	require.NoError(t, json.Unmarshal([]byte(out), &split))

	require.Equal(t, 4, split.Experiences)
	require.Equal(t, single.Promoted, split.Promoted)
	require.Equal(t, single.Rules, split.Rules)
}

func TestImportIntoEmptyStore(t *testing.T) {
	dir, cfgPath := setup(t)
	run(t, "--config", cfgPath, "learn", "--no-maintain", filepath.Join(dir, "experiences.yaml"))
	export := filepath.Join(dir, "rules.json")
	run(t, "--config", cfgPath, "rules", "export", export)

	other := filepath.Join(dir, "other.yaml")
	body := fmt.Sprintf("storage:\n  driver: sqlite\n  path: %s\nlogging:\n  level: error\n", filepath.Join(dir, "other.db"))
	require.NoError(t, os.WriteFile(other, []byte(body), 0o644))
	run(t, "--config", other, "rules", "import", export)

	want, err := store.ReadFile(export)
	require.NoError(t, err)
	out := run(t, "--config", other, "--json", "rules", "top", "-n", "-1")
	var got []rules.Record
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, len(want))
}

func TestDecide(t *testing.T) {
	dir, cfgPath := setup(t)
	run(t, "--config", cfgPath, "learn", "--no-maintain", filepath.Join(dir, "experiences.yaml"))

	req := filepath.Join(dir, "request.yaml")
	require.NoError(t, os.WriteFile(req, []byte(`
state:
  environment: {forest: true}
  objects: {tiger: true, spear: true}
goal:
  goal_type: hunt
  target:
    conditions: {injured: true}
`), 0o644))
	out := run(t, "--config", cfgPath, "--json", "decide", req)
	var res decision.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.True(t, res.Success)
	require.NotEqual(t, decision.MethodNone, res.Method)
	require.NotEmpty(t, res.Actions)

	batch := filepath.Join(dir, "batch.yaml")
	require.NoError(t, os.WriteFile(batch, []byte(`
- id: a
  state: {environment: {forest: true}, objects: {tiger: true}}
  goal: {goal_type: hunt, target: {conditions: {injured: true}}}
- state: {environment: {desert: true}}
  goal: {goal_type: rest, target: {conditions: {rested: true}}}
`), 0o644))
	out = run(t, "--config", cfgPath, "--json", "decide", "--batch", "--workers", "2", batch)
	var resps []agent.Response
	require.NoError(t, json.Unmarshal([]byte(out), &resps))
	require.Len(t, resps, 2)
	require.Equal(t, "a", resps[0].ID)
	require.Equal(t, "req-2", resps[1].ID)
	require.NotEmpty(t, resps[1].Result.Method)
}

func TestDecideWithRuleFile(t *testing.T) {
	dir, cfgPath := setup(t)
	ruleFile := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(ruleFile, []byte(`
- id: flee-tiger
  conditions:
    - {type: object, content: tiger}
    - {type: action, content: flee}
  result: {content: safe}
  confidence: 0.8
`), 0o644))
	req := filepath.Join(dir, "request.yaml")
	require.NoError(t, os.WriteFile(req, []byte(`
state:
  objects: {tiger: true}
goal:
  goal_type: survive
  target:
    conditions: {safe: true}
`), 0o644))

	out := run(t, "--config", cfgPath, "--json", "decide", "--rules", ruleFile, req)
	var res decision.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.True(t, res.Success)
	require.Contains(t, res.RuleChain, "flee-tiger")

	out = run(t, "--config", cfgPath, "--json", "decide", req)
	var stored decision.Result
	require.NoError(t, json.Unmarshal([]byte(out), &stored))
	require.False(t, stored.Success)
}

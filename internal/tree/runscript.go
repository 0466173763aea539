package tree

import (
	"fmt"
	"strings"
	"text/template"
)

// htcRunScript is the HTCondor flavor of the per-job run script. The job is
// self-contained: HTCondor lands in a scratch directory, so the script
// sources the environment and moves to the job directory before tracking.
const htcRunScript = `#!/bin/bash
# {{ .JobID }}
source {{ .EnvScript }}
cd {{ .JobDir }}
python run.py > output.python.stdout 2> output.python.stderr
`

var htcTemplate = template.Must(template.New("run_sh_htc").Parse(htcRunScript))

// NewHTCondorScript returns the ScriptGenerator used for HTCondor
// submission, sourcing envScript before each job.
func NewHTCondorScript(envScript string) ScriptGenerator {
	return func(job Job, jobDir string) (string, error) {
		var sb strings.Builder
		err := htcTemplate.Execute(&sb, struct {
			JobID     string
			JobDir    string
			EnvScript string
		}{
			JobID:     job.ID,
			JobDir:    jobDir,
			EnvScript: envScript,
		})
		if err != nil {
			return "", fmt.Errorf("rendering run script: %w", err)
		}
		return sb.String(), nil
	}
}

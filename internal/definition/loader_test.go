package definition

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aflo-dev/aflo/internal/domain/entity"
)

const patternSeed = `
workflow_patterns:
  - id: wfp-approval
    code: approval
    wf_pattern_contents:
      name: {en: Approval}
      status_list:
        - status_code: applied
          status_name: {en: Applied}
          next_status:
            - {status_code: approved, grant_role: director}
            - {status_code: rejected, grant_role: director}
        - status_code: approved
          next_status: []
        - status_code: rejected
          next_status: []
`

const templateSeed = `
ticket_templates:
  - id: tmpl-purchase
    workflow_pattern_id: wfp-approval
    ticket_type: purchase
    template_contents:
      first_status_code: applied
      create:
        parameters:
          - {name: title, type: string, required: true, max_length: 128}
          - {name: amount, type: number, min: 0}
          - {name: category, type: select_item, choices: [hardware, software]}
      update:
        parameters: []
      action:
        after:
          approved:
            - {broker_class: notification, broker_method: send_mail}
`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadAll(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "20-templates.yaml", templateSeed)
	writeFile(t, dir, "10-patterns.yml", patternSeed)
	writeFile(t, dir, "README.md", "ignored")

	set, err := NewLoader().LoadAll([]string{dir, filepath.Join(dir, "missing")})
	require.NoError(t, err)
	require.Len(t, set.Patterns, 1)
	require.Len(t, set.Templates, 1)
	assert.Equal(t, filepath.Join(dir, "10-patterns.yml"), set.Files[0])

	p := set.Patterns[0]
	assert.Equal(t, "approval", p.Code)
	edge, ok := p.Contents.Edge("applied", "rejected")
	require.True(t, ok)
	assert.Equal(t, "director", edge.GrantRole)
	assert.True(t, p.Contents.IsTerminal("approved"))
	assert.Equal(t, "Applied", p.Contents.StatusList[0].StatusName["en"])

	tmpl := set.Templates[0]
	assert.Equal(t, "wfp-approval", tmpl.WorkflowPatternID)
	params := tmpl.Contents.Schema(entity.OperationCreate)
	require.Len(t, params, 3)
	require.NotNil(t, params[0].MaxLength)
	assert.Equal(t, 128, *params[0].MaxLength)
	assert.Len(t, params[2].Choices, 2)
	hooks := tmpl.Contents.Action.Hooks(entity.TimingAfter, "approved")
	require.Len(t, hooks, 1)
	assert.Equal(t, "send_mail", hooks[0].BrokerMethod)
}

func TestLoadFileRejectsIncompleteEntries(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.yaml", "ticket_templates:\n  - ticket_type: purchase\n")
	_, err := NewLoader().LoadFile(filepath.Join(dir, "bad.yaml"))
	assert.Error(t, err)

	writeFile(t, dir, "broken.yaml", "workflow_patterns: [")
	_, err = NewLoader().LoadFile(filepath.Join(dir, "broken.yaml"))
	assert.Error(t, err)
}

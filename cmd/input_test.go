package cmd

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CodeMonkeyCybersecurity/verdict/internal/config"
	"github.com/CodeMonkeyCybersecurity/verdict/pkg/types"
)

const fullRequestYAML = `
finding:
  finding_id: F-7
  request:
    method: GET
    url: https://api.example.com/orders/42
    headers:
      Authorization: Bearer attacker
  expected:
    status_code: 200
repro_count: 5
negative_control:
  control_type: unauthenticated
identities:
  - identity_id: victim
    auth_type: cookie
    cookies:
      session: abc
      csrf: xyz
    should_have_access: true
`

func TestParseRequest_FullDocument(t *testing.T) {
	req, err := parseRequest("req.yaml", []byte(fullRequestYAML))
	require.NoError(t, err)

	assert.Equal(t, "F-7", req.Finding.FindingID)
	assert.Equal(t, "Bearer attacker", req.Finding.Request.Headers["Authorization"])
	require.NotNil(t, req.Finding.Expected)
	assert.Equal(t, 200, *req.Finding.Expected.StatusCode)
	require.NotNil(t, req.ReproCount)
	assert.Equal(t, 5, *req.ReproCount)
	require.NotNil(t, req.NegativeControl)
	assert.Equal(t, types.ControlUnauthenticated, req.NegativeControl.ControlType)

	require.Len(t, req.Identities, 1)
	assert.Equal(t, "session=abc; csrf=xyz", req.Identities[0].Cookies.Header())
	assert.True(t, req.Identities[0].Expects())
}

func TestParseRequest_BareFinding(t *testing.T) {
	tests := []struct {
		name string
		path string
		doc  string
	}{
		{"yaml", "finding.yaml", "finding_id: F-1\nrequest:\n  method: POST\n  url: https://x.test/a\n"},
		{"json", "finding.json", `{"finding_id":"F-1","request":{"method":"POST","url":"https://x.test/a"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := parseRequest(tt.path, []byte(tt.doc))
			require.NoError(t, err)

			assert.Equal(t, "F-1", req.Finding.FindingID)
			assert.Equal(t, "POST", req.Finding.Request.Method)
			assert.Nil(t, req.NegativeControl)
			assert.Empty(t, req.Identities)
		})
	}
}

func TestParseRequest_RejectsUnknownFields(t *testing.T) {
	_, err := parseRequest("finding.json", []byte(`{"finding_id":"F-1","reqest":{}}`))
	assert.Error(t, err)

	_, err = parseRequest("req.yaml", []byte("finding:\n  finding_id: F-1\nnegative_contrl: {}\n"))
	assert.Error(t, err)
}

func TestDecode_Batch(t *testing.T) {
	doc := `
- finding:
    finding_id: F-1
    request: {method: GET, url: "https://x.test/1"}
- finding:
    finding_id: F-2
    request: {method: GET, url: "https://x.test/2"}
  skip_repro: true
`
	cmd := &cobra.Command{}
	cmd.SetIn(strings.NewReader(doc))

	reqs, err := loadBatch(cmd, "-")
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.Equal(t, "F-2", reqs[1].Finding.FindingID)
	assert.True(t, reqs[1].SkipRepro)
}

func TestReadInput_RequiresPath(t *testing.T) {
	_, err := readInput(&cobra.Command{}, "")
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	result := &types.ConfidenceResult{FindingID: "F-1", OverallScore: 0.5, Recommendation: types.RecommendationInvestigate}

	tests := []struct {
		format  string
		want    string
		wantErr bool
	}{
		{format: "json", want: `"recommendation": "investigate"`},
		{format: "yaml", want: "recommendation: investigate"},
		{format: "text", want: "plain text"},
		{format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			cmd := &cobra.Command{}
			cmd.Flags().String("output", tt.format, "")
			cmd.SetOut(&buf)

			err := render(cmd, result, func(w io.Writer) { _, _ = io.WriteString(w, "plain text") })
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}

func TestSetDefaults_MatchDefaultConfig(t *testing.T) {
	v := viper.New()
	setDefaults(v, config.DefaultConfig())

	var got config.Config
	require.NoError(t, v.Unmarshal(&got))

	assert.Equal(t, *config.DefaultConfig(), got)
	assert.NoError(t, got.Validate())
}

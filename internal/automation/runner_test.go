package automation

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockdataautomationruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockdataautomationruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/documentmetadataflow/internal/objectstore"
	"github.com/Lllllllleong/documentmetadataflow/internal/poll"
)

const invocationARN = "arn:aws:bedrock:us-west-2:111122223333:data-automation-invocation/inv-1"

type fakeRuntime struct {
	statuses []types.AutomationJobStatus
	gets     int
	invoked  *bedrockdataautomationruntime.InvokeDataAutomationAsyncInput
}

func (f *fakeRuntime) InvokeDataAutomationAsync(_ context.Context, in *bedrockdataautomationruntime.InvokeDataAutomationAsyncInput, _ ...func(*bedrockdataautomationruntime.Options)) (*bedrockdataautomationruntime.InvokeDataAutomationAsyncOutput, error) {
	f.invoked = in
	return &bedrockdataautomationruntime.InvokeDataAutomationAsyncOutput{InvocationArn: aws.String(invocationARN)}, nil
}

func (f *fakeRuntime) GetDataAutomationStatus(_ context.Context, _ *bedrockdataautomationruntime.GetDataAutomationStatusInput, _ ...func(*bedrockdataautomationruntime.Options)) (*bedrockdataautomationruntime.GetDataAutomationStatusOutput, error) {
	status := f.statuses[min(f.gets, len(f.statuses)-1)]
	f.gets++
	out := &bedrockdataautomationruntime.GetDataAutomationStatusOutput{Status: status}
	if status == types.AutomationJobStatusClientError {
		out.ErrorMessage = aws.String("unsupported file")
	}
	return out, nil
}

type memStore struct {
	objects map[string]string
}

func (m *memStore) Scheme() string { return objectstore.SchemeS3 }

func (m *memStore) List(_ context.Context, _, prefix string) ([]string, error) {
	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *memStore) Open(_ context.Context, _, key string) (io.ReadCloser, error) {
	body, ok := m.objects[key]
	if !ok {
		return nil, os.ErrNotExist
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func (m *memStore) Delete(_ context.Context, _, key string) error {
	delete(m.objects, key)
	return nil
}

func newRunner(client RuntimeAPI, store objectstore.Store) *Runner {
	r := NewRunner(client, objectstore.NewTransfer(store, 2), RunnerOptions{
		ProfileARN: "arn:aws:bedrock:us-west-2:111122223333:data-automation-profile/us.data-automation-v1",
		Policy:     fastPolicy,
	})
	r.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.Local) }
	return r
}

func TestSubmitWaitsForSuccess(t *testing.T) {
	client := &fakeRuntime{statuses: []types.AutomationJobStatus{
		types.AutomationJobStatusCreated, types.AutomationJobStatusInProgress, types.AutomationJobStatusSuccess,
	}}
	r := newRunner(client, &memStore{})

	id, err := r.Submit(context.Background(), "input-bucket/docs/a.pdf", "output-bucket", "arn:project")
	require.NoError(t, err)
	assert.Equal(t, "inv-1", id)
	assert.Equal(t, 3, client.gets)

	in := client.invoked
	assert.Equal(t, "s3://input-bucket/docs/a.pdf", aws.ToString(in.InputConfiguration.S3Uri))
	assert.Equal(t, "s3://output-bucket", aws.ToString(in.OutputConfiguration.S3Uri))
	assert.Equal(t, "arn:project", aws.ToString(in.DataAutomationConfiguration.DataAutomationProjectArn))
	assert.Equal(t, types.DataAutomationStageLive, in.DataAutomationConfiguration.Stage)
	assert.Contains(t, aws.ToString(in.DataAutomationProfileArn), "data-automation-profile")
	assert.NotEmpty(t, aws.ToString(in.ClientToken))
}

func TestSubmitFailure(t *testing.T) {
	for _, status := range []types.AutomationJobStatus{types.AutomationJobStatusServiceError, types.AutomationJobStatusClientError} {
		client := &fakeRuntime{statuses: []types.AutomationJobStatus{types.AutomationJobStatusInProgress, status}}
		_, err := newRunner(client, &memStore{}).Submit(context.Background(), "in/a.pdf", "out", "arn:project")
		assert.ErrorIs(t, err, ErrJobFailed, string(status))
		assert.Equal(t, 2, client.gets)
	}
}

func TestSubmitTimesOutAfterSixtyChecks(t *testing.T) {
	client := &fakeRuntime{statuses: []types.AutomationJobStatus{types.AutomationJobStatusInProgress}}
	_, err := newRunner(client, &memStore{}).Submit(context.Background(), "in/a.pdf", "out", "arn:project")
	assert.ErrorIs(t, err, poll.ErrTimedOut)
	assert.Equal(t, 60, client.gets)
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func resultObjects(t *testing.T, status string, standard any) map[string]string {
	objects := map[string]string{
		"/inv-1/job_metadata.json": mustJSON(t, map[string]any{
			"job_id":     "inv-1",
			"job_status": "PROCESSED",
			"output_metadata": []any{map[string]any{
				"asset_id": 0,
				"segment_metadata": []any{map[string]any{
					"standard_output_path": "s3://output-bucket//inv-1/0/standard_output/0/result.json",
					"custom_output_status": status,
					"custom_output_path":   "s3://output-bucket//inv-1/0/custom_output/0/result.json",
				}},
			}},
		}),
		"/inv-1/0/standard_output/0/result.json": mustJSON(t, standard),
		"/inv-1/0/custom_output/0/result.json": mustJSON(t, map[string]any{
			"matched_blueprint": map[string]any{"name": "pii-document"},
			"inference_result":  map[string]any{"pii_indicator": true, "pii_explanation": "Contains a home address."},
		}),
		"/inv-2/job_metadata.json": "{}",
	}
	return objects
}

func TestFetchAndNormalizeDocumentMatch(t *testing.T) {
	store := &memStore{objects: resultObjects(t, "MATCH", map[string]any{
		"metadata": map[string]any{"number_of_pages": 2},
		"document": map[string]any{"description": "A lease agreement.", "summary": "Two parties agree to a lease."},
	})}
	workDir := t.TempDir()

	out, err := newRunner(&fakeRuntime{}, store).FetchAndNormalize(context.Background(), "inv-1", "output-bucket", workDir)
	require.NoError(t, err)

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &record))
	assert.Equal(t, map[string]any{
		"description":      "A lease agreement.",
		"summary":          "Two parties agree to a lease.",
		"pii_indicator":    true,
		"pii_explanation":  "Contains a home address.",
		"comments":         "Created using Amazon Bedrock Data Automation.",
		"create_date_time": "2025-01-02 03:04:05",
	}, record)

	assert.FileExists(t, filepath.Join(workDir, "inv-1", "job_metadata.json"))
	assert.FileExists(t, filepath.Join(workDir, "inv-1", "0", "custom_output", "0", "result.json"))
	assert.NoFileExists(t, filepath.Join(workDir, "inv-2", "job_metadata.json"))
}

func TestFetchAndNormalizeImageWithoutMatch(t *testing.T) {
	store := &memStore{objects: resultObjects(t, "NO_MATCH", map[string]any{
		"image": map[string]any{"summary": "A cat on a sofa."},
	})}

	out, err := newRunner(&fakeRuntime{}, store).FetchAndNormalize(context.Background(), "inv-1", "output-bucket", t.TempDir())
	require.NoError(t, err)

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &record))
	assert.Equal(t, "Image", record["description"])
	assert.Equal(t, "A cat on a sofa.", record["summary"])
	assert.Equal(t, "None", record["pii_indicator"])
	assert.Equal(t, "", record["pii_explanation"])
}

func TestFetchAndNormalizeErrors(t *testing.T) {
	r := newRunner(&fakeRuntime{}, &memStore{objects: map[string]string{}})
	_, err := r.FetchAndNormalize(context.Background(), "inv-1", "output-bucket", t.TempDir())
	assert.ErrorIs(t, err, os.ErrNotExist)

	r = newRunner(&fakeRuntime{}, &memStore{objects: map[string]string{"/inv-2/job_metadata.json": `{"output_metadata":[]}`}})
	_, err = r.FetchAndNormalize(context.Background(), "inv-2", "output-bucket", t.TempDir())
	assert.ErrorContains(t, err, "no segment metadata")
}

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netpulse/netpulse/pkg/compute"
	"github.com/netpulse/netpulse/pkg/exposition"
	"github.com/netpulse/netpulse/pkg/types"
)

// run executes the CLI with args and returns stdout and the command error.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.Execute()
	return out.String(), err
}

func decodeReport(t *testing.T, out string) Report {
	t.Helper()
	var r Report
	require.NoError(t, json.Unmarshal([]byte(out), &r), out)
	require.NotNil(t, r.Batch)
	return r
}

func TestSimulate_JSON(t *testing.T) {
	out, err := run(t, "", "simulate", "--devices", "4", "--seed", "42", "--format", "json")
	require.NoError(t, err)

	r := decodeReport(t, out)
	assert.NotEmpty(t, r.ID)
	require.Len(t, r.Devices, 4)
	require.NotNil(t, r.Seed)
	assert.Equal(t, int64(42), *r.Seed)
	require.NotNil(t, r.Weights)
	assert.Equal(t, types.DefaultWeights(), *r.Weights)
	assert.Nil(t, r.Projection)
	assert.Empty(t, r.Suggestion)

	for i, d := range r.Devices {
		assert.True(t, d.IsNormalized(), d.DeviceID)
		require.NotNil(t, d.OptimizationScore)
		if i > 0 {
			assert.GreaterOrEqual(t, r.Devices[i-1].Score(), d.Score())
		}
	}
}

func TestSimulate_SeedIsReproducible(t *testing.T) {
	a, err := run(t, "", "simulate", "--seed", "7", "--format", "json")
	require.NoError(t, err)
	b, err := run(t, "", "simulate", "--seed", "7", "--format", "json")
	require.NoError(t, err)

	ra, rb := decodeReport(t, a), decodeReport(t, b)
	assert.Len(t, ra.Devices, defaultDevices)
	assert.Equal(t, ra.Devices, rb.Devices)
	assert.NotEqual(t, ra.ID, rb.ID)
}

func TestSimulate_InvalidDevices(t *testing.T) {
	_, err := run(t, "", "simulate", "--devices", "0")
	assert.ErrorIs(t, err, compute.ErrInvalidArgument)
}

func TestSimulate_UnknownFormat(t *testing.T) {
	_, err := run(t, "", "simulate", "--format", "xml")
	assert.ErrorIs(t, err, errUnknownFormat)
}

func TestSimulate_TextWithProjection(t *testing.T) {
	out, err := run(t, "", "simulate", "--devices", "3", "--seed", "1", "--projection")
	require.NoError(t, err)

	assert.Contains(t, out, "RANK")
	assert.Contains(t, out, "Device_1")
	assert.Contains(t, out, "Projection")
	assert.Contains(t, out, "Average improvement")
	assert.Contains(t, out, "(-15.0%)")
	assert.Contains(t, out, "(-10.0%)")
}

func TestSimulate_Prom(t *testing.T) {
	out, err := run(t, "", "simulate", "--devices", "3", "--seed", "3", "--format", "prom")
	require.NoError(t, err)

	devices, err := exposition.Read(strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, devices, 3)
	assert.True(t, devices[0].IsNormalized())
}

func chatServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body)) //nolint:errcheck
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSimulate_Suggest(t *testing.T) {
	t.Setenv("NETPULSE_TEST_KEY", "test-key")
	srv := chatServer(t, http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":"Reduce latency on Device_2."}}]}`)

	out, err := run(t, "", "simulate", "--seed", "5", "--format", "json",
		"--suggest", "--base-url", srv.URL, "--api-key-env", "NETPULSE_TEST_KEY")
	require.NoError(t, err)

	r := decodeReport(t, out)
	assert.Equal(t, "Reduce latency on Device_2.", r.Suggestion)
}

func TestSimulate_SuggestFailureStillWritesBatch(t *testing.T) {
	t.Setenv("NETPULSE_TEST_KEY", "test-key")
	srv := chatServer(t, http.StatusInternalServerError, `{"error":{"message":"model overloaded"}}`)

	out, err := run(t, "", "simulate", "--seed", "5", "--format", "json",
		"--suggest", "--base-url", srv.URL, "--api-key-env", "NETPULSE_TEST_KEY")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "suggestion failed")

	r := decodeReport(t, out)
	assert.Len(t, r.Devices, defaultDevices)
	assert.Empty(t, r.Suggestion)
}

func TestRescore_JSONFile(t *testing.T) {
	out, err := run(t, "", "simulate", "--devices", "6", "--seed", "11", "--format", "json", "--projection")
	require.NoError(t, err)
	orig := decodeReport(t, out)

	path := filepath.Join(t.TempDir(), "batch.json")
	require.NoError(t, os.WriteFile(path, []byte(out), 0o600))

	out, err = run(t, "", "rescore", "--input", path, "--format", "json",
		"--bandwidth-weight", "1", "--latency-weight", "0", "--packet-loss-weight", "0")
	require.NoError(t, err)

	r := decodeReport(t, out)
	assert.Equal(t, orig.ID, r.ID)
	assert.Equal(t, types.Weights{Bandwidth: 1}, *r.Weights)
	require.Len(t, r.Devices, 6)
	for _, d := range r.Devices[1:] {
		assert.LessOrEqual(t, r.Devices[0].BandwidthUsage, d.BandwidthUsage)
	}
}

func TestRescore_PromStdin(t *testing.T) {
	prom, err := run(t, "", "simulate", "--devices", "3", "--seed", "2", "--format", "prom")
	require.NoError(t, err)

	out, err := run(t, prom, "rescore", "--input-format", "prom", "--format", "json")
	require.NoError(t, err)

	r := decodeReport(t, out)
	assert.Empty(t, r.ID)
	assert.Len(t, r.Devices, 3)
}

func TestRescore_Errors(t *testing.T) {
	_, err := run(t, "", "rescore", "--input", filepath.Join(t.TempDir(), "missing.json"))
	assert.True(t, errors.Is(err, os.ErrNotExist), "got %v", err)

	_, err = run(t, `{"batch_id":"x","devices":[]}`, "rescore")
	assert.Error(t, err)

	_, err = run(t, "{}", "rescore", "--input-format", "csv")
	assert.ErrorIs(t, err, errUnknownFormat)
}

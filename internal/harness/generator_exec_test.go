package harness_test

import (
	"context"
	"encoding/json"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/codearena-api/internal/dto"
	"github.com/noah-isme/codearena-api/internal/harness"
	"github.com/noah-isme/codearena-api/internal/models"
	"github.com/noah-isme/codearena-api/internal/sandbox"
	"github.com/noah-isme/codearena-api/internal/service"
)

func rawValues(values ...string) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(values))
	for _, value := range values {
		out = append(out, json.RawMessage(value))
	}
	return out
}

// runHarness executes the generated program with a local python3 and classifies its stdout the
// way the execution service does.
func runHarness(t *testing.T, source string, inputs, expected []json.RawMessage) ([]dto.TestCaseResult, string) {
	t.Helper()
	python, err := exec.LookPath("python3")
	if err != nil {
		t.Skip("python3 not available")
	}

	gen, err := harness.NewGenerator("")
	require.NoError(t, err)
	program, err := gen.Generate(source, inputs, expected)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	stdout, err := exec.CommandContext(ctx, python, "-c", program).Output()
	require.NoError(t, err)

	return service.ClassifyOutcome(sandbox.Outcome{StatusID: sandbox.StatusAccepted, Stdout: string(stdout)})
}

func TestHarnessProgramAccepted(t *testing.T) {
	results, status := runHarness(t,
		"def solution(a, b):\n    print('debug', a, b)\n    return a + b\n",
		rawValues(`[2,3]`, `[1,4]`), rawValues(`5`, `5`))

	require.Equal(t, models.SubmissionStatusAccepted, status)
	require.Len(t, results, 2)
	require.JSONEq(t, `[2,3]`, string(results[0].Input))
	require.JSONEq(t, `5`, string(results[0].UserOut))
	require.JSONEq(t, `[1,4]`, string(results[1].Input))
}

func TestHarnessProgramSingleArgument(t *testing.T) {
	results, status := runHarness(t,
		"def solution(s):\n    return s[::-1]\n",
		rawValues(`"abc"`, `{"k": 1}`), rawValues(`"cba"`, `null`))

	require.Equal(t, models.SubmissionStatusRuntimeError, status)
	require.Len(t, results, 2)
	require.True(t, results[0].IsCorrect)
	require.False(t, results[1].IsCorrect)
	require.NotEmpty(t, results[1].Error)
}

func TestHarnessProgramRaisesOnEveryCase(t *testing.T) {
	results, status := runHarness(t,
		"def solution(a, b):\n    raise ValueError('boom')\n",
		rawValues(`[2,3]`, `[1,4]`), rawValues(`5`, `5`))

	require.Equal(t, models.SubmissionStatusRuntimeError, status)
	require.Len(t, results, 2)
	for _, result := range results {
		require.False(t, result.IsCorrect)
		require.Equal(t, "boom", result.Error)
	}
}

func TestHarnessProgramMixedIsWrongAnswer(t *testing.T) {
	results, status := runHarness(t,
		"def solution(a, b):\n    return a * b\n",
		rawValues(`[2,3]`, `[1,4]`), rawValues(`6`, `5`))

	require.Equal(t, models.SubmissionStatusWrongAnswer, status)
	require.Len(t, results, 2)
	require.True(t, results[0].IsCorrect)
	require.False(t, results[1].IsCorrect)
	require.Empty(t, results[1].Error)
	require.JSONEq(t, `4`, string(results[1].UserOut))
}

func TestHarnessProgramConfinesNaNToItsCase(t *testing.T) {
	results, status := runHarness(t,
		"def solution(x):\n    if x == 1:\n        return float('nan')\n    return x\n",
		rawValues(`1`, `2`), rawValues(`1`, `2`))

	require.Equal(t, models.SubmissionStatusWrongAnswer, status)
	require.Len(t, results, 2)
	require.False(t, results[0].IsCorrect)
	require.JSONEq(t, `"nan"`, string(results[0].UserOut))
	require.True(t, results[1].IsCorrect)
}

func TestHarnessProgramConfinesSystemExitToItsCase(t *testing.T) {
	results, status := runHarness(t,
		"import sys\n\ndef solution(x):\n    if x == 1:\n        sys.exit(0)\n    return x\n",
		rawValues(`1`, `2`), rawValues(`1`, `2`))

	require.Equal(t, models.SubmissionStatusRuntimeError, status)
	require.Len(t, results, 2)
	require.False(t, results[0].IsCorrect)
	require.Equal(t, "SystemExit: 0", results[0].Error)
	require.True(t, results[1].IsCorrect)
}

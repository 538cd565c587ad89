// Package harness renders the Python test program that wraps a user's solution.
package harness

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"text/template"
)

// DefaultEntryPoint is the function name the harness invokes when none is configured.
const DefaultEntryPoint = "solution"

// ErrMismatchedTestCases indicates inputs and expected outputs are not index aligned.
var ErrMismatchedTestCases = errors.New("test inputs and expected outputs differ in length")

// ErrInvalidTestValue indicates a test input or expected output is not valid JSON.
var ErrInvalidTestValue = errors.New("test value is not valid json")

// ErrInvalidEntryPoint indicates the configured entry point is not a Python identifier.
var ErrInvalidEntryPoint = errors.New("entry point must be a python identifier")

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Case is one (input, expected output) pair embedded in the harness.
type Case struct {
	Input    json.RawMessage `json:"input"`
	Expected json.RawMessage `json:"expected"`
}

// Generator renders harness programs. It holds no mutable state and is safe for concurrent use.
type Generator struct {
	entryPoint string
	tmpl       *template.Template
}

type templateData struct {
	Source     string
	Cases      string
	EntryPoint string
}

// NewGenerator builds a generator that calls entryPoint for every test case.
func NewGenerator(entryPoint string) (*Generator, error) {
	entryPoint = strings.TrimSpace(entryPoint)
	if entryPoint == "" {
		entryPoint = DefaultEntryPoint
	}
	if !identifierPattern.MatchString(entryPoint) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEntryPoint, entryPoint)
	}

	tmpl, err := template.New("harness").Parse(pythonHarness)
	if err != nil {
		return nil, fmt.Errorf("parse harness template: %w", err)
	}

	return &Generator{entryPoint: entryPoint, tmpl: tmpl}, nil
}

// EntryPoint returns the function name the generated harness calls.
func (g *Generator) EntryPoint() string {
	return g.entryPoint
}

// Generate wraps source with a harness that evaluates every (input, expected) pair and prints one JSON
// array of results. The source is inserted verbatim.
func (g *Generator) Generate(source string, inputs, expected []json.RawMessage) (string, error) {
	cases, err := BuildCases(inputs, expected)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(cases)
	if err != nil {
		return "", fmt.Errorf("encode test cases: %w", err)
	}

	var buf bytes.Buffer
	err = g.tmpl.Execute(&buf, templateData{
		Source:     source,
		Cases:      base64.StdEncoding.EncodeToString(payload),
		EntryPoint: g.entryPoint,
	})
	if err != nil {
		return "", fmt.Errorf("render harness: %w", err)
	}

	return buf.String(), nil
}

// BuildCases zips inputs with expected outputs, validating length and JSON well-formedness.
func BuildCases(inputs, expected []json.RawMessage) ([]Case, error) {
	if len(inputs) != len(expected) {
		return nil, fmt.Errorf("%w: %d inputs, %d outputs", ErrMismatchedTestCases, len(inputs), len(expected))
	}

	cases := make([]Case, 0, len(inputs))
	for i := range inputs {
		in, err := normalizeValue(inputs[i])
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		out, err := normalizeValue(expected[i])
		if err != nil {
			return nil, fmt.Errorf("expected output %d: %w", i, err)
		}
		cases = append(cases, Case{Input: in, Expected: out})
	}
	return cases, nil
}

func normalizeValue(value json.RawMessage) (json.RawMessage, error) {
	if len(bytes.TrimSpace(value)) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(value) {
		return nil, ErrInvalidTestValue
	}
	return value, nil
}

// The user source precedes the harness so the entry point is defined by the time _harness_run executes.
// Cases travel base64 encoded so JSON literals (true/false/null) never meet the Python parser.
// Each case is caught and encoded on its own: SystemExit or a NaN result only affects that case.
const pythonHarness = `import base64
import contextlib
import io
import json

{{.Source}}

_HARNESS_CASES = json.loads(base64.b64decode("{{.Cases}}").decode("utf-8"))


def _harness_invoke(value):
    if isinstance(value, (list, tuple)):
        return {{.EntryPoint}}(*value)
    return {{.EntryPoint}}(value)


def _harness_error(exc):
    message = str(exc)
    if isinstance(exc, Exception):
        return message or exc.__class__.__name__
    if message:
        return exc.__class__.__name__ + ": " + message
    return exc.__class__.__name__


def _harness_encode(entry):
    try:
        return json.dumps(entry, allow_nan=False, default=repr)
    except (TypeError, ValueError):
        pass
    try:
        entry["user_out"] = repr(entry.get("user_out"))
        return json.dumps(entry, allow_nan=False, default=repr)
    except Exception as exc:
        return json.dumps({
            "input": entry["input"],
            "ref_out": entry["ref_out"],
            "is_correct": False,
            "error": "unserializable output: " + _harness_error(exc),
        })


def _harness_run():
    encoded = []
    for case in _HARNESS_CASES:
        entry = {"input": case["input"], "ref_out": case["expected"]}
        try:
            with contextlib.redirect_stdout(io.StringIO()):
                output = _harness_invoke(case["input"])
                entry["user_out"] = output
                entry["is_correct"] = bool(output == case["expected"])
        except KeyboardInterrupt:
            raise
        except BaseException as exc:
            entry["error"] = _harness_error(exc)
            entry["is_correct"] = False
        encoded.append(_harness_encode(entry))
    print("[" + ", ".join(encoded) + "]")


if __name__ == "__main__":
    _harness_run()
`

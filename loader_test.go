package stepgraph

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog() HandlerCatalog {
	return HandlerCatalog{
		"greet": ItemFunc(func(ctx context.Context, item any, index int) (any, error) {
			return fmt.Sprintf("hello %v", item), nil
		}),
		"count": TransformFunc(func(ctx context.Context, in any) (any, error) {
			return len(in.([]any)), nil
		}),
		"echo": func(ctx context.Context, wc *Context) (any, error) {
			return wc.Input(), nil
		},
	}
}

func TestLoadDefinitionFile(t *testing.T) {
	def, err := LoadDefinitionFile(filepath.Join("testdata", "onboarding.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "onboarding", def.Name)
	assert.Equal(t, "check", def.Entry)
	assert.Equal(t, "pro", def.Context["plan"])
	require.Len(t, def.Steps, 4)

	check := def.Steps[0]
	assert.Equal(t, "Check plan", check.Name)
	assert.Equal(t, KindCondition, check.Kind)
	assert.Equal(t, "greet", check.Config["onTrue"])
	assert.Equal(t, ErrorPolicy("continue"), def.Steps[3].OnError)
}

func TestImport_RunsLoadedDefinition(t *testing.T) {
	def, err := LoadDefinitionFile(filepath.Join("testdata", "onboarding.yaml"))
	require.NoError(t, err)

	eng := NewInMemoryEngine()
	wf, err := Import(eng, def, testCatalog())
	require.NoError(t, err)
	assert.Equal(t, 4, wf.Steps)
	assert.Equal(t, "check", wf.EntryStep)
	require.NoError(t, eng.Validate(wf.ID))

	res, err := eng.Run(context.Background(), wf.ID, nil)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, 2, res.Result)

	greeted, ok, err := eng.GetContextValue(wf.ID, "$greet")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []any{"hello ada", "hello grace"}, greeted)

	res, err = eng.Run(context.Background(), wf.ID, map[string]any{"plan": "free"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"plan": "free"}, res.Result)
}

func TestImport_UnknownHandler(t *testing.T) {
	def, err := LoadDefinitionFile(filepath.Join("testdata", "onboarding.yaml"))
	require.NoError(t, err)

	eng := NewInMemoryEngine()
	_, err = Import(eng, def, HandlerCatalog{"echo": Static(nil)})
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.ErrorContains(t, err, `unknown handler "greet"`)
	assert.Empty(t, eng.List(), "nothing is created when a handler is missing")
}

func TestParseDefinitionYAML_Errors(t *testing.T) {
	cases := map[string]struct {
		doc  string
		want error
	}{
		"empty":         {doc: "   \n", want: ErrConfiguration},
		"unknown field": {doc: "name: x\nsteps: [{id: a}]\nbogus: 1\n", want: ErrConfiguration},
		"no name":       {doc: "steps: [{id: a}]\n", want: ErrMissingArgument},
		"no steps":      {doc: "name: x\n", want: ErrEmptyWorkflow},
		"missing id":    {doc: "name: x\nsteps: [{name: a}]\n", want: ErrMissingArgument},
		"duplicate id":  {doc: "name: x\nsteps: [{id: a}, {id: a}]\n", want: ErrDuplicateStep},
		"bad entry":     {doc: "name: x\nentry: z\nsteps: [{id: a}]\n", want: ErrStepNotFound},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseDefinitionYAML([]byte(tc.doc))
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestLoadDefinitionFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadDefinitionFile(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadDefinitionFile(dir)
	assert.ErrorContains(t, err, "is a directory")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("name: x\n"), 0o600))
	_, err = LoadDefinitionFile(bad)
	assert.ErrorIs(t, err, ErrEmptyWorkflow)
	assert.ErrorContains(t, err, bad)
}

func TestDefinition_EncodeYAMLRoundTrip(t *testing.T) {
	def := New("round").
		Context("k", "v").
		Delay("wait", 0).Then("done").
		Step(StepDefinition{ID: "done", Handler: "echo", OnError: PolicyRetry}).
		Definition()

	data, err := def.EncodeYAML()
	require.NoError(t, err)

	back, err := ParseDefinitionYAML(data)
	require.NoError(t, err)
	assert.Equal(t, def.Name, back.Name)
	assert.Equal(t, "v", back.Context["k"])
	require.Len(t, back.Steps, 2)
	assert.Equal(t, "done", back.Steps[0].Next)
	assert.Equal(t, KindDelay, back.Steps[0].Kind)
	assert.Equal(t, "echo", back.Steps[1].Handler)
	assert.Equal(t, PolicyRetry, back.Steps[1].OnError)
}

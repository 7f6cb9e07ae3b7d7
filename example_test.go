package stepgraph_test

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/petrijr/stepgraph"
)

// Example_flowBuilder demonstrates defining and running a simple workflow
// using the FlowBuilder API and an in-memory engine.
func Example_flowBuilder() {
	ctx := context.Background()
	eng := stepgraph.NewInMemoryEngine()

	wf, err := stepgraph.New("Greeting").
		Action("sayHello", sayHello).Then("decorate").
		Transform("decorate", stepgraph.TransformFunc(decorate)).
		Register(eng)
	if err != nil {
		log.Fatal(err)
	}

	res, err := eng.Run(ctx, wf.ID, map[string]any{"name": "Gopher"})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("status=%s steps=%d output=%v\n", res.Status, res.StepsExecuted, res.Result)
	// Output: status=completed steps=2 output=*** hello, Gopher ***
}

// Example_yamlDefinition loads a workflow from YAML and resolves its handler
// names through a catalog.
func Example_yamlDefinition() {
	def, err := stepgraph.ParseDefinitionYAML([]byte(`
name: shout
steps:
  - id: upper
    handler: upper
`))
	if err != nil {
		log.Fatal(err)
	}

	eng := stepgraph.NewInMemoryEngine()
	wf, err := stepgraph.Import(eng, def, stepgraph.HandlerCatalog{
		"upper": func(ctx context.Context, wc *stepgraph.Context) (any, error) {
			word, _ := wc.Get("word")
			return strings.ToUpper(fmt.Sprint(word)), nil
		},
	})
	if err != nil {
		log.Fatal(err)
	}

	res, err := eng.Run(context.Background(), wf.ID, map[string]any{"word": "hey"})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(res.Result)
	// Output: HEY
}

func sayHello(ctx context.Context, wc *stepgraph.Context) (any, error) {
	name, ok := wc.Get("name")
	if !ok {
		return nil, fmt.Errorf("sayHello: missing name")
	}
	return fmt.Sprintf("hello, %v", name), nil
}

func decorate(ctx context.Context, in any) (any, error) {
	msg, ok := in.(string)
	if !ok {
		return nil, fmt.Errorf("decorate: expected string input, got %T", in)
	}
	return fmt.Sprintf("*** %s ***", msg), nil
}

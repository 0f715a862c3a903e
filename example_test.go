package rocrate_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/rocrateio/rocrate-go"
)

func Example() {
	dir, err := os.MkdirTemp("", "crate-payload-")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)
	src := filepath.Join(dir, "results.csv")
	if err := os.WriteFile(src, []byte("a,b\n1,2\n"), 0o644); err != nil {
		log.Fatal(err)
	}

	crate, err := rocrate.New()
	if err != nil {
		log.Fatal(err)
	}
	if err := crate.SetName("Example crate"); err != nil {
		log.Fatal(err)
	}
	f, err := crate.AddFile(src, "", rocrate.WithProperties(rocrate.Properties{
		"encodingFormat": "text/csv",
	}))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(f.ID())

	out := filepath.Join(dir, "crate")
	if err := crate.Write(context.Background(), out); err != nil {
		log.Fatal(err)
	}
	// Output:
	// results.csv
}

func ExampleOpenGraph() {
	graph := []byte(`{
        "@context": "https://w3id.org/ro/crate/1.1/context",
        "@graph": [
            {"@id": "ro-crate-metadata.json", "@type": "CreativeWork",
             "about": {"@id": "./"},
             "conformsTo": {"@id": "https://w3id.org/ro/crate/1.1"}},
            {"@id": "./", "@type": "Dataset", "name": "Detached crate",
             "author": {"@id": "#alice"}},
            {"@id": "#alice", "@type": "Person", "name": "Alice"}
        ]
    }`)
	crate, err := rocrate.OpenGraph(graph)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(crate.Name())
	author := crate.RootDataset().Get("author").(*rocrate.Person)
	fmt.Println(author.Get("name"))
	// Output:
	// Detached crate
	// Alice
}

func ExampleCrate_AddWorkflow() {
	dir, err := os.MkdirTemp("", "crate-workflow-")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)
	src := filepath.Join(dir, "analysis.cwl")
	if err := os.WriteFile(src, []byte("cwlVersion: v1.2\n"), 0o644); err != nil {
		log.Fatal(err)
	}

	crate, err := rocrate.New()
	if err != nil {
		log.Fatal(err)
	}
	wf, err := crate.AddWorkflow(context.Background(), src, rocrate.WorkflowSpec{Main: true})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(wf.ID())
	fmt.Println(wf.Language().Name())
	// Output:
	// analysis.cwl
	// Common Workflow Language
}

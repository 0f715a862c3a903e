package id_test

import (
	"fmt"

	"github.com/rocrateio/rocrate-go/id"
)

// ExampleResolver_Canonical demonstrates how different raw spellings of the
// same identifier collapse to one canonical form.
func ExampleResolver_Canonical() {
	r := id.NewResolver()

	a := r.Canonical("data")
	b := r.Canonical("data/")
	c := r.Canonical("./data/")
	fmt.Println("all spellings converge:", a == b && b == c)

	// Absolute URLs pass through, modulo the trailing slash.
	fmt.Println(r.Canonical("https://example.com/dataset/"))

	// Output:
	// all spellings converge: true
	// https://example.com/dataset
}

func ExampleIsURL() {
	fmt.Println(id.IsURL("https://example.com/workflow.cwl"))
	fmt.Println(id.IsURL("workflows/main.cwl"))

	// Output:
	// true
	// false
}

// Package rocrate creates, reads and writes RO-Crate research object
// packages: self-describing directories (or zip archives) whose contents
// are documented by a flattened JSON-LD metadata file.
//
// # Core Concepts
//
// A crate is modeled by a handful of cooperating types:
//
//   - Crate: the entity graph, keyed by canonical id, with dedicated
//     slots for the root dataset, the metadata descriptor and the
//     optional HTML preview
//   - Entity: one graph node, an ordered JSON-LD property store with
//     reference encoding on write and lazy dereferencing on read
//   - File, Dataset: data entities that carry payload bytes from local
//     paths or URLs
//   - ContextEntity and its variants (Person, ComputerLanguage,
//     TestSuite, ...): nodes that describe context and carry no payload
//
// # Building a Crate
//
// Create an empty crate, add content, then materialize it:
//
//	crate, err := rocrate.New()
//	if err != nil {
//		log.Fatal(err)
//	}
//	crate.SetName("Example dataset")
//	if _, err := crate.AddFile("data/results.csv", "", rocrate.WithRecordSize(true)); err != nil {
//		log.Fatal(err)
//	}
//	if err := crate.Write(ctx, "out/example-crate"); err != nil {
//		log.Fatal(err)
//	}
//
// WriteZip produces a zip archive instead, and StreamZip yields the
// archive as a lazy chunk sequence without materializing it anywhere.
//
// # Reading a Crate
//
// Open loads a crate from a directory or zip archive; OpenGraph loads
// one from raw metadata bytes with no backing tree:
//
//	crate, err := rocrate.Open("example-crate")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer crate.Close()
//	for _, e := range crate.DataEntities() {
//		fmt.Println(e.ID())
//	}
//
// # Workflow Crates
//
// AddWorkflow, AddTestSuite, AddTestInstance and AddTestDefinition cover
// the Workflow RO-Crate and Workflow Testing RO-Crate profiles,
// including language entities from a built-in vocabulary and the test
// vocabulary terms in the serialized context.
//
// # Concurrency
//
// A Crate instance assumes a single writer. Streaming operations are
// lazy sequences pulled by the caller; abandoning iteration early
// releases any resources the sequence holds.
package rocrate

package cmd

import (
	"log"
)

// TODO: optionally color nodes by their posterior mean spatial effect

// DotOutput assembles the county graph and writes a graphviz description
func DotOutput(sp *startupParams) error {
	_, _, gr, err := loadInputs(sp)
	if err != nil {
		return err
	}

	var target *log.Logger
	if len(sp.traceFile) > 0 {
		sp.out.Printf("Writing graph to trace file %v\n", sp.traceFile)
		target = sp.trace
	} else {
		target = sp.out
	}

	// Start graph
	target.Printf("strict graph G {\n")

	// Isolated counties still show up as bare nodes
	for i := 0; i < gr.Size(); i++ {
		if gr.Degree(i) == 0 {
			target.Printf("    \"%s\";\n", gr.Key(i))
		}
	}

	// Output links once each
	for i := 0; i < gr.Size(); i++ {
		for _, j := range gr.Neighbors(i) {
			if j > i {
				target.Printf("    \"%s\" -- \"%s\";\n", gr.Key(i), gr.Key(j))
			}
		}
	}

	// Finish graph
	target.Printf("}\n")

	return nil
}

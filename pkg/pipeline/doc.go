// Package pipeline runs a complete GDS to LEF conversion.
//
// # Overview
//
// A run reads three inputs and writes one LEF library:
//  1. Load the layer catalog from a KLayout .lyp or .lyt file
//  2. Build the pin direction table from a Liberty file or, for .v/.sv
//     sources, from the JSON netlist of an elaborator such as yosys
//  3. Parse the GDS layout
//  4. For each top cell, in file order:
//     - Extract pins, obstructions and size (package macro)
//     - Log any extraction warnings
//     - Serialize the MACRO block (package lef)
//  5. Write END LIBRARY and move the finished file into place
//
// Both lookup tables are built before the first cell is processed and are
// only read afterwards.
//
// # Usage
//
//	cfg := pipeline.DefaultConfig()
//	cfg.Strict = true
//
//	runner := pipeline.NewRunner(cfg, logger)
//	result, err := runner.Run(ctx, pipeline.Inputs{
//		Layout:     "cells.gds",
//		Layers:     "tech.lyt",
//		Directions: "cells.lib",
//		Output:     "cells.lef",
//	})
//
// # Output
//
// The LEF file is written to a temporary file next to the output path and
// renamed when the run succeeds. A failed run, including a strict run that
// produced warnings, leaves no output file behind.
//
// # Configuration
//
// Config can be loaded from TOML:
//
//	strict = true
//	yosys = "/opt/yosys/bin/yosys"
//
//	[lef]
//	site = "unithd"
//	min_feature = 50
//	units_per_micron = 1000
//
//	[preview]
//	pdf = "cells.pdf"
//	dxf = "cells.dxf"
package pipeline

package direction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
)

// Elaborator turns a structural source file into the textual output of a
// synthesis tool. The output must contain a yosys-style JSON netlist.
type Elaborator func(ctx context.Context, path string) ([]byte, error)

// YosysElaborator runs "<bin> <path> -p json" and returns its stdout. The
// call blocks until yosys exits.
func YosysElaborator(bin string) Elaborator {
	return func(ctx context.Context, path string) ([]byte, error) {
		var stdout, stderr bytes.Buffer
		cmd := exec.CommandContext(ctx, bin, path, "-p", "json")
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
		if err := cmd.Run(); err != nil {
			return nil, fmt.Errorf("%w: %s %s: %v: %s", ErrElaboration, bin, path, err, bytes.TrimSpace(stderr.Bytes()))
		}
		return stdout.Bytes(), nil
	}
}

// Netlist is the part of yosys' JSON output the table needs.
type Netlist struct {
	Creator string            `json:"creator"`
	Modules map[string]Module `json:"modules"`
}

// Module is one elaborated module.
type Module struct {
	Ports map[string]Port `json:"ports"`
}

// Port is a module port; Bits holds one net id (or constant) per bit.
type Port struct {
	Direction string            `json:"direction"`
	Bits      []json.RawMessage `json:"bits"`
}

// FromVerilog elaborates path and builds a table from the resulting netlist.
func FromVerilog(ctx context.Context, path string, elab Elaborator) (*Table, error) {
	if elab == nil {
		return nil, fmt.Errorf("%w: no elaborator configured for %s", ErrElaboration, path)
	}
	out, err := elab(ctx, path)
	if err != nil {
		return nil, err
	}
	nl, err := ParseNetlist(out)
	if err != nil {
		return nil, err
	}
	return FromNetlist(nl), nil
}

// ParseNetlist extracts the JSON object holding the "creator" key from tool
// output, skipping any log lines around it.
func ParseNetlist(out []byte) (*Netlist, error) {
	key := bytes.Index(out, []byte(`"creator"`))
	if key < 0 {
		return nil, fmt.Errorf("%w: no \"creator\" key in output", ErrElaboration)
	}
	start := bytes.LastIndexByte(out[:key], '{')
	end := bytes.LastIndexByte(out, '}')
	if start < 0 || end < key {
		return nil, fmt.Errorf("%w: unbalanced JSON payload", ErrElaboration)
	}

	var nl Netlist
	if err := json.Unmarshal(out[start:end+1], &nl); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrElaboration, err)
	}
	return &nl, nil
}

// FromNetlist adds one entry per port, or one per bit as "port[i]" for
// multi-bit ports.
func FromNetlist(nl *Netlist) *Table {
	t := NewTable()
	for cell, mod := range nl.Modules {
		for name, port := range mod.Ports {
			dir := Normalize(port.Direction)
			if len(port.Bits) <= 1 {
				t.Set(cell, name, dir)
				continue
			}
			for i := range port.Bits {
				t.Set(cell, fmt.Sprintf("%s[%d]", name, i), dir)
			}
		}
	}
	return t
}

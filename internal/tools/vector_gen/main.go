package main

import (
	"encoding/json"
	"fmt"

	"cairn.systems/objectstate/canon"
	"cairn.systems/objectstate/digest"
	"cairn.systems/objectstate/mmr"
	"cairn.systems/objectstate/object"
)

// Emits JSON conformance vectors for cross-implementation checks:
// derived addresses for a fixed key table and an accumulator walk.

type derivation struct {
	Parent string `json:"parent"`
	Kind   string `json:"kind"`
	Key    string `json:"key"`
	Child  string `json:"child"`
	Marker string `json:"marker"`
}

type walkStep struct {
	Leaf     string `json:"leaf"`
	Size     uint64 `json:"size"`
	Occupied []bool `json:"occupied"`
	Root     string `json:"root"`
}

type vectors struct {
	Scheme           string       `json:"scheme"`
	HeadKey          string       `json:"head_key"`
	SystemAggregator string       `json:"system_aggregator"`
	Derivations      []derivation `json:"derivations"`
	Walk             []walkStep   `json:"mmr_walk"`
}

func mustKey(v canon.Value, err error) canon.Value {
	if err != nil {
		panic(err)
	}
	return v
}

func main() {
	var parent object.Address
	parent[31] = 0x01

	table := []struct {
		kind string
		text string
		key  canon.Value
	}{
		{"ascii", "settings", mustKey(canon.Ascii("settings"))},
		{"string", "settings", mustKey(canon.String("settings"))},
		{"u64", "7", canon.U64(7)},
		{"bool", "true", canon.Bool(true)},
		{"bytes", "deadbeef", canon.Bytes([]byte{0xde, 0xad, 0xbe, 0xef})},
		{"vector<u64>", "[1,2]", mustKey(canon.Vector(canon.TagU64, canon.U64(1), canon.U64(2)))},
	}

	out := vectors{
		Scheme:           digest.Canonical.String(),
		HeadKey:          object.HeadKey,
		SystemAggregator: object.SystemAggregator.String(),
	}
	for _, row := range table {
		child := object.Derive(parent, row.key)
		out.Derivations = append(out.Derivations, derivation{
			Parent: parent.String(),
			Kind:   row.kind,
			Key:    row.text,
			Child:  child.String(),
			Marker: object.ClaimMarker(child).String(),
		})
	}

	acc := mmr.New(digest.Canonical)
	for i := 0; i < 5; i++ {
		leaf := digest.Canonical.Sum([]byte(fmt.Sprintf("leaf-%d", i)))
		if err := acc.Append(leaf); err != nil {
			panic(err)
		}
		occupied := make([]bool, acc.Len())
		for j := range occupied {
			occupied[j] = acc.Occupied(j)
		}
		out.Walk = append(out.Walk, walkStep{
			Leaf:     leaf.String(),
			Size:     acc.Size(),
			Occupied: occupied,
			Root:     acc.Root().String(),
		})
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		panic(err)
	}
	fmt.Println(string(b))
}

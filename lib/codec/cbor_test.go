// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"testing"
)

func TestMarshalIsDeterministic(t *testing.T) {
	value := map[string]any{"zeta": 1, "alpha": "a", "mid": []byte("x")}

	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for range 10 {
		again, err := Marshal(value)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("encoding changed between calls: %x vs %x", first, again)
		}
	}
}

func TestUnmarshalIgnoresUnknownFields(t *testing.T) {
	type wide struct {
		Name  string `cbor:"name"`
		Extra int    `cbor:"extra"`
	}
	type narrow struct {
		Name string `cbor:"name"`
	}

	data, err := Marshal(wide{Name: "doc", Extra: 7})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded narrow
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Name != "doc" {
		t.Errorf("Name = %q, want %q", decoded.Name, "doc")
	}
}

func TestStreamRoundTripOfFrames(t *testing.T) {
	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	messages := [][][]byte{
		{[]byte("event"), []byte(`{"type":0}`)},
		{[]byte("action"), []byte(`{}`)},
	}
	for _, message := range messages {
		if err := encoder.Encode(message); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}

	decoder := NewDecoder(&buffer)
	for index, want := range messages {
		var got [][]byte
		if err := decoder.Decode(&got); err != nil {
			t.Fatalf("Decode message %d: %v", index, err)
		}
		if len(got) != len(want) {
			t.Fatalf("message %d has %d frames, want %d", index, len(got), len(want))
		}
		for frame := range want {
			if !bytes.Equal(got[frame], want[frame]) {
				t.Errorf("message %d frame %d = %q, want %q", index, frame, got[frame], want[frame])
			}
		}
	}
}

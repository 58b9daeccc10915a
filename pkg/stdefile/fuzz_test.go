package stdefile

import (
	"testing"

	"github.com/ha1tch/webstde/pkg/stde"
)

// FuzzParseJSON feeds arbitrary bytes to the document parser.
// Run with: go test -fuzz=FuzzParseJSON -fuzztime=30s ./pkg/stdefile/
func FuzzParseJSON(f *testing.F) {
	f.Add([]byte(`{"id":"","signals":[],"states":[],"transitions":[]}`))
	f.Add([]byte(`{"id":"m","signals":[{"id":"x","type":"bit_n","bits":8,"io":"input","desc":""}],"states":[{"id":"s0","x":0,"y":0,"code":"","desc":"","q":{"x":"1"}}],"transitions":[{"u":0,"v":0,"u.angle":-1.5,"v.angle":-1.2,"cond":"x"}]}`))
	f.Add([]byte(`{"states":[{"id":"a","x":0,"y":0}],"transitions":[{"u":0,"v":-1}]}`))
	f.Add([]byte(`{}`))
	f.Add([]byte(`[]`))
	f.Add([]byte(`null`))
	f.Add([]byte(``))
	f.Add([]byte(`{"states":[{"x":1e309}]}`))

	f.Fuzz(func(t *testing.T, data []byte) {
		m, err := ParseJSON(data)
		if err != nil {
			return
		}
		// Anything accepted must serialise and re-parse.
		out, err := ToJSON(m, false)
		if err != nil {
			t.Fatalf("ToJSON after successful parse: %v", err)
		}
		if _, err := ParseJSON(out); err != nil {
			t.Fatalf("re-parse of own output: %v\n%s", err, out)
		}

		// Edits the setters accept must keep the export loadable.
		for i, sig := range m.Signals() {
			_ = sig.SetBits(len(data)%64 + 1)
			if i%2 == 0 {
				_ = sig.SetType(stde.SignalBit)
				_ = sig.SetBitsString("8")
			}
		}
		for _, st := range m.States() {
			_ = st.SetSize(float64(len(data)%300+1), 40)
			_ = st.SetMooreOutput("fuzz", string(data))
		}
		out, err = ToJSON(m, false)
		if err != nil {
			t.Fatalf("ToJSON after edits: %v", err)
		}
		if _, err := ParseJSON(out); err != nil {
			t.Fatalf("re-parse after edits: %v\n%s", err, out)
		}
	})
}

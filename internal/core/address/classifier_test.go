package address

import (
	"errors"
	"fmt"
	"testing"

	"github.com/vietddude/flowpanel/internal/core/domain"
)

func TestClassify_KnownAccounts(t *testing.T) {
	tests := []struct {
		addr string
		want domain.NetworkID
	}{
		{"0xf8d6e0586b0a20c7", domain.NetworkEmulator},
		{"0x01cf0e2f2f715450", domain.NetworkEmulator},
		{"0x40387cea622425a3", domain.NetworkTestnet},
		{"0x8c5303eaa26202d6", domain.NetworkTestnet},
		{"0x455eb332c23a23e8", domain.NetworkMainnet},
		{"0xe467b9dd11fa00df", domain.NetworkMainnet},
		{"F8D6E0586B0A20C7", domain.NetworkEmulator},
		{"0X40387CEA622425A3", domain.NetworkTestnet},
		{"0x0000000000000001", domain.NetworkUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			if got := Classify(tt.addr); got != tt.want {
				t.Errorf("Classify(%s) = %s, want %s", tt.addr, got, tt.want)
			}
		})
	}
}

func TestClassify_MalformedIsUnknown(t *testing.T) {
	inputs := []string{
		"",
		"0x",
		"0x1234",
		"f8d6e0586b0a20c",
		"0xf8d6e0586b0a20c7ff",
		"0xf8d6e0586b0a20cg",
		"0x0xf8d6e0586b0a20",
		"+xf8d6e0586b0a20c7",
		"0x+8d6e0586b0a20c7",
		"0x_8d6e0586b0a20c7",
		" 0xf8d6e0586b0a20c7",
	}

	for _, in := range inputs {
		if got := Classify(in); got != domain.NetworkUnknown {
			t.Errorf("Classify(%q) = %s, want unknown", in, got)
		}
		if _, err := Parse(in); !errors.Is(err, ErrInvalidFormat) {
			t.Errorf("Parse(%q) error = %v, want ErrInvalidFormat", in, err)
		}
	}
}

func TestClassify_BareCodewordIsNotMember(t *testing.T) {
	for net, cw := range Codewords {
		s := fmt.Sprintf("0x%016x", cw)
		if got := Classify(s); got == net {
			t.Errorf("codeword of %s classified into its own network", net)
		}
		if IsValidFor(Address(cw), net) {
			t.Errorf("IsValidFor(codeword, %s) = true", net)
		}
	}
}

func TestClassify_SingleBitFlipDetected(t *testing.T) {
	valid := []string{
		"0xf8d6e0586b0a20c7",
		"0x40387cea622425a3",
		"0x455eb332c23a23e8",
		"0x8c5303eaa26202d6",
		"0xe467b9dd11fa00df",
	}

	for _, s := range valid {
		a, err := Parse(s)
		if err != nil {
			t.Fatalf("Parse(%s): %v", s, err)
		}
		net := ClassifyAddress(a)
		if net == domain.NetworkUnknown {
			t.Fatalf("%s should be a member of a known network", s)
		}
		for bit := 0; bit < 64; bit++ {
			flipped := a ^ Address(uint64(1)<<bit)
			if ClassifyAddress(flipped) == net {
				t.Errorf("%s with bit %d flipped still classified as %s", s, bit, net)
			}
		}
	}
}

func TestParse_RoundTrip(t *testing.T) {
	a, err := Parse("F8D6E0586B0A20C7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.String() != "0xf8d6e0586b0a20c7" {
		t.Errorf("String() = %s", a.String())
	}
}

func TestParityCheckColumns_Nonzero(t *testing.T) {
	seen := make(map[uint32]bool)
	for i, col := range parityCheckColumns {
		if col == 0 {
			t.Errorf("column %d is zero", i)
		}
		if seen[col] {
			t.Errorf("column %d duplicates an earlier column", i)
		}
		seen[col] = true
	}
}

func TestIsValidFor_UnknownNetwork(t *testing.T) {
	if IsValidFor(0xf8d6e0586b0a20c7, domain.NetworkUnknown) {
		t.Error("no address is valid for the unknown network")
	}
}

func BenchmarkClassify(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = Classify("0xf8d6e0586b0a20c7")
	}
}

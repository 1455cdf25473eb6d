package kraken

import "testing"

func TestNormalizeStripsLeadingZerosNotTrailing(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0.001", "1"},
		{"00.001", "1"},
		{"0000.001000", "1000"},
		{"1.50", "150"},
		{"1.5", "15"},
		{"0.0", ""},
		{"0", ""},
	}
	for _, c := range cases {
		if got := normalize(c.in); got != c.want {
			t.Errorf("normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeTrailingZerosAreSignificant(t *testing.T) {
	a := normalize("0.001")
	b := normalize("0000.001000")
	if a == b {
		t.Fatalf("normalize(%q) should differ from normalize(%q), both gave %q", "0.001", "0000.001000", a)
	}
}

func TestNormalizeLeadingZerosDoNotMatter(t *testing.T) {
	a := normalize("0.001")
	b := normalize("00.001")
	if a != b {
		t.Fatalf("normalize(0.001)=%q, normalize(00.001)=%q, want equal", a, b)
	}
}

func entry(price, volume string) BookEntry {
	return BookEntry{PriceStr: price, VolumeStr: volume}
}

func TestBookChecksumDependsOnlyOnTop10EachSide(t *testing.T) {
	asks := make([]BookEntry, 0, 12)
	bids := make([]BookEntry, 0, 12)
	for i := 0; i < 12; i++ {
		asks = append(asks, entry("100.00", "1.0"))
		bids = append(bids, entry("99.00", "1.0"))
	}

	withExtra := bookChecksum(asks, bids)

	// Changing entries beyond the first ten on each side must not move the checksum.
	asks[10].PriceStr = "999.00"
	bids[11].VolumeStr = "42.0"
	withExtraChanged := bookChecksum(asks, bids)

	if withExtra != withExtraChanged {
		t.Fatalf("checksum changed after mutating entries beyond depth 10")
	}
}

func TestVerifyChecksumRoundTrip(t *testing.T) {
	asks := []BookEntry{entry("100.10", "5.0"), entry("100.20", "3.0")}
	bids := []BookEntry{entry("99.90", "2.0"), entry("99.80", "4.0")}

	want := bookChecksum(asks, bids)
	wire := uint64ToString(uint64(want))

	if !verifyChecksum(asks, bids, wire) {
		t.Fatalf("verifyChecksum failed against its own computed value")
	}
	if verifyChecksum(asks, bids, wire+"1") {
		t.Fatalf("verifyChecksum should fail against a mutated checksum string")
	}
}

func uint64ToString(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

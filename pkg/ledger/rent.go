package ledger

// Rent decides how many lamports an account of a given size must hold to
// stay exempt from collection.
type Rent struct { // A
	LamportsPerByteYear uint64
	ExemptionThreshold  uint64
	AccountOverhead     uint64
}

// DefaultRent matches the public cluster parameters.
var DefaultRent = Rent{
	LamportsPerByteYear: 3480,
	ExemptionThreshold:  2,
	AccountOverhead:     128,
}

// MinimumBalance is the exempt balance for size bytes of data.
func (r Rent) MinimumBalance(size int) uint64 { // A
	return (r.AccountOverhead + uint64(size)) *
		r.LamportsPerByteYear * r.ExemptionThreshold
}

// IsExempt reports whether lamports cover size bytes.
func (r Rent) IsExempt(lamports uint64, size int) bool { // A
	return lamports >= r.MinimumBalance(size)
}
